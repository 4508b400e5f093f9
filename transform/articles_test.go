package transform

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `{
  "articles": [
    {
      "slug": "first-1",
      "title": "Real title",
      "description": "Real description",
      "body": "Body",
      "tagList": ["a", "b"],
      "favoritesCount": 3,
      "author": {"username": "someone", "following": false}
    },
    {"slug": "second-2", "title": "Second", "description": "Second description"}
  ],
  "articlesCount": 2
}`

func decode(t *testing.T, data []byte) map[string]interface{} {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestOverwriteFirstArticleChangesOnlyTitleAndDescription(t *testing.T) {
	out, err := OverwriteFirstArticle("This is a test title", "This is a description")([]byte(feed))
	require.NoError(t, err)

	expected := decode(t, []byte(feed))
	first := expected["articles"].([]interface{})[0].(map[string]interface{})
	first["title"] = "This is a test title"
	first["description"] = "This is a description"

	if diff := cmp.Diff(expected, decode(t, out)); diff != "" {
		t.Errorf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestOverwriteFirstArticleAddsMissingFields(t *testing.T) {
	out, err := OverwriteFirstArticle("t", "d")([]byte(`{"articles":[{"slug":"x"}],"articlesCount":1}`))
	require.NoError(t, err)

	expected := map[string]interface{}{
		"articles":      []interface{}{map[string]interface{}{"slug": "x", "title": "t", "description": "d"}},
		"articlesCount": float64(1),
	}
	if diff := cmp.Diff(expected, decode(t, out)); diff != "" {
		t.Errorf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestOverwriteFirstArticleRejectsDocumentsWithoutArticles(t *testing.T) {
	fn := OverwriteFirstArticle("t", "d")
	for _, doc := range []string{
		`{"articles":[],"articlesCount":0}`,
		`{"articlesCount":0}`,
		`{"articles":null}`,
		`{"articles":{}}`,
	} {
		t.Run(doc, func(t *testing.T) {
			_, err := fn([]byte(doc))
			assert.ErrorIs(t, err, ErrNoArticles)
		})
	}
}

func TestOverwriteFirstArticleRejectsInvalidDocuments(t *testing.T) {
	fn := OverwriteFirstArticle("t", "d")
	for _, doc := range []string{
		`{"articles":[`,
		`[]`,
		`"articles"`,
		`{"articles":["not an object"]}`,
	} {
		t.Run(doc, func(t *testing.T) {
			_, err := fn([]byte(doc))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoArticles)
		})
	}
}

func TestOverwriteFirstArticleDoesNotModifyInput(t *testing.T) {
	input := []byte(feed)
	_, err := OverwriteFirstArticle("t", "d")(input)
	require.NoError(t, err)
	assert.Equal(t, feed, string(input))
}

func TestOverwriteFirstArticleKeepsUntouchedValuesVerbatim(t *testing.T) {
	in := `{"articles":[` +
		`{"id": 9007199254740993, "ratio": 1.5e300, "image": null, "title": "Real title"},` +
		`{"id": 9007199254740995, "author": {"image": null}}` +
		`], "articlesCount": 2}`

	out, err := OverwriteFirstArticle("Mocked", "Mocked description")([]byte(in))
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `"id":9007199254740993`)
	assert.Contains(t, s, `"ratio":1.5e300`)
	assert.Contains(t, s, `"image":null`)
	assert.Contains(t, s, "9007199254740995")
	assert.Contains(t, s, `"articlesCount":2`)
	assert.Contains(t, s, `"title":"Mocked"`)
	assert.NotContains(t, s, "Real title")
}
