package scenarios

import (
	"encoding/json"
	"net/url"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/intercept"

	"github.com/stretchr/testify/require"
)

// DoAPIInterceptionTests runs the feed mocks against API requests made from Go rather than
// from a page, so they do not need a browser.
func DoAPIInterceptionTests(t *T) {
	t.Run("fixture served verbatim", func(t *T) {
		t.InterceptFeed()
		expected := t.LoadFixture(TagsFixture).Bytes()

		body := t.Fetch(t.RoutedAPI(), "/api/tags")
		t.Check(string(expected), string(body), "tags response body")

		entry := t.AwaitInterception(TagsPattern)
		t.Check(intercept.ActionFulfilled, entry.Action, "action taken for tags request")
		t.Check(TagsPattern, entry.Pattern, "rule that handled tags request")
	})

	t.Run("first article transformed", func(t *T) {
		t.InterceptFeed()
		query := conduit.ArticleQuery{Limit: 10}

		direct := t.Articles(t.API(), query)
		if len(direct.Articles) == 0 {
			t.Skip("the global feed is empty, so there is nothing to transform")
		}
		mocked := t.Articles(t.RoutedAPI(), query)

		require.NotEmpty(t, mocked.Articles)
		t.Check(MockTitle, mocked.Articles[0].Title, "first article title")
		t.Check(MockDescription, mocked.Articles[0].Description, "first article description")
		t.Check(direct.Articles[0].Slug, mocked.Articles[0].Slug, "first article slug")
		t.Check(direct.Articles[0].Body, mocked.Articles[0].Body, "first article body")
		t.Check(direct.ArticlesCount, mocked.ArticlesCount, "articlesCount")
		t.Check(slugs(direct.Articles[1:]), slugs(mocked.Articles[1:]), "slugs of the other articles")

		entry := t.AwaitInterception(ArticlesPattern)
		t.Check(intercept.ActionFulfilled, entry.Action, "action taken for article list request")
	})

	t.Run("unmatched route passes through", func(t *T) {
		t.InterceptFeed()

		direct := t.Articles(t.API(), conduit.ArticleQuery{Limit: 1})
		if len(direct.Articles) == 0 {
			t.Skip("the global feed is empty, so there is no article to request")
		}
		path := "/api/articles/" + url.PathEscape(direct.Articles[0].Slug)

		body := t.Fetch(t.RoutedAPI(), path)
		var got struct {
			Article conduit.Article `json:"article"`
		}
		require.NoError(t, json.Unmarshal(body, &got), "article response was not valid JSON")
		t.Check(direct.Articles[0].Title, got.Article.Title, "title of an article fetched by slug")
		t.Check(direct.Articles[0].Description, got.Article.Description, "description of an article fetched by slug")

		entry := t.AwaitInterception("**" + path)
		t.Check(intercept.ActionContinued, entry.Action, "action taken for single article request")
		t.Check(false, entry.Intercepted(), "whether a rule handled the single article request")
	})
}

func slugs(articles []conduit.Article) []string {
	ret := make([]string, 0, len(articles))
	for _, a := range articles {
		ret = append(ret, a.Slug)
	}
	return ret
}
