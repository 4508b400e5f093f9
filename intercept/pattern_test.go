package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMatching(t *testing.T) {
	for _, p := range []struct {
		pattern string
		url     string
		match   bool
	}{
		{"**/api/tags", "https://conduit-api.bondaracademy.com/api/tags", true},
		{"**/api/tags", "http://127.0.0.1:4000/api/tags", true},
		{"**/api/tags", "https://conduit-api.bondaracademy.com/api/tags/other", false},
		{"**/api/articles*", "https://host/api/articles", true},
		{"**/api/articles*", "https://host/api/articles?limit=10&offset=0", true},
		{"**/api/articles*", "https://host/api/articles/some-slug", false},
		{"**/api/articles*", "https://host/api/articlesfeed", true},
		{"**/api/articles/", "https://host/api/articles/", true},
		{"**/api/articles/", "https://host/api/articles", false},
		{"**/api/?ags", "https://host/api/tags", true},
		{"**/api/?ags", "https://host/api//ags", false},
		{"**/api/{tags,profiles}", "https://host/api/profiles", true},
		{"https://host/*", "https://host/a/b", false},
	} {
		t.Run(p.pattern+" "+p.url, func(t *testing.T) {
			compiled, err := CompilePattern(p.pattern)
			require.NoError(t, err)
			assert.Equal(t, p.match, compiled.Match(p.url))
		})
	}
}

func TestInvalidPatterns(t *testing.T) {
	_, err := CompilePattern("")
	assert.Error(t, err)

	_, err = CompilePattern("**/api/{tags")
	assert.Error(t, err)

	assert.Panics(t, func() { MustCompilePattern("") })
}

func TestZeroPatternMatchesNothing(t *testing.T) {
	assert.False(t, Pattern{}.Match("https://host/"))
	assert.False(t, Pattern{}.Match(""))
}
