package scenarios

import (
	"github.com/conduit-qa/conduit-contract-tests/intercept"
	"github.com/conduit-qa/conduit-contract-tests/transform"
)

const (
	// TagsPattern matches the popular tags request, wherever the API is hosted.
	TagsPattern = "**/api/tags"

	// ArticlesPattern matches article list requests, with or without a query string. It does
	// not match single-article paths such as /api/articles/some-slug.
	ArticlesPattern = "**/api/articles*"

	TagsFixture = "tags"

	MockTitle       = "This is a test title"
	MockDescription = "This is a description"
)

// InterceptFeed installs the mocks that the feed scenarios share: popular tags come from the
// tags fixture, and the first article of every article list gets MockTitle and
// MockDescription. Everything else reaches the real backend.
func (t *T) InterceptFeed() {
	tags := t.LoadFixture(TagsFixture)
	t.Intercept(TagsPattern, intercept.FulfillJSON(tags.Bytes()))
	t.Intercept(ArticlesPattern, intercept.FetchThenTransform(
		transform.OverwriteFirstArticle(MockTitle, MockDescription)))
}
