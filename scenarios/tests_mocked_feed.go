package scenarios

import (
	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/intercept"
)

// Selectors in the conduit web app's markup.
const (
	brandSelector          = ".navbar-brand"
	articleHeadingSelector = "app-article-list h1"
	articleSummarySelector = "app-article-list p"
	articlePageTitle       = ".article-page h1"
	popularTagSelector     = ".sidebar .tag-list a"

	globalFeedLink = "Global Feed"
	homeLink       = "Home"
	newArticleLink = "New Article"
)

func DoMockedFeedTests(t *T) {
	t.Run("has title", func(t *T) {
		t.InterceptFeed()
		t.Navigate()

		t.ClickText(globalFeedLink)

		t.ExpectText(brandSelector, "conduit")
		t.ExpectFirstContains(articleHeadingSelector, MockTitle)
		t.ExpectFirstContains(articleSummarySelector, MockDescription)
	})

	t.Run("tags served from fixture", func(t *T) {
		t.InterceptFeed()
		var tags conduit.TagList
		if err := t.LoadFixture(TagsFixture).Decode(&tags); err != nil {
			t.Errorf("tags fixture does not have the shape of a tag list: %s", err)
			t.FailNow()
		}
		t.Navigate()

		entry := t.AwaitInterception(TagsPattern)
		t.Check(intercept.ActionFulfilled, entry.Action, "action taken for tags request")
		for _, tag := range tags.Tags {
			t.ExpectAnyContains(popularTagSelector, tag)
		}
	})
}
