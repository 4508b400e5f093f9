package scenarios

import (
	"encoding/json"
	"net/http"

	"github.com/conduit-qa/conduit-contract-tests/conduit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	deleteArticleButton  = "Delete Article"
	publishArticleButton = "Publish Article"

	articleTitleBox       = "Article Title"
	articleDescriptionBox = "What's this article about?"
	articleBodyBox        = "Write your article (in markdown)"

	createArticlePattern = "**/api/articles/"
)

// DoArticleTests creates and deletes real articles. Each scenario deletes whatever it created,
// even if it fails partway through.
func DoArticleTests(t *T) {
	t.Run("delete article", func(t *T) {
		t.RequireBrowser()
		token := t.Login()
		title := "This is a test title " + uuid.NewString()
		article := t.CreateArticle(token, conduit.NewArticle{
			Title:       title,
			Description: "This is a test description",
			Body:        "This is a test body",
		})
		t.Debug("Created article %q", article.Slug)

		t.Authenticate(token)
		t.Navigate()
		t.ClickText(globalFeedLink)
		t.ClickText(title)
		t.ClickButton(deleteArticleButton)
		t.ClickText(globalFeedLink)

		t.ExpectNoneContains(articleHeadingSelector, title)
	})

	t.Run("create article", func(t *T) {
		t.RequireBrowser()
		token := t.Login()
		t.Authenticate(token)
		t.Navigate()

		t.ClickText(newArticleLink)
		t.Fill(articleTitleBox, "Playwright is awesome")
		t.Fill(articleDescriptionBox, "About the Playwright")
		t.Fill(articleBodyBox, "We like to use playwright for automation")
		status, body := t.AwaitResponse(createArticlePattern, func(p Page) error {
			return p.ClickButton(publishArticleButton)
		})
		var created struct {
			Article conduit.Article `json:"article"`
		}
		require.NoError(t, json.Unmarshal(body, &created), "article creation response was not valid JSON")
		slug := created.Article.Slug
		require.NotEmpty(t, slug, "article creation response had no slug")
		t.CleanUpArticle(token, slug)
		t.Check(http.StatusCreated, status, "status of article creation request")

		t.ExpectFirstContains(articlePageTitle, "Playwright is awesome")
		t.ClickText(homeLink)
		t.ClickText(globalFeedLink)
		t.ExpectFirstContains(articleHeadingSelector, "Playwright is awesome")

		t.DeleteArticle(token, slug)
	})
}
