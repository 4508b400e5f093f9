package conduit_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/conduittest"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCredentials = conduit.Credentials{Email: "pwtest@test.com", Password: "Welcome1"}

func newClient(t *testing.T) (*conduit.Client, *conduittest.Server) {
	server := conduittest.NewServer(nil)
	t.Cleanup(server.Close)
	return conduit.NewClient(conduit.ClientConfig{BaseURL: server.URL(), Timeout: time.Second * 5}), server
}

func TestLoginReadsTokenField(t *testing.T) {
	client, server := newClient(t)
	expected := server.AddUser(testCredentials.Email, testCredentials.Password, "pwtest")

	token, err := client.Login(context.Background(), testCredentials)
	require.NoError(t, err)
	assert.Equal(t, expected, token)

	r, err := server.AwaitRequest(time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "/api/users/login", r.Path)
	assert.JSONEq(t, `{"user":{"email":"pwtest@test.com","password":"Welcome1"}}`, string(r.Body))
}

func TestLoginReadsAccessTokenField(t *testing.T) {
	client, server := newClient(t)
	expected := server.AddUser(testCredentials.Email, testCredentials.Password, "pwtest")
	server.UseAccessTokenField()

	token, err := client.Login(context.Background(), testCredentials)
	require.NoError(t, err)
	assert.Equal(t, expected, token)
}

func TestLoginWithWrongPassword(t *testing.T) {
	client, server := newClient(t)
	server.AddUser(testCredentials.Email, "something else", "pwtest")

	_, err := client.Login(context.Background(), testCredentials)
	var se *conduit.StatusError
	require.True(t, errors.As(err, &se), "expected a StatusError, got %v", err)
	assert.Equal(t, http.StatusOK, se.Expected)
	assert.Equal(t, http.StatusForbidden, se.Actual)
}

func TestLoginWithoutToken(t *testing.T) {
	client, server := newClient(t)
	server.Override(http.MethodPost, "/api/users/login",
		httphelpers.HandlerWithJSONResponse(map[string]interface{}{"user": map[string]interface{}{}}, nil))

	_, err := client.Login(context.Background(), testCredentials)
	assert.Error(t, err)
}

func TestCreateAndDeleteArticle(t *testing.T) {
	client, server := newClient(t)
	token := server.AddUser(testCredentials.Email, testCredentials.Password, "pwtest")

	article, err := client.CreateArticle(context.Background(), token, conduit.NewArticle{
		Title:       "This is a test title",
		Description: "This is a test description",
		Body:        "This is a test body",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, article.Slug)
	assert.Equal(t, "This is a test title", article.Title)
	assert.Equal(t, "pwtest", article.Author.Username)

	fetched, err := client.Article(context.Background(), article.Slug)
	require.NoError(t, err)
	assert.Equal(t, article.Slug, fetched.Slug)

	require.NoError(t, client.DeleteArticle(context.Background(), token, article.Slug))
	assert.Empty(t, server.Articles())

	err = client.DeleteArticle(context.Background(), token, article.Slug)
	var se *conduit.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Actual)
	assert.Equal(t, http.StatusNoContent, se.Expected)
}

func TestCreateArticleSendsTokenAndEmptyTagList(t *testing.T) {
	client, server := newClient(t)
	token := server.AddUser(testCredentials.Email, testCredentials.Password, "pwtest")

	_, err := client.CreateArticle(context.Background(), token, conduit.NewArticle{Title: "x"})
	require.NoError(t, err)

	r, err := server.AwaitRequest(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "/api/articles/", r.Path)
	assert.Equal(t, "Token "+string(token), r.Headers.Get("Authorization"))
	assert.JSONEq(t, `{"article":{"tagList":[],"title":"x","description":"","body":""}}`, string(r.Body))
}

func TestCreateArticleWithBadToken(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.CreateArticle(context.Background(), "nope", conduit.NewArticle{Title: "x"})
	var se *conduit.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Actual)
	assert.Contains(t, se.Error(), "expected HTTP status 201, got 401")
}

func TestDeleteArticleWithoutSlug(t *testing.T) {
	client, _ := newClient(t)
	assert.Error(t, client.DeleteArticle(context.Background(), "token", ""))
}

func TestArticlesAndTags(t *testing.T) {
	client, server := newClient(t)
	server.AddArticle("a", conduit.NewArticle{Title: "One", TagList: []string{"Playwright"}})
	server.AddArticle("b", conduit.NewArticle{Title: "Two", TagList: []string{"Automation", "Playwright"}})
	server.AddArticle("a", conduit.NewArticle{Title: "Three"})

	list, err := client.Articles(context.Background(), conduit.ArticleQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.ArticlesCount)
	require.Len(t, list.Articles, 2)
	assert.Equal(t, "Three", list.Articles[0].Title)
	assert.Equal(t, "Two", list.Articles[1].Title)

	list, err = client.Articles(context.Background(), conduit.ArticleQuery{Tag: "Playwright", Offset: 1})
	require.NoError(t, err)
	require.Len(t, list.Articles, 1)
	assert.Equal(t, "One", list.Articles[0].Title)

	list, err = client.Articles(context.Background(), conduit.ArticleQuery{Author: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.ArticlesCount)

	tags, err := client.Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Automation", "Playwright"}, tags.Tags)
}

func TestStatusErrorBodyIsTruncated(t *testing.T) {
	client, server := newClient(t)
	server.Override(http.MethodGet, "/api/tags",
		httphelpers.HandlerWithResponse(500, nil, []byte(strings.Repeat("x", 2000))))

	_, err := client.Fetch(context.Background(), "/api/tags")
	var se *conduit.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.Actual)
	assert.Less(t, len(se.Body), 600)
	assert.True(t, strings.HasSuffix(se.Body, "..."))
}

func TestStatusErrorBodyIsTruncatedOnRuneBoundary(t *testing.T) {
	client, server := newClient(t)
	// The leading byte puts the cut point in the middle of a two-byte rune.
	body := "x" + strings.Repeat("é", 1000)
	server.Override(http.MethodGet, "/api/tags", httphelpers.HandlerWithResponse(500, nil, []byte(body)))

	_, err := client.Fetch(context.Background(), "/api/tags")
	var se *conduit.StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, utf8.ValidString(se.Body))
	assert.True(t, strings.HasSuffix(se.Body, "..."))
	assert.True(t, strings.HasPrefix(body, strings.TrimSuffix(se.Body, "...")))
}
