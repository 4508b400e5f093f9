// Package conduit is a client for the parts of the conduit REST API that the contract tests
// call directly, outside of the browser: logging in, and creating, reading, and deleting
// articles.
package conduit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultAPIURL  = "https://conduit-api.bondaracademy.com"
	defaultTimeout = time.Second * 30
	maxErrorBody   = 500
)

// StatusError means the API answered with a status other than the one the operation expects.
type StatusError struct {
	Method   string
	URL      string
	Expected int
	Actual   int
	Body     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: expected HTTP status %d, got %d", e.Method, e.URL, e.Expected, e.Actual)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ClientConfig holds the parameters for NewClient.
type ClientConfig struct {
	// BaseURL is the API root, without the "/api" path. Defaults to DefaultAPIURL.
	BaseURL string

	// Timeout applies to each request. Defaults to 30 seconds.
	Timeout time.Duration

	// Transport, if set, carries the requests; for instance an intercept.Transport.
	Transport http.RoundTripper

	// Logger receives a line for every request and response.
	Logger framework.Logger
}

// Client calls the conduit API. It holds no credentials; each authenticated call takes the
// access token as a parameter.
type Client struct {
	http   *resty.Client
	logger framework.Logger
}

func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultAPIURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}

	rc := resty.New()
	rc.SetBaseURL(config.BaseURL)
	rc.SetTimeout(config.Timeout)
	rc.SetHeader("Accept", "application/json")
	if config.Transport != nil {
		rc.SetTransport(config.Transport)
	}
	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Printf(">> %s %s", req.Method, req.URL)
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.Printf("<< %s %s: %d (%s)", res.Request.Method, res.Request.URL, res.StatusCode(), res.Time())
		return nil
	})

	return &Client{http: rc, logger: logger}
}

func (c *Client) expect(res *resty.Response, err error, status int) error {
	if err != nil {
		return err
	}
	if res.StatusCode() != status {
		return &StatusError{
			Method:   res.Request.Method,
			URL:      res.Request.URL,
			Expected: status,
			Actual:   res.StatusCode(),
			Body:     truncate(string(res.Body()), maxErrorBody),
		}
	}
	return nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AccessToken, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(loginRequest{User: creds}).
		Post("/api/users/login")
	if err := c.expect(res, err, http.StatusOK); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	var body loginResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fmt.Errorf("malformed login response: %w", err)
	}
	token := body.User.Token
	if token == "" {
		token = body.User.AccessToken
	}
	if token == "" {
		return "", errors.New("login response did not contain a token")
	}
	return AccessToken(token), nil
}

// CreateArticle publishes an article and returns it as the server stored it, including its
// slug. The server must answer 201.
func (c *Client) CreateArticle(ctx context.Context, token AccessToken, article NewArticle) (Article, error) {
	if article.TagList == nil {
		article.TagList = []string{}
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", token.AuthorizationHeader()).
		SetBody(newArticleRequest{Article: article}).
		Post("/api/articles/")
	if err := c.expect(res, err, http.StatusCreated); err != nil {
		return Article{}, fmt.Errorf("creating article %q: %w", article.Title, err)
	}
	var body articleResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return Article{}, fmt.Errorf("malformed article response: %w", err)
	}
	return body.Article, nil
}

// DeleteArticle deletes an article by slug. The server must answer 204.
func (c *Client) DeleteArticle(ctx context.Context, token AccessToken, slug string) error {
	if slug == "" {
		return errors.New("cannot delete an article without a slug")
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", token.AuthorizationHeader()).
		Delete("/api/articles/" + url.PathEscape(slug))
	if err := c.expect(res, err, http.StatusNoContent); err != nil {
		return fmt.Errorf("deleting article %q: %w", slug, err)
	}
	return nil
}

// Article fetches a single article by slug.
func (c *Client) Article(ctx context.Context, slug string) (Article, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/api/articles/" + url.PathEscape(slug))
	if err := c.expect(res, err, http.StatusOK); err != nil {
		return Article{}, err
	}
	var body articleResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return Article{}, fmt.Errorf("malformed article response: %w", err)
	}
	return body.Article, nil
}

// Articles fetches a page of the global feed.
func (c *Client) Articles(ctx context.Context, q ArticleQuery) (ArticleList, error) {
	req := c.http.R().SetContext(ctx)
	if q.Tag != "" {
		req.SetQueryParam("tag", q.Tag)
	}
	if q.Author != "" {
		req.SetQueryParam("author", q.Author)
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(q.Offset))
	}
	res, err := req.Get("/api/articles")
	if err := c.expect(res, err, http.StatusOK); err != nil {
		return ArticleList{}, err
	}
	var body ArticleList
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return ArticleList{}, fmt.Errorf("malformed article list response: %w", err)
	}
	return body, nil
}

// Tags fetches the list of popular tags.
func (c *Client) Tags(ctx context.Context) (TagList, error) {
	data, err := c.Fetch(ctx, "/api/tags")
	if err != nil {
		return TagList{}, err
	}
	var body TagList
	if err := json.Unmarshal(data, &body); err != nil {
		return TagList{}, fmt.Errorf("malformed tag list response: %w", err)
	}
	return body, nil
}

// Fetch performs a GET on an API path and returns the body exactly as received. The server
// must answer 200.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	res, err := c.http.R().SetContext(ctx).Get(path)
	if err := c.expect(res, err, http.StatusOK); err != nil {
		return nil, err
	}
	return res.Body(), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
