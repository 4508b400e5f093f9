// Package conduittest provides an in-process stand-in for the conduit API, for testing the
// contract-test machinery itself without depending on the public demo application.
package conduittest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
)

const (
	articlesPath = "/api/articles"
	defaultLimit = 10
)

// RequestInfo describes a request that the server received.
type RequestInfo struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

type user struct {
	password string
	username string
	token    string
}

type override struct {
	method  string
	path    string
	handler http.Handler
}

// Server is a minimal conduit API backend. It keeps users and articles in memory, records every
// request it receives, and lets a test replace the handler for specific paths.
type Server struct {
	server     *httptest.Server
	users      map[string]user
	articles   []conduit.Article // newest first
	overrides  []override
	requests   chan RequestInfo
	tokenField string
	lastID     int
	logger     framework.Logger
	lock       sync.Mutex
}

// NewServer starts a server with no users and no articles.
func NewServer(logger framework.Logger) *Server {
	if logger == nil {
		logger = framework.NullLogger()
	}
	s := &Server{
		users:      make(map[string]user),
		requests:   make(chan RequestInfo, 100),
		tokenField: "token",
		logger:     logger,
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// AddUser registers credentials that Login will accept, and returns the token it will issue.
func (s *Server) AddUser(email, password, username string) conduit.AccessToken {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastID++
	token := fmt.Sprintf("token-%d-%s", s.lastID, username)
	s.users[email] = user{password: password, username: username, token: token}
	return conduit.AccessToken(token)
}

// UseAccessTokenField makes login responses carry the token as "accessToken" instead of
// "token", as some deployments of the API do.
func (s *Server) UseAccessTokenField() {
	s.lock.Lock()
	s.tokenField = "accessToken"
	s.lock.Unlock()
}

// AddArticle stores an article as if it had been published, and returns it with a slug.
func (s *Server) AddArticle(author string, a conduit.NewArticle) conduit.Article {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addArticle(author, a)
}

func (s *Server) addArticle(author string, a conduit.NewArticle) conduit.Article {
	s.lastID++
	now := time.Now().UTC().Format(time.RFC3339)
	tags := append([]string{}, a.TagList...)
	article := conduit.Article{
		Slug:        fmt.Sprintf("%s-%d", slugify(a.Title), s.lastID),
		Title:       a.Title,
		Description: a.Description,
		Body:        a.Body,
		TagList:     tags,
		CreatedAt:   now,
		UpdatedAt:   now,
		Author:      conduit.Profile{Username: author},
	}
	s.articles = append([]conduit.Article{article}, s.articles...)
	return article
}

// Articles returns the stored articles, newest first.
func (s *Server) Articles() []conduit.Article {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]conduit.Article(nil), s.articles...)
}

// Override makes requests with the given method and exact path go to handler instead of the
// built-in behavior. An empty method matches any method.
func (s *Server) Override(method, path string, handler http.Handler) {
	s.lock.Lock()
	s.overrides = append(s.overrides, override{method: method, path: path, handler: handler})
	s.lock.Unlock()
}

// AwaitRequest waits for the next request the server receives.
func (s *Server) AwaitRequest(timeout time.Duration) (RequestInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case r := <-s.requests:
		return r, nil
	case <-deadline.C:
		return RequestInfo{}, fmt.Errorf("timed out waiting for a request to %s", s.URL())
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, req *http.Request) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			s.logger.Printf("Unexpected error trying to read request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
		req.Body = io.NopCloser(bytes.NewReader(data))
	}

	info := RequestInfo{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.RawQuery,
		Headers: req.Header.Clone(),
		Body:    body,
	}
	select { // non-blocking push
	case s.requests <- info:
	default:
		s.logger.Printf("Request channel was full for %s", req.URL)
	}
	s.logger.Printf("%s %s", req.Method, req.URL)

	s.handlerFor(req).ServeHTTP(w, req)
}

func (s *Server) handlerFor(req *http.Request) http.Handler {
	s.lock.Lock()
	for _, o := range s.overrides {
		if o.path == req.URL.Path && (o.method == "" || o.method == req.Method) {
			s.lock.Unlock()
			return o.handler
		}
	}
	s.lock.Unlock()

	path := req.URL.Path
	switch {
	case path == "/api/users/login" && req.Method == http.MethodPost:
		return http.HandlerFunc(s.login)
	case path == "/api/tags" && req.Method == http.MethodGet:
		return s.tags()
	case (path == articlesPath || path == articlesPath+"/") && req.Method == http.MethodPost:
		return http.HandlerFunc(s.createArticle)
	case path == articlesPath && req.Method == http.MethodGet:
		return http.HandlerFunc(s.listArticles)
	case strings.HasPrefix(path, articlesPath+"/"):
		slug := strings.TrimPrefix(path, articlesPath+"/")
		switch req.Method {
		case http.MethodGet:
			return s.getArticle(slug)
		case http.MethodDelete:
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { s.deleteArticle(w, r, slug) })
		}
		return httphelpers.HandlerWithStatus(http.StatusMethodNotAllowed)
	}
	return httphelpers.HandlerWithStatus(http.StatusNotFound)
}

func (s *Server) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		User conduit.Credentials `json:"user"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httphelpers.HandlerWithStatus(http.StatusUnprocessableEntity).ServeHTTP(w, req)
		return
	}
	s.lock.Lock()
	u, ok := s.users[body.User.Email]
	field := s.tokenField
	s.lock.Unlock()
	if !ok || u.password != body.User.Password {
		errorResponse(http.StatusForbidden, "email or password", "is invalid").ServeHTTP(w, req)
		return
	}
	resp := map[string]interface{}{
		"user": map[string]interface{}{
			"email":    body.User.Email,
			"username": u.username,
			field:      u.token,
		},
	}
	httphelpers.HandlerWithJSONResponse(resp, nil).ServeHTTP(w, req)
}

func (s *Server) authorize(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Token ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Token ")
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, u := range s.users {
		if u.token == token {
			return u.username, true
		}
	}
	return "", false
}

func (s *Server) createArticle(w http.ResponseWriter, req *http.Request) {
	username, ok := s.authorize(req)
	if !ok {
		errorResponse(http.StatusUnauthorized, "token", "is missing or invalid").ServeHTTP(w, req)
		return
	}
	var body struct {
		Article conduit.NewArticle `json:"article"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Article.Title == "" {
		errorResponse(http.StatusUnprocessableEntity, "title", "can't be blank").ServeHTTP(w, req)
		return
	}
	s.lock.Lock()
	article := s.addArticle(username, body.Article)
	s.lock.Unlock()
	writeJSON(w, http.StatusCreated, map[string]interface{}{"article": article})
}

func (s *Server) listArticles(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	limit, offset := defaultLimit, 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n >= 0 {
		limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	var matched []conduit.Article
	for _, a := range s.Articles() {
		if tag := q.Get("tag"); tag != "" && !contains(a.TagList, tag) {
			continue
		}
		if author := q.Get("author"); author != "" && a.Author.Username != author {
			continue
		}
		matched = append(matched, a)
	}
	page := []conduit.Article{}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = matched[offset:end]
	}
	httphelpers.HandlerWithJSONResponse(
		conduit.ArticleList{Articles: page, ArticlesCount: len(matched)}, nil,
	).ServeHTTP(w, req)
}

func (s *Server) getArticle(slug string) http.Handler {
	for _, a := range s.Articles() {
		if a.Slug == slug {
			return httphelpers.HandlerWithJSONResponse(map[string]interface{}{"article": a}, nil)
		}
	}
	return errorResponse(http.StatusNotFound, "article", "not found")
}

func (s *Server) deleteArticle(w http.ResponseWriter, req *http.Request, slug string) {
	username, ok := s.authorize(req)
	if !ok {
		errorResponse(http.StatusUnauthorized, "token", "is missing or invalid").ServeHTTP(w, req)
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, a := range s.articles {
		if a.Slug != slug {
			continue
		}
		if a.Author.Username != username {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		s.articles = append(s.articles[:i:i], s.articles[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) tags() http.Handler {
	seen := make(map[string]bool)
	tags := []string{}
	for _, a := range s.Articles() {
		for _, t := range a.TagList {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return httphelpers.HandlerWithJSONResponse(conduit.TagList{Tags: tags}, nil)
}

func errorResponse(status int, field, message string) http.Handler {
	data, _ := json.Marshal(map[string]interface{}{
		"errors": map[string][]string{field: {message}},
	})
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	return httphelpers.HandlerWithResponse(status, headers, data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
