package scenarios

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/framework"
	"github.com/conduit-qa/conduit-contract-tests/intercept"
)

type capturedResponse struct {
	url    string
	status int
	body   []byte
}

// fakePage imitates the parts of the conduit web app that the scenarios use. It renders
// nothing; it keeps the text that each selector would show, and gets its data from the API
// through the scenario's router, the way the real app does in a browser.
type fakePage struct {
	client    *http.Client
	apiURL    string
	logger    framework.Logger
	token     string
	view      string
	headings  []string
	summaries []string
	tags      []string
	feed      []conduit.Article
	article   conduit.Article
	form      map[string]string
	responses []capturedResponse
	closed    bool

	// onDelete, if set, replaces the API call made by the delete button.
	onDelete func() error
}

func fakePages(apiURL string, opened *[]*fakePage, configure func(*fakePage)) PageFactory {
	return func(_ context.Context, router *intercept.Router, logger framework.Logger) (Page, error) {
		p := &fakePage{
			client: &http.Client{Transport: &intercept.Transport{Router: router}},
			apiURL: apiURL,
			logger: logger,
		}
		if configure != nil {
			configure(p)
		}
		if opened != nil {
			*opened = append(*opened, p)
		}
		return p, nil
	}
}

func (p *fakePage) call(method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, p.apiURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if p.token != "" {
		req.Header.Set("Authorization", conduit.AccessToken(p.token).AuthorizationHeader())
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	p.responses = append(p.responses, capturedResponse{url: req.URL.String(), status: resp.StatusCode, body: data})
	p.logger.Printf("%s %s: %d", method, req.URL, resp.StatusCode)
	return resp.StatusCode, data, nil
}

func (p *fakePage) get(path string, target interface{}) error {
	status, data, err := p.call(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, status)
	}
	return json.Unmarshal(data, target)
}

func (p *fakePage) loadHome() error {
	var tags conduit.TagList
	if err := p.get("/api/tags", &tags); err != nil {
		return err
	}
	var list conduit.ArticleList
	if err := p.get("/api/articles?limit=10&offset=0", &list); err != nil {
		return err
	}
	p.view = "home"
	p.tags = tags.Tags
	p.feed = list.Articles
	p.headings, p.summaries = nil, nil
	for _, a := range list.Articles {
		p.headings = append(p.headings, a.Title)
		p.summaries = append(p.summaries, a.Description)
	}
	return nil
}

func (p *fakePage) Authenticate(token string) error {
	p.token = token
	return nil
}

func (p *fakePage) Goto(string) error {
	return p.loadHome()
}

func (p *fakePage) ClickText(text string) error {
	switch text {
	case globalFeedLink, homeLink:
		return p.loadHome()
	case newArticleLink:
		if p.token == "" {
			return fmt.Errorf("no %q link when logged out", text)
		}
		p.view = "editor"
		p.form = make(map[string]string)
		return nil
	}
	for _, a := range p.feed {
		if p.view == "home" && a.Title == text {
			var got struct {
				Article conduit.Article `json:"article"`
			}
			if err := p.get("/api/articles/"+a.Slug, &got); err != nil {
				return err
			}
			p.view = "article"
			p.article = got.Article
			return nil
		}
	}
	return fmt.Errorf("no element with text %q", text)
}

func (p *fakePage) ClickButton(name string) error {
	switch {
	case name == deleteArticleButton && p.view == "article" && p.onDelete != nil:
		if err := p.onDelete(); err != nil {
			return err
		}
		return p.loadHome()
	case name == deleteArticleButton && p.view == "article":
		status, _, err := p.call(http.MethodDelete, "/api/articles/"+p.article.Slug, nil)
		if err != nil {
			return err
		}
		if status != http.StatusNoContent {
			return fmt.Errorf("delete failed with status %d", status)
		}
		return p.loadHome()
	case name == publishArticleButton && p.view == "editor":
		article := conduit.NewArticle{
			TagList:     []string{},
			Title:       p.form[articleTitleBox],
			Description: p.form[articleDescriptionBox],
			Body:        p.form[articleBodyBox],
		}
		status, data, err := p.call(http.MethodPost, "/api/articles/", map[string]interface{}{"article": article})
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return nil // the real app stays on the editor and shows the errors
		}
		var got struct {
			Article conduit.Article `json:"article"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			return err
		}
		p.view = "article"
		p.article = got.Article
		return nil
	}
	return fmt.Errorf("no button %q in view %q", name, p.view)
}

func (p *fakePage) Fill(textbox, value string) error {
	if p.view != "editor" {
		return fmt.Errorf("no text box %q in view %q", textbox, p.view)
	}
	p.form[textbox] = value
	return nil
}

func (p *fakePage) texts(selector string) []string {
	switch selector {
	case brandSelector:
		return []string{"conduit"}
	case articleHeadingSelector:
		if p.view == "home" {
			return p.headings
		}
	case articleSummarySelector:
		if p.view == "home" {
			return p.summaries
		}
	case articlePageTitle:
		if p.view == "article" {
			return []string{p.article.Title}
		}
	case popularTagSelector:
		if p.view == "home" {
			return p.tags
		}
	}
	return nil
}

func (p *fakePage) ExpectText(selector, expected string) error {
	texts := p.texts(selector)
	if len(texts) != 1 || texts[0] != expected {
		return fmt.Errorf("%s: expected text %q, got %q", selector, expected, texts)
	}
	return nil
}

func (p *fakePage) ExpectFirstContains(selector, expected string) error {
	texts := p.texts(selector)
	if len(texts) == 0 || !strings.Contains(texts[0], expected) {
		return fmt.Errorf("%s: expected first element to contain %q, got %q", selector, expected, texts)
	}
	return nil
}

func (p *fakePage) ExpectNoneContains(selector, unexpected string) error {
	for i, s := range p.texts(selector) {
		if strings.Contains(s, unexpected) {
			return fmt.Errorf("%s: expected no element to contain %q, element %d is %q", selector, unexpected, i, s)
		}
	}
	return nil
}

func (p *fakePage) ExpectAnyContains(selector, expected string) error {
	for _, s := range p.texts(selector) {
		if strings.Contains(s, expected) {
			return nil
		}
	}
	return fmt.Errorf("%s: expected some element to contain %q", selector, expected)
}

func (p *fakePage) AwaitResponse(urlGlob string, action func() error) (int, []byte, error) {
	pattern, err := intercept.CompilePattern(urlGlob)
	if err != nil {
		return 0, nil, err
	}
	mark := len(p.responses)
	if err := action(); err != nil {
		return 0, nil, err
	}
	for _, r := range p.responses[mark:] {
		if pattern.Match(r.url) {
			return r.status, r.body, nil
		}
	}
	return 0, nil, fmt.Errorf("no response from %s", urlGlob)
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}
