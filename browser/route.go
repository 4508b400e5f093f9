package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-qa/conduit-contract-tests/framework"
	"github.com/conduit-qa/conduit-contract-tests/intercept"

	"github.com/playwright-community/playwright-go"
)

// catchAllPattern is the only route registered with the browser itself. Every request goes to
// the intercept.Router, which applies its own rule order; Playwright's native ordering (most
// recently registered route first) never comes into play.
const catchAllPattern = "**/*"

// pageRoute adapts a Playwright route to intercept.Route.
type pageRoute struct {
	route  playwright.Route
	logger framework.Logger
}

func (r pageRoute) Request() intercept.Request {
	req := r.route.Request()
	header := make(http.Header)
	for k, v := range req.Headers() {
		header.Set(k, v)
	}
	return intercept.Request{
		Method: req.Method(),
		URL:    req.URL(),
		Header: header,
		Body:   requestBody(req, r.logger),
	}
}

type postDataReader interface {
	Method() string
	URL() string
	PostDataBuffer() ([]byte, error)
}

// requestBody returns nil if the body cannot be read; handlers then see an empty body, and
// the log says why.
func requestBody(req postDataReader, logger framework.Logger) []byte {
	body, err := req.PostDataBuffer()
	if err != nil {
		logger.Printf("Could not read body of %s %s: %s", req.Method(), req.URL(), err)
		return nil
	}
	return body
}

// fulfillHeaders flattens a header for Playwright, which takes repeated values (such as
// several Set-Cookie headers) joined by newlines.
func fulfillHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			headers[k] = strings.Join(vs, "\n")
		}
	}
	return headers
}

func responseHeader(pairs []playwright.NameValue) http.Header {
	header := make(http.Header)
	for _, p := range pairs {
		header.Add(p.Name, p.Value)
	}
	return header
}

func (r pageRoute) Fulfill(resp intercept.Response) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	return r.route.Fulfill(playwright.RouteFulfillOptions{
		Status:  playwright.Int(status),
		Headers: fulfillHeaders(resp.Header),
		Body:    resp.Body,
	})
}

func (r pageRoute) Continue() error {
	return r.route.Continue()
}

func (r pageRoute) Abort(reason string) error {
	// Playwright only accepts its own error codes; the reason is kept in the router's journal.
	return r.route.Abort("failed")
}

func (r pageRoute) Fetch(ctx context.Context) (intercept.Response, error) {
	if err := ctx.Err(); err != nil {
		return intercept.Response{}, err
	}
	resp, err := r.route.Fetch()
	if err != nil {
		return intercept.Response{}, err
	}
	defer func() { _ = resp.Dispose() }()
	body, err := resp.Body()
	if err != nil {
		return intercept.Response{}, fmt.Errorf("reading real response body: %w", err)
	}
	return intercept.Response{Status: resp.Status(), Header: responseHeader(resp.HeadersArray()), Body: body}, nil
}

// bindRouter sends every request made by the page through the router.
func bindRouter(ctx context.Context, page playwright.Page, router *intercept.Router, logger framework.Logger) error {
	return page.Route(catchAllPattern, func(route playwright.Route) {
		// Failures are reported through the router's failure callback and journal.
		_ = router.Dispatch(ctx, pageRoute{route: route, logger: logger})
	})
}
