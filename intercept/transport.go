package intercept

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// AbortError is returned by Transport when a route was aborted.
type AbortError struct {
	URL    string
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("request to %s was aborted by interception (%s)", e.URL, e.Reason)
}

// Transport is an http.RoundTripper that sends every request through a Router before it
// reaches the network. It lets the same interception rules that a browser page uses be
// applied to ordinary Go HTTP clients.
type Transport struct {
	Router *Router

	// Base performs real network requests. If nil, http.DefaultTransport is used.
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		body = data
	}
	ex := &transportRoute{req: req, body: body, base: t.base()}

	if err := t.Router.Dispatch(req.Context(), ex); err != nil {
		if ex.response != nil {
			_ = ex.response.Body.Close()
		}
		return nil, err
	}
	switch {
	case ex.response != nil:
		return ex.response, nil
	case ex.continued:
		return ex.base.RoundTrip(ex.outbound(req.Context()))
	default:
		return nil, &AbortError{URL: req.URL.String(), Reason: ex.abortReason}
	}
}

type transportRoute struct {
	req         *http.Request
	body        []byte
	base        http.RoundTripper
	response    *http.Response
	continued   bool
	abortReason string
}

func (r *transportRoute) Request() Request {
	return Request{
		Method: r.req.Method,
		URL:    r.req.URL.String(),
		Header: r.req.Header.Clone(),
		Body:   append([]byte(nil), r.body...),
	}
}

func (r *transportRoute) outbound(ctx context.Context) *http.Request {
	out := r.req.Clone(ctx)
	if r.body != nil {
		out.Body = io.NopCloser(bytes.NewReader(r.body))
		out.ContentLength = int64(len(r.body))
	}
	return out
}

func (r *transportRoute) Fulfill(resp Response) error {
	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	r.response = &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       r.req,
	}
	return nil
}

func (r *transportRoute) Continue() error {
	r.continued = true
	return nil
}

func (r *transportRoute) Abort(reason string) error {
	r.abortReason = reason
	return nil
}

func (r *transportRoute) Fetch(ctx context.Context) (Response, error) {
	resp, err := r.base.RoundTrip(r.outbound(ctx))
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading real response body: %w", err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: data}, nil
}
