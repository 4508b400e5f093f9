package intercept

import (
	"context"
	"fmt"
	"net/http"
)

// FulfillJSON returns a handler that answers every request with status 200 and the given body,
// exactly as provided, without contacting the network.
func FulfillJSON(body []byte) Handler {
	data := append([]byte(nil), body...)
	return func(_ context.Context, route Route) error {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return route.Fulfill(Response{
			Status: http.StatusOK,
			Header: header,
			Body:   append([]byte(nil), data...),
		})
	}
}

// FetchThenTransform returns a handler that sends the request to the real network, passes the
// response body through fn, and fulfills the route with the result. The real status and
// headers are kept, except for headers that describe the encoding of the original body.
//
// A failed fetch, a non-2xx status, or an error from fn makes the handler fail; nothing is
// retried.
func FetchThenTransform(fn func([]byte) ([]byte, error)) Handler {
	return func(ctx context.Context, route Route) error {
		resp, err := route.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetching real response: %w", err)
		}
		if resp.Status < 200 || resp.Status >= 300 {
			return fmt.Errorf("real response had status %d, will not transform it", resp.Status)
		}
		body, err := fn(resp.Body)
		if err != nil {
			return fmt.Errorf("transforming response body: %w", err)
		}
		header := resp.Header.Clone()
		if header == nil {
			header = make(http.Header)
		}
		header.Del("Content-Length")
		header.Del("Content-Encoding")
		header.Del("Transfer-Encoding")
		return route.Fulfill(Response{Status: resp.Status, Header: header, Body: body})
	}
}

// Passthrough returns a handler that continues the request unmodified. Registering it ahead
// of broader rules exempts matching URLs from them.
func Passthrough() Handler {
	return func(_ context.Context, route Route) error {
		return route.Continue()
	}
}
