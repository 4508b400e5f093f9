package intercept

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

var (
	// ErrAlreadyResolved is returned when a handler tries to resolve a route a second time.
	ErrAlreadyResolved = errors.New("route was already resolved")

	// ErrUnresolved is reported when a handler returns without fulfilling, continuing, or
	// aborting its route.
	ErrUnresolved = errors.New("handler returned without resolving the route")
)

// Request describes an outbound request that has been intercepted.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is either a response that a handler supplies to fulfill a route, or a real
// response that was captured with Route.Fetch. A captured response only lives for the
// duration of one handler call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Route is the mutable context for one intercepted request. A handler must resolve it exactly
// once, by calling Fulfill, Continue, or Abort. Fetch sends the request to the real network
// without resolving the route, so that a handler can base its response on the real one.
type Route interface {
	Request() Request
	Fulfill(Response) error
	Continue() error
	Abort(reason string) error
	Fetch(ctx context.Context) (Response, error)
}

// Handler decides what happens to a request that matched a rule.
type Handler func(ctx context.Context, route Route) error

// Action is how a route was resolved.
type Action string

const (
	ActionFulfilled Action = "fulfilled"
	ActionContinued Action = "continued"
	ActionAborted   Action = "aborted"
)

// onceRoute wraps a backend route and enforces exactly-once resolution.
type onceRoute struct {
	target Route
	action Action
	lock   sync.Mutex
}

func (r *onceRoute) Request() Request {
	return r.target.Request()
}

func (r *onceRoute) resolve(action Action, fn func() error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.action != "" {
		return fmt.Errorf("cannot %s: %w (already %s)", verb(action), ErrAlreadyResolved, r.action)
	}
	r.action = action
	return fn()
}

func (r *onceRoute) Fulfill(resp Response) error {
	return r.resolve(ActionFulfilled, func() error { return r.target.Fulfill(resp) })
}

func (r *onceRoute) Continue() error {
	return r.resolve(ActionContinued, r.target.Continue)
}

func (r *onceRoute) Abort(reason string) error {
	return r.resolve(ActionAborted, func() error { return r.target.Abort(reason) })
}

func (r *onceRoute) Fetch(ctx context.Context) (Response, error) {
	r.lock.Lock()
	resolved := r.action
	r.lock.Unlock()
	if resolved != "" {
		return Response{}, fmt.Errorf("cannot fetch: %w (already %s)", ErrAlreadyResolved, resolved)
	}
	return r.target.Fetch(ctx)
}

func (r *onceRoute) resolution() Action {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.action
}

func verb(a Action) string {
	switch a {
	case ActionFulfilled:
		return "fulfill"
	case ActionContinued:
		return "continue"
	default:
		return "abort"
	}
}
