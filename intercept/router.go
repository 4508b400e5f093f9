package intercept

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/conduit-qa/conduit-contract-tests/framework"
)

// HandlerError describes a handler that failed, or that returned without resolving its route.
// Either way the request it was handling is lost, so the owner of the router must treat this
// as fatal.
type HandlerError struct {
	Pattern string
	Method  string
	URL     string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("route handler for %q failed on %s %s: %s", e.Pattern, e.Method, e.URL, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

type rule struct {
	pattern Pattern
	handler Handler
}

// Router holds an ordered list of interception rules. For each outbound request it consults
// the rules in registration order and hands the request to the first one whose pattern
// matches; later rules are not consulted. A request that matches no rule is continued to the
// real network unmodified.
type Router struct {
	rules     []rule
	journal   *Journal
	logger    framework.Logger
	onFailure func(error)
	lastSeq   int64
	lock      sync.RWMutex
}

// NewRouter creates a Router with no rules. Messages about each interception go to the logger.
func NewRouter(logger framework.Logger) *Router {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Router{
		journal: NewJournal(),
		logger:  logger,
	}
}

// OnFailure sets a function to be called with a *HandlerError whenever a handler fails. It is
// called on the goroutine that is dispatching the request.
func (r *Router) OnFailure(fn func(error)) {
	r.lock.Lock()
	r.onFailure = fn
	r.lock.Unlock()
}

// Register adds a rule. It fails if the pattern cannot be compiled or the handler is nil.
func (r *Router) Register(pattern string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("nil handler for URL pattern %q", pattern)
	}
	p, err := CompilePattern(pattern)
	if err != nil {
		return err
	}
	r.lock.Lock()
	r.rules = append(r.rules, rule{pattern: p, handler: handler})
	r.lock.Unlock()
	r.logger.Printf("Registered route %q", pattern)
	return nil
}

// Journal returns the record of every request this router has dispatched.
func (r *Router) Journal() *Journal {
	return r.journal
}

func (r *Router) match(url string) (rule, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, rl := range r.rules {
		if rl.pattern.Match(url) {
			return rl, true
		}
	}
	return rule{}, false
}

// Dispatch resolves one intercepted request. It returns a *HandlerError if the matching
// handler failed; in that case the route has been aborted if the handler had not already
// resolved it.
func (r *Router) Dispatch(ctx context.Context, route Route) error {
	seq := atomic.AddInt64(&r.lastSeq, 1)
	req := route.Request()
	entry := Entry{Seq: seq, Method: req.Method, URL: req.URL}

	rl, ok := r.match(req.URL)
	if !ok {
		entry.Action = ActionContinued
		err := route.Continue()
		if err != nil {
			entry.Err = err
			r.logger.Printf("Could not pass through %s %s: %s", req.Method, req.URL, err)
		}
		r.journal.record(entry)
		return err
	}

	entry.Pattern = rl.pattern.String()
	guarded := &onceRoute{target: route}
	err := runHandler(ctx, rl.handler, guarded)
	if err == nil && guarded.resolution() == "" {
		err = ErrUnresolved
	}
	if err != nil {
		herr := &HandlerError{Pattern: entry.Pattern, Method: req.Method, URL: req.URL, Err: err}
		if guarded.resolution() == "" {
			_ = guarded.Abort("failed")
		}
		entry.Action = guarded.resolution()
		entry.Err = herr
		r.journal.record(entry)
		r.logger.Printf("%s", herr)
		r.lock.RLock()
		onFailure := r.onFailure
		r.lock.RUnlock()
		if onFailure != nil {
			onFailure(herr)
		}
		return herr
	}

	entry.Action = guarded.resolution()
	r.journal.record(entry)
	r.logger.Printf("%s %s %s by route %q", req.Method, req.URL, entry.Action, entry.Pattern)
	return nil
}

// runHandler turns a panic in h into an error, so that the route is still resolved and its
// journal entry is still recorded.
func runHandler(ctx context.Context, h Handler, route Route) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return h(ctx, route)
}
