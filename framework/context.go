package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
	lock       sync.Mutex
}

// Context is the framework's equivalent of *testing.T. It identifies one node in the tree of
// tests, accumulates failures, and owns a debug log plus a stack of cleanup actions.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	cleanups    []func()
	hasSubtests bool
	lock        sync.Mutex
}

// Run executes the root action, which is expected to start subtests with Context.Run, and
// returns the accumulated results.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				return
			}
			var addError error
			c.lock.Lock()
			c.failed = true
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
			}
			c.lock.Unlock()
			if addError != nil {
				c.env.testLogger.TestError(c.id, addError)
			}
		}
	}()
	defer c.runCleanups()

	action(c)
}

// runCleanups runs deferred actions in reverse order. A cleanup that fails the test marks it
// failed but does not stop the remaining cleanups from running.
func (c *Context) runCleanups() {
	for {
		c.lock.Lock()
		n := len(c.cleanups)
		if n == 0 {
			c.lock.Unlock()
			return
		}
		fn := c.cleanups[n-1]
		c.cleanups = c.cleanups[:n-1]
		c.lock.Unlock()
		c.runCleanup(fn)
	}
}

func (c *Context) runCleanup(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*Context); ok {
				return
			}
			c.Errorf("unexpected panic in cleanup: %+v", r)
		}
	}()
	fn()
}

// record adds this test to the results. A node that only groups subtests is left out unless it
// failed on its own account.
func (c *Context) record() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.hasSubtests && len(c.errors) == 0 && !c.skipped {
		return
	}
	result := TestResult{TestID: c.id, Errors: c.errors, Skipped: c.skipped}
	c.env.lock.Lock()
	c.env.results.Tests = append(c.env.results.Tests, result)
	if c.failed && !c.skipped {
		c.env.results.Failures = append(c.env.results.Failures, result)
	}
	c.env.lock.Unlock()
}

func (c *Context) ID() TestID {
	return c.id
}

// Run runs a subtest with the given name. Subtests that the filter excludes are reported as
// skipped without running.
func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Plus(name)
	c.hasSubtests = true

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	c1.record()
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

// Defer schedules an action to run when this test finishes, whether it passed or failed.
// Deferred actions run in last-in, first-out order.
func (c *Context) Defer(fn func()) {
	c.lock.Lock()
	c.cleanups = append(c.cleanups, fn)
	c.lock.Unlock()
}

// Errorf records a failure without stopping the test. It may be called from goroutines other
// than the one running the test, such as request interception callbacks.
func (c *Context) Errorf(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	c.lock.Lock()
	c.failed = true
	c.errors = append(c.errors, err)
	c.lock.Unlock()
	c.env.testLogger.TestError(c.id, err)
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Failed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failed
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
