// Package framework contains the low-level implementation of test runner infrastructure
// that is not specific to the application being tested.
//
// The general model is:
//
// 1. There is a notion of a test context which is similar to Go's *testing.T, allowing
// pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results, outside of the Go test runner.
//
// 2. Tests are arranged in a tree by calling Run on a context; the path of names from the
// root is the test's ID, which regex filters can select or exclude.
//
// 3. Each test has a capturing debug logger whose output is only shown if the caller asks
// for it, and a stack of deferred cleanup actions that run however the test ends.
//
// The domain-specific code that knows what is being tested is responsible for building a
// richer test API on top of the context.
package framework
