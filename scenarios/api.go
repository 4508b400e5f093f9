package scenarios

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/fixtures"
	"github.com/conduit-qa/conduit-contract-tests/framework"
	"github.com/conduit-qa/conduit-contract-tests/intercept"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultStepTimeout = time.Second * 10

// Page is the part of a browser page that the scenarios drive. Selectors and accessible names
// are contracts with the conduit web app's markup.
type Page interface {
	Authenticate(token string) error
	Goto(url string) error
	ClickText(text string) error
	ClickButton(name string) error
	Fill(textbox, value string) error
	ExpectText(selector, expected string) error
	ExpectFirstContains(selector, expected string) error
	ExpectAnyContains(selector, expected string) error
	ExpectNoneContains(selector, unexpected string) error
	AwaitResponse(urlGlob string, action func() error) (status int, body []byte, err error)
	Close() error
}

// PageFactory opens a new isolated page whose network traffic goes through the router.
type PageFactory func(ctx context.Context, router *intercept.Router, logger framework.Logger) (Page, error)

// Environment is everything the scenarios need to know about the system under test. It is
// read-only once the suite starts.
type Environment struct {
	// AppURL is the web app's entry point.
	AppURL string

	// APIURL is the root of the REST API used for direct calls.
	APIURL string

	Credentials conduit.Credentials

	Fixtures *fixtures.Store

	// Pages opens browser pages. If nil, scenarios that need a browser are skipped.
	Pages PageFactory

	// APITransport carries direct API calls. If nil, http.DefaultTransport is used.
	APITransport http.RoundTripper

	// StepTimeout bounds each awaited step that is not already bounded by the browser.
	StepTimeout time.Duration
}

// T represents a scenario or a group of scenarios in the conduit test suite.
//
// It implements the same basic functionality as Go's testing.T, on top of the lower-level
// framework package, so assert and require can be used with a *T. It also owns everything a
// scenario touches: its interception router, its browser page, its API clients, and the
// articles it creates, all of which are discarded or deleted when the scenario ends. Nothing
// is shared between scenarios.
//
// Methods that drive the page or call the API fail the scenario immediately if anything goes
// wrong, to keep scenarios free of error-handling boilerplate.
type T struct {
	context *framework.Context
	env     *Environment
	ctx     context.Context
	cancel  context.CancelFunc
	phase   Phase
	router  *intercept.Router
	page    Page
	api     *conduit.Client
	routed  *conduit.Client
	deleted map[string]bool
	lock    sync.Mutex
}

func newTestScope(c *framework.Context, env *Environment) *T {
	ctx, cancel := context.WithCancel(context.Background())
	return &T{
		context: c,
		env:     env,
		ctx:     ctx,
		cancel:  cancel,
		deleted: make(map[string]bool),
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
// It is safe to call from other goroutines.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
//
// The subtest gets a new T with no rules, no page, and no clients.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		t1 := newTestScope(c, t.env)
		c.Defer(t1.finish) // deferred first, so it runs after every other cleanup
		action(t1)
	})
}

// Defer schedules an action to run when the scenario ends, whether it passed or failed.
func (t *T) Defer(fn func()) {
	t.context.Defer(fn)
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Context returns a context that is cancelled when the scenario ends.
func (t *T) Context() context.Context {
	return t.ctx
}

// Phase returns the scenario's current phase.
func (t *T) Phase() Phase {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.phase
}

func (t *T) moveTo(next Phase) {
	t.lock.Lock()
	current := t.phase
	ok := current.CanMoveTo(next)
	if ok {
		t.phase = next
	}
	t.lock.Unlock()
	if !ok {
		require.Fail(t, "scenario is out of order", "cannot go from %s to %s", current, next)
	}
	if current != next {
		t.Debug("Phase: %s -> %s", current, next)
	}
}

func (t *T) finish() {
	if t.page != nil {
		if err := t.page.Close(); err != nil {
			t.Debug("Error closing page: %s", err)
		}
	}
	t.cancel()
	final := PhaseDone
	if t.context.Failed() {
		final = PhaseFailed
	}
	t.lock.Lock()
	from := t.phase
	t.phase = final
	t.lock.Unlock()
	t.Debug("Phase: %s -> %s", from, final)
}

func (t *T) stepContext() (context.Context, context.CancelFunc) {
	timeout := t.env.StepTimeout
	if timeout == 0 {
		timeout = defaultStepTimeout
	}
	return context.WithTimeout(t.ctx, timeout)
}

// Router returns the scenario's interception router, creating it on first use. A handler
// failure fails the scenario.
func (t *T) Router() *intercept.Router {
	if t.router == nil {
		t.router = intercept.NewRouter(framework.LoggerWithPrefix(t.context.DebugLogger(), "[intercept] "))
		t.router.OnFailure(func(err error) {
			t.Errorf("%s", err)
		})
	}
	return t.router
}

// Intercept registers an interception rule. Rules can only be added during setup, before the
// scenario navigates.
func (t *T) Intercept(pattern string, handler intercept.Handler) {
	if t.Phase() != PhaseSetup {
		require.Fail(t, "interception rules must be registered before navigating",
			"tried to register %q in phase %s", pattern, t.Phase())
	}
	require.NoError(t, t.Router().Register(pattern, handler), "could not register route")
}

// LoadFixture loads a fixture, failing the scenario if it is missing or malformed.
func (t *T) LoadFixture(name string) fixtures.Fixture {
	f, err := t.env.Fixtures.Load(name)
	require.NoError(t, err, "could not load fixture")
	return f
}

// RequireBrowser skips the scenario if no browser is available.
func (t *T) RequireBrowser() {
	if t.env.Pages == nil {
		t.context.SkipWithReason("no browser is available for this run")
	}
}

// RequireCredentials skips the scenario if no login credentials were configured.
func (t *T) RequireCredentials() {
	if t.env.Credentials.Email == "" || t.env.Credentials.Password == "" {
		t.context.SkipWithReason("no conduit login credentials were configured")
	}
}

func (t *T) openPage() Page {
	if t.page == nil {
		t.RequireBrowser()
		page, err := t.env.Pages(t.ctx, t.Router(), framework.LoggerWithPrefix(t.context.DebugLogger(), "[page] "))
		require.NoError(t, err, "could not open a browser page")
		t.page = page
	}
	return t.page
}

// Authenticate makes the page logged in with the token from the next navigation on.
func (t *T) Authenticate(token conduit.AccessToken) {
	require.NoError(t, t.openPage().Authenticate(string(token)), "could not authenticate page")
}

// Navigate opens the web app's entry point. This ends the setup phase.
func (t *T) Navigate() {
	page := t.openPage()
	t.moveTo(PhaseNavigated)
	require.NoError(t, page.Goto(t.env.AppURL), "could not navigate to %s", t.env.AppURL)
}

func (t *T) navigatedPage(what string) Page {
	if t.page == nil || t.Phase() == PhaseSetup {
		require.Fail(t, "scenario is out of order", "tried to %s before navigating", what)
	}
	return t.page
}

func (t *T) act(what string, fn func(Page) error) {
	page := t.navigatedPage(what)
	t.moveTo(PhaseActing)
	require.NoError(t, fn(page), "could not %s", what)
}

func (t *T) ClickText(text string) {
	t.act(fmt.Sprintf("click %q", text), func(p Page) error { return p.ClickText(text) })
}

func (t *T) ClickButton(name string) {
	t.act(fmt.Sprintf("click button %q", name), func(p Page) error { return p.ClickButton(name) })
}

func (t *T) Fill(textbox, value string) {
	t.act(fmt.Sprintf("fill text box %q", textbox), func(p Page) error { return p.Fill(textbox, value) })
}

// AwaitResponse performs a page action and waits for the response from a URL matching the
// glob. It returns the response status and body.
func (t *T) AwaitResponse(urlGlob string, action func(Page) error) (int, []byte) {
	page := t.navigatedPage("wait for a response")
	t.moveTo(PhaseActing)
	status, body, err := page.AwaitResponse(urlGlob, func() error { return action(page) })
	require.NoError(t, err, "did not get a response from %s", urlGlob)
	return status, body
}

func (t *T) expect(what string, fn func(Page) error) {
	page := t.navigatedPage("check " + what)
	t.moveTo(PhaseAsserted)
	require.NoError(t, fn(page), what)
}

// ExpectText asserts that the element has exactly the expected text.
func (t *T) ExpectText(selector, expected string) {
	t.expect(fmt.Sprintf("%s should have text %q", selector, expected),
		func(p Page) error { return p.ExpectText(selector, expected) })
}

// ExpectFirstContains asserts that the first matching element contains the text.
func (t *T) ExpectFirstContains(selector, expected string) {
	t.expect(fmt.Sprintf("first %s should contain %q", selector, expected),
		func(p Page) error { return p.ExpectFirstContains(selector, expected) })
}

// ExpectAnyContains asserts that some matching element contains the text.
func (t *T) ExpectAnyContains(selector, expected string) {
	t.expect(fmt.Sprintf("some %s should contain %q", selector, expected),
		func(p Page) error { return p.ExpectAnyContains(selector, expected) })
}

// ExpectNoneContains asserts that no matching element contains the text.
func (t *T) ExpectNoneContains(selector, unexpected string) {
	t.expect(fmt.Sprintf("no %s should contain %q", selector, unexpected),
		func(p Page) error { return p.ExpectNoneContains(selector, unexpected) })
}

// Check records the outcome of an assertion made with assert or require against data that did
// not come from the page, such as an API response.
func (t *T) Check(expected, actual interface{}, what string) {
	if t.Phase() == PhaseSetup {
		require.Fail(t, "scenario is out of order", "tried to check %s during setup", what)
	}
	t.moveTo(PhaseAsserted)
	require.Equal(t, expected, actual, what)
}

// AwaitInterception waits until the router has handled a request whose URL matches the pattern,
// and returns the journal entry for it.
func (t *T) AwaitInterception(pattern string) intercept.Entry {
	p, err := intercept.CompilePattern(pattern)
	require.NoError(t, err)
	ctx, cancel := t.stepContext()
	defer cancel()
	entry, err := t.Router().Journal().Await(ctx, intercept.URLMatches(p))
	if err != nil {
		for _, e := range t.Router().Journal().Pending() {
			t.Debug("Still pending: %s", e)
		}
	}
	require.NoError(t, err, "waiting for a request to %s", pattern)
	return entry
}

func (t *T) apiConfig(transport http.RoundTripper, prefix string) conduit.ClientConfig {
	return conduit.ClientConfig{
		BaseURL:   t.env.APIURL,
		Timeout:   t.env.StepTimeout,
		Transport: transport,
		Logger:    framework.LoggerWithPrefix(t.context.DebugLogger(), prefix),
	}
}

// API returns a client for direct API calls that bypass interception.
func (t *T) API() *conduit.Client {
	if t.api == nil {
		t.api = conduit.NewClient(t.apiConfig(t.env.APITransport, "[api] "))
	}
	return t.api
}

// RoutedAPI returns a client whose calls go through the scenario's interception rules, the way
// the page's requests do. Getting it ends the setup phase, since rules can no longer change.
func (t *T) RoutedAPI() *conduit.Client {
	if t.routed == nil {
		transport := &intercept.Transport{Router: t.Router(), Base: t.env.APITransport}
		t.routed = conduit.NewClient(t.apiConfig(transport, "[routed api] "))
		t.moveTo(PhaseNavigated)
	}
	return t.routed
}

// apiStep moves to the acting phase, unless the scenario is still being set up; direct calls
// made before navigating are part of the setup.
func (t *T) apiStep() {
	if t.Phase() != PhaseSetup {
		t.moveTo(PhaseActing)
	}
}

// Login logs in with the configured credentials and returns the access token. The token is
// only returned, never stored, so that each later call receives it explicitly.
func (t *T) Login() conduit.AccessToken {
	t.RequireCredentials()
	t.apiStep()
	ctx, cancel := t.stepContext()
	defer cancel()
	token, err := t.API().Login(ctx, t.env.Credentials)
	require.NoError(t, err)
	return token
}

// CreateArticle creates an article through the API, requiring status 201. The article is
// deleted when the scenario ends unless the scenario deletes it first.
func (t *T) CreateArticle(token conduit.AccessToken, article conduit.NewArticle) conduit.Article {
	t.apiStep()
	ctx, cancel := t.stepContext()
	defer cancel()
	created, err := t.API().CreateArticle(ctx, token, article)
	require.NoError(t, err)
	t.CleanUpArticle(token, created.Slug)
	return created
}

// CleanUpArticle makes sure an article that the scenario created some other way, such as
// through the web app, is deleted when the scenario ends.
func (t *T) CleanUpArticle(token conduit.AccessToken, slug string) {
	t.Defer(func() {
		t.lock.Lock()
		done := t.deleted[slug]
		t.lock.Unlock()
		if done {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultStepTimeout)
		defer cancel()
		err := t.API().DeleteArticle(ctx, token, slug)
		var se *conduit.StatusError
		if errors.As(err, &se) && se.Actual == http.StatusNotFound {
			t.Debug("Article %q was already gone", slug)
			return
		}
		assert.NoError(t, err, "could not clean up article %q", slug)
	})
}

// DeleteArticle deletes an article through the API, requiring status 204.
func (t *T) DeleteArticle(token conduit.AccessToken, slug string) {
	t.apiStep()
	ctx, cancel := t.stepContext()
	defer cancel()
	require.NoError(t, t.API().DeleteArticle(ctx, token, slug))
	t.lock.Lock()
	t.deleted[slug] = true
	t.lock.Unlock()
}

// Fetch performs a GET through the given client and returns the body.
func (t *T) Fetch(client *conduit.Client, path string) []byte {
	t.apiStep()
	ctx, cancel := t.stepContext()
	defer cancel()
	data, err := client.Fetch(ctx, path)
	require.NoError(t, err)
	return data
}

// Articles fetches a page of the global feed through the given client.
func (t *T) Articles(client *conduit.Client, q conduit.ArticleQuery) conduit.ArticleList {
	t.apiStep()
	ctx, cancel := t.stepContext()
	defer cancel()
	list, err := client.Articles(ctx, q)
	require.NoError(t, err)
	return list
}

// Skip skips the rest of the scenario.
func (t *T) Skip(reason string) {
	t.context.SkipWithReason(reason)
}
