// Package browser runs the contract tests' pages in a real browser through Playwright.
//
// Each scenario gets its own browser context, so cookies, local storage, and routes never leak
// from one scenario to another. All of a page's network traffic is handed to an
// intercept.Router.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/conduit-qa/conduit-contract-tests/framework"
	"github.com/conduit-qa/conduit-contract-tests/intercept"

	"github.com/playwright-community/playwright-go"
)

const defaultTimeout = time.Second * 10

// Config holds the parameters for Launch.
type Config struct {
	Headless bool

	// Timeout bounds every navigation, action, and assertion. Defaults to 10 seconds.
	Timeout time.Duration

	// ExecutablePath optionally points at a Chromium build to use instead of Playwright's own.
	ExecutablePath string

	// InstallDriver downloads the Playwright driver and browsers before launching.
	InstallDriver bool
}

// Engine owns the Playwright driver and one browser process.
type Engine struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

// Launch starts Playwright and a Chromium browser.
func Launch(config Config) (*Engine, error) {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.InstallDriver {
		if err := playwright.Install(); err != nil {
			return nil, fmt.Errorf("installing playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
	}
	if config.ExecutablePath != "" {
		opts.ExecutablePath = playwright.String(config.ExecutablePath)
	}
	b, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	return &Engine{pw: pw, browser: b, timeout: config.Timeout}, nil
}

// Close shuts down the browser and the driver.
func (e *Engine) Close() error {
	if err := e.browser.Close(); err != nil {
		_ = e.pw.Stop()
		return err
	}
	return e.pw.Stop()
}

// NewSession opens an isolated browser context with one page whose traffic goes through the
// router. The session must be closed by the caller.
func (e *Engine) NewSession(ctx context.Context, router *intercept.Router, logger framework.Logger) (*Session, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	bc, err := e.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	page, err := bc.NewPage()
	if err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	timeoutMS := float64(e.timeout / time.Millisecond)
	page.SetDefaultTimeout(timeoutMS)
	page.SetDefaultNavigationTimeout(timeoutMS)

	if err := bindRouter(ctx, page, router, logger); err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("installing request interception: %w", err)
	}
	return &Session{
		context:    bc,
		page:       page,
		assertions: playwright.NewPlaywrightAssertions(timeoutMS),
		logger:     logger,
	}, nil
}
