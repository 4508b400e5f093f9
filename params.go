package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/conduit-qa/conduit-contract-tests/conduit"
	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/alessio/shellescape"
)

const (
	defaultAppURL  = "https://conduit.bondaracademy.com/"
	defaultTimeout = time.Second * 10
	passwordEnvVar = "CONDUIT_PASSWORD"
)

type commandParams struct {
	appURL         string
	apiURL         string
	credentials    conduit.Credentials
	fixturesDir    string
	filters        framework.RegexFilters
	headless       bool
	noBrowser      bool
	installBrowser bool
	browserPath    string
	timeout        time.Duration
	debug          bool
	debugAll       bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&c.appURL, "app-url", defaultAppURL, "URL of the conduit web app")
	fs.StringVar(&c.apiURL, "api-url", conduit.DefaultAPIURL, "base URL of the conduit API")
	fs.StringVar(&c.credentials.Email, "email", "", "email of the conduit test user")
	fs.StringVar(&c.credentials.Password, "password", os.Getenv(passwordEnvVar),
		"password of the conduit test user (default from $"+passwordEnvVar+")")
	fs.StringVar(&c.fixturesDir, "fixtures", "", "directory of JSON fixtures to use instead of the built-in ones")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select scenarios to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select scenarios not to run")
	fs.BoolVar(&c.headless, "headless", true, "run the browser without a window")
	fs.BoolVar(&c.noBrowser, "no-browser", false, "skip every scenario that needs a browser")
	fs.BoolVar(&c.installBrowser, "install-browser", false, "download the Playwright driver and browser before running")
	fs.StringVar(&c.browserPath, "browser-path", "", "Chromium executable to use instead of Playwright's own")
	fs.DurationVar(&c.timeout, "timeout", defaultTimeout, "time limit for each navigation, action, and assertion")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed scenarios")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all scenarios")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.appURL == "" || c.apiURL == "" {
		fmt.Fprintln(os.Stderr, "-app-url and -api-url must not be empty")
		fs.Usage()
		return false
	}
	if c.timeout <= 0 {
		fmt.Fprintln(os.Stderr, "-timeout must be positive")
		fs.Usage()
		return false
	}
	return true
}

// rerunCommand returns a shell command line that runs only the given scenarios again with the
// same settings. The password is left out, so that it only comes from the environment.
func (c *commandParams) rerunCommand(program string, failures []framework.TestResult) string {
	var b commandBuilder
	b.add(program)
	if c.appURL != defaultAppURL {
		b.add("-app-url", c.appURL)
	}
	if c.apiURL != conduit.DefaultAPIURL {
		b.add("-api-url", c.apiURL)
	}
	if c.credentials.Email != "" {
		b.add("-email", c.credentials.Email)
	}
	if c.fixturesDir != "" {
		b.add("-fixtures", c.fixturesDir)
	}
	if !c.headless {
		b.add("-headless=false")
	}
	if c.timeout != defaultTimeout {
		b.add("-timeout", c.timeout.String())
	}
	for _, f := range failures {
		b.add("-run", exactPattern(f.TestID))
	}
	return b.String()
}

// exactPattern returns a -run value that selects exactly one test.
func exactPattern(id framework.TestID) string {
	levels := make([]string, 0, len(id.Path))
	for _, name := range id.Path {
		levels = append(levels, "^"+regexp.QuoteMeta(name)+"$")
	}
	return strings.Join(levels, "/")
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
