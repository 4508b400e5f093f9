package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/conduit-qa/conduit-contract-tests/browser"
	"github.com/conduit-qa/conduit-contract-tests/fixtures"
	"github.com/conduit-qa/conduit-contract-tests/framework"
	"github.com/conduit-qa/conduit-contract-tests/intercept"
	"github.com/conduit-qa/conduit-contract-tests/scenarios"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	var params commandParams
	if !params.Read(args) {
		return 1
	}

	store := fixtures.Embedded()
	if params.fixturesDir != "" {
		store = fixtures.Dir(params.fixturesDir)
	}

	env := scenarios.Environment{
		AppURL:       params.appURL,
		APIURL:       params.apiURL,
		Credentials:  params.credentials,
		Fixtures:     store,
		APITransport: http.DefaultTransport,
		StepTimeout:  params.timeout,
	}

	if !params.noBrowser {
		engine, err := browser.Launch(browser.Config{
			Headless:       params.headless,
			Timeout:        params.timeout,
			ExecutablePath: params.browserPath,
			InstallDriver:  params.installBrowser,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not start the browser: %s\n", err)
			fmt.Fprintln(os.Stderr, "Use -install-browser to download it, or -no-browser to run only the API scenarios")
			return 1
		}
		defer func() {
			if err := engine.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing the browser: %s\n", err)
			}
		}()
		env.Pages = func(ctx context.Context, router *intercept.Router, logger framework.Logger) (scenarios.Page, error) {
			session, err := engine.NewSession(ctx, router, logger)
			if err != nil {
				return nil, err
			}
			return session, nil
		}
	}

	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, params.filters)

	fmt.Printf("Running conduit scenarios against %s\n\n", params.appURL)

	testLogger := &ConsoleTestLogger{
		Out:                  os.Stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := scenarios.RunTestSuite(env, params.filters.AsFilter, testLogger)

	fmt.Println()
	PrintResults(os.Stdout, results)
	if !results.OK() {
		fmt.Println()
		fmt.Println("To run only the failed scenarios again:")
		fmt.Printf("  %s\n", params.rerunCommand(args[0], results.Failures))
		return 1
	}
	return 0
}
