package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestConsoleOutput(t *testing.T) {
	color.NoColor = true
	var out strings.Builder
	logger := &ConsoleTestLogger{Out: &out, DebugOutputOnFailure: true}
	id := framework.TestID{Path: []string{"articles", "create article"}}
	debug := framework.CapturedOutput{{Message: "Phase: setup -> navigated"}}

	logger.TestStarted(id)
	logger.TestError(id, errors.New("line one\nline two"))
	logger.TestFinished(id, true, debug)
	logger.TestSkipped(framework.TestID{Path: []string{"mocked feed"}}, "no browser")

	text := out.String()
	assert.Contains(t, text, "[articles/create article]\n")
	assert.Contains(t, text, "  line one\n  line two\n")
	assert.Contains(t, text, "  FAILED: articles/create article\n")
	assert.Contains(t, text, "DEBUG [")
	assert.Contains(t, text, "Phase: setup -> navigated")
	assert.Contains(t, text, "  SKIPPED: mocked feed (no browser)\n")
}

func TestPrintResults(t *testing.T) {
	color.NoColor = true
	id := framework.TestID{Path: []string{"articles", "create article"}}
	results := framework.Results{
		Tests: []framework.TestResult{
			{TestID: framework.TestID{Path: []string{"mocked feed", "has title"}}},
			{TestID: id, Errors: []error{errors.New("expected 201, got 401")}},
		},
	}
	results.Failures = results.Tests[1:]

	var out strings.Builder
	PrintResults(&out, results)
	assert.Contains(t, out.String(), "FAILED SCENARIOS:")
	assert.Contains(t, out.String(), "[articles/create article]: expected 201, got 401")
	assert.Contains(t, out.String(), "Some scenarios failed: 1 passed, 1 failed, 0 skipped")

	out.Reset()
	PrintResults(&out, framework.Results{Tests: results.Tests[:1]})
	assert.Contains(t, out.String(), "All scenarios passed: 1 passed, 0 failed, 0 skipped")
}
