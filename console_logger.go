package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/conduit-qa/conduit-contract-tests/framework"

	"github.com/fatih/color"
)

var (
	failedColor  = color.New(color.FgRed, color.Bold)
	skippedColor = color.New(color.FgYellow)
	passedColor  = color.New(color.FgGreen)
	debugColor   = color.New(color.Faint)
)

type ConsoleTestLogger struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Fprintf(c.Out, "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(c.Out, "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput framework.CapturedOutput) {
	if failed {
		failedColor.Fprintf(c.Out, "  FAILED: %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		var buf strings.Builder
		debugOutput.Dump(&buf, "    DEBUG ")
		debugColor.Fprint(c.Out, buf.String())
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		skippedColor.Fprintf(c.Out, "  SKIPPED: %s\n", id)
	} else {
		skippedColor.Fprintf(c.Out, "  SKIPPED: %s (%s)\n", id, reason)
	}
}

// PrintResults writes a summary of the run, listing each failed scenario with its errors.
func PrintResults(out io.Writer, results framework.Results) {
	passed, failed, skipped := results.Counts()
	if len(results.Failures) > 0 {
		failedColor.Fprintln(out, "FAILED SCENARIOS:")
		for _, f := range results.Failures {
			fmt.Fprintf(out, "  %s\n", f.TestID)
			for _, err := range f.Errors {
				fmt.Fprintf(out, "    %s\n", framework.TestFailure{ID: f.TestID, Err: err})
			}
		}
		fmt.Fprintln(out)
	}
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped)
	if results.OK() {
		passedColor.Fprintln(out, "All scenarios passed: "+summary)
	} else {
		failedColor.Fprintln(out, "Some scenarios failed: "+summary)
	}
}
