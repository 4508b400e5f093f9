package framework

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Filter is a function that can determine whether to run a specific test or not.
type Filter func(TestID) bool

type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

// AsFilter selects a test if it passes both lists. MustMatch patterns are applied one level at
// a time, like the -run flag of "go test": "articles/create" selects the "articles" group, then
// any scenario in it whose name matches "create". A pattern with fewer levels than the test
// name selects everything below the levels it names. MustNotMatch patterns are applied to the
// full name.
func (r RegexFilters) AsFilter(id TestID) bool {
	if r.MustNotMatch.AnyMatch(id.String()) {
		return false
	}
	return !r.MustMatch.IsDefined() || r.MustMatch.anyMatchLevels(id.Path)
}

type levelRegex struct {
	full   *regexp.Regexp
	levels []*regexp.Regexp
}

type RegexList struct {
	patterns []levelRegex
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.full.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (r *RegexList) Set(value string) error {
	full, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	p := levelRegex{full: full}
	for _, level := range strings.Split(value, "/") {
		rx, err := regexp.Compile(level)
		if err != nil {
			return fmt.Errorf("invalid regex %q in %q: %w", level, value, err)
		}
		p.levels = append(p.levels, rx)
	}
	r.patterns = append(r.patterns, p)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

// AnyMatch reports whether any pattern matches the whole string.
func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.full.MatchString(s) {
			return true
		}
	}
	return false
}

func (r RegexList) anyMatchLevels(path []string) bool {
	for _, p := range r.patterns {
		if p.matchLevels(path) {
			return true
		}
	}
	return false
}

func (p levelRegex) matchLevels(path []string) bool {
	for i, name := range path {
		if i >= len(p.levels) {
			break
		}
		if !p.levels[i].MatchString(name) {
			return false
		}
	}
	return true
}

func PrintFilterDescription(out io.Writer, filters RegexFilters) {
	if filters.MustMatch.IsDefined() || filters.MustNotMatch.IsDefined() {
		fmt.Fprintln(out, "Some scenarios will be skipped based on the filter criteria for this test run:")
		if filters.MustMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any matching %s\n", filters.MustNotMatch)
		}
		fmt.Fprintln(out)
	}
}
