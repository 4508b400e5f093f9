package intercept

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
)

// Pattern is a wildcard matcher for absolute request URLs.
//
// "**" matches any run of characters including "/", "*" matches any run of characters other
// than "/", "?" matches a single character other than "/", and "{a,b}" matches either
// alternative. So "**/api/tags" matches "https://example.com/api/tags", and
// "**/api/articles*" matches "https://example.com/api/articles?limit=10" but not
// "https://example.com/api/articles/some-slug".
type Pattern struct {
	raw     string
	matcher glob.Glob
}

// CompilePattern parses a wildcard URL pattern.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, errors.New("empty URL pattern")
	}
	g, err := glob.Compile(raw, '/')
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid URL pattern %q: %w", raw, err)
	}
	return Pattern{raw: raw, matcher: g}, nil
}

// MustCompilePattern is like CompilePattern but panics on error. It is meant for patterns
// that are constants in the program.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the URL matches the pattern. The zero Pattern matches nothing.
func (p Pattern) Match(url string) bool {
	return p.matcher != nil && p.matcher.Match(url)
}

func (p Pattern) String() string {
	return p.raw
}
