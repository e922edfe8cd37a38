// Package wildcard implements case-insensitive "-like" matching: '*' matches
// any run of characters, '?' exactly one and '[abc]' a character class.
// Unlike path globbing, '*' also matches '/'.
package wildcard

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// separator stands in for '/' so doublestar treats the input as one path segment.
const separator = "\x00"

var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	"/", separator,
)

// Match reports whether s matches pattern, ignoring case.
// Malformed patterns never match.
func Match(pattern, s string) bool {
	p := patternEscaper.Replace(strings.ToLower(pattern))
	name := strings.ReplaceAll(strings.ToLower(s), "/", separator)

	matched, err := doublestar.Match(p, name)
	if err != nil {
		return false
	}
	return matched
}

// MatchAny reports whether s matches at least one of patterns.
func MatchAny(patterns []string, s string) bool {
	for _, pattern := range patterns {
		if Match(pattern, s) {
			return true
		}
	}
	return false
}

// Intersects reports whether any value matches any pattern. Empty inputs never match.
func Intersects(patterns, values []string) bool {
	for _, v := range values {
		if MatchAny(patterns, v) {
			return true
		}
	}
	return false
}
