package wildcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{name: "should match exact text", pattern: "Login.works", input: "Login.works", want: true},
		{name: "should ignore case", pattern: "LOGIN.*", input: "login.Works", want: true},
		{name: "should match star across slashes", pattern: "*.adds 1/2", input: "math.sub/add.adds 1/2", want: true},
		{name: "should match single character", pattern: "test?", input: "test1", want: true},
		{name: "should require whole string", pattern: "log", input: "login", want: false},
		{name: "should support character class", pattern: "[ab]x", input: "bx", want: true},
		{name: "should treat braces literally", pattern: "{a,b}", input: "{a,b}", want: true},
		{name: "should treat braces literally not as alternation", pattern: "{a,b}", input: "a", want: false},
		{name: "should treat backslash literally", pattern: `c:\tests\*`, input: `C:\tests\a.ps1`, want: true},
		{name: "should not match malformed pattern", pattern: "[a", input: "a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Match(tt.pattern, tt.input))
		})
	}
}

func TestIntersects(t *testing.T) {
	t.Parallel()

	assert.True(t, Intersects([]string{"smo*"}, []string{"fast", "Smoke"}))
	assert.False(t, Intersects([]string{"smoke"}, nil))
	assert.False(t, Intersects(nil, []string{"smoke"}))
}
