package dbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipFloat(t *testing.T) {
	tests := []struct {
		in  string
		end int
	}{
		{"", 0},
		{"abc", 0},
		{"-", 0},
		{"12", 2},
		{"-12.5|", 5},
		{"+0.25", 5},
		{"1e3,", 3},
		{"1.5E-2)", 6},
		{"3e", 1},
		{"3e+", 1},
		{"7.", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.end, skipFloat(tt.in, 0), "input %q", tt.in)
	}
}

func TestSkipHelpersStayInBounds(t *testing.T) {
	assert.Equal(t, 3, skipSpaces("   ", 0))
	assert.Equal(t, 3, skipNonSpaces("abc", 0))
	assert.Equal(t, 3, skipUntil("abc", 0, ':'))
	assert.Equal(t, 1, skipUntil("a:c", 0, ':'))
	assert.Equal(t, byte(0), at("abc", 3))
	assert.Equal(t, byte('c'), at("abc", 2))
}
