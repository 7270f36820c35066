package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("", ""))
	assert.Equal(t, 100.0, Ratio("alice", "alice"))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	// LCS("abcd","abxd") = 3, indel = 2, total = 8
	assert.InDelta(t, 75.0, Ratio("abcd", "abxd"), 1e-9)
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "needle inside hay", a: "alice", b: "what did alice say", want: 100},
		{name: "argument order irrelevant", a: "what did alice say", b: "alice", want: 100},
		{name: "one substitution", a: "alise", b: "what did alice say", want: 80},
		{name: "equal length", a: "abcd", b: "abxd", want: 75},
		{name: "empty needle", a: "", b: "abc", want: 0},
		{name: "both empty", a: "", b: "", want: 100},
		{name: "disjoint", a: "xyz", b: "abcdef", want: 0},
		{name: "multibyte runes", a: "zoë", b: "ask zoë now", want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PartialRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestPartialRatio_EdgeWindows(t *testing.T) {
	// "smith" only partially overhangs the end of the hay; the clipped
	// window "smit" shares four runes.
	got := PartialRatio("smith", "ask smit")
	assert.InDelta(t, 100*8.0/9.0, got, 1e-9)
}
