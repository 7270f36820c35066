package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "accents stripped", in: "José Müller", want: "jose muller"},
		{name: "curly apostrophe", in: "Thiago’s last message", want: "thiago's last message"},
		{name: "left quote and backtick", in: "‘Amira` said", want: "'amira' said"},
		{name: "punctuation becomes space", in: "Hello,world!!What?", want: "hello world what"},
		{name: "digits dropped", in: "room 42 booked", want: "room booked"},
		{name: "whitespace collapsed and trimmed", in: "  many \t spaces\n here  ", want: "many spaces here"},
		{name: "only symbols", in: "!!!???", want: ""},
		{name: "compatibility forms", in: "ﬁne Ｆｕｌｌｗｉｄｔｈ", want: "fine fullwidth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "keeps digits", in: "Table for 4 at 8pm", want: "table for 4 at 8pm"},
		{name: "keeps plus", in: "Vikram+ wants C++", want: "vikram+ wants c++"},
		{name: "still strips accents", in: "Zoë's 2nd trip", want: "zoe's 2nd trip"},
		{name: "other symbols removed", in: "cost: $300 (approx.)", want: "cost 300 approx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDetect(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Thiago’s last message",
		"ÀÉÎÕÜ çedilla ñ",
		"ǅemal İstanbul ß ẞ",
		"ℌello ℍilbert ½ ²",
		"Ｆｕｌｌｗｉｄｔｈ ＡＢＣ １２３",
		"한국어 텍스트",
		"tabs\tand\nnewlines\r\n",
		"mixed 'quotes' “double” ‛odd′",
		"Vikram+ 2024 C++",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)

		onceDetect := NormalizeDetect(in)
		assert.Equal(t, onceDetect, NormalizeDetect(onceDetect), "NormalizeDetect not idempotent for %q", in)
	}
}
