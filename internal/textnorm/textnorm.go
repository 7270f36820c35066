// Package textnorm canonicalizes free text for fuzzy and substring comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// quoteReplacer folds curly, backtick and prime quote variants to a straight apostrophe.
var quoteReplacer = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"‛", "'", // single high-reversed-9
	"`", "'",
	"´", "'", // acute accent
	"′", "'", // prime
)

// Normalize strips accents, folds quotes, keeps only letters, spaces and
// apostrophes, lowercases and trims. Whitespace runs collapse to one space.
func Normalize(text string) string {
	return normalize(text, false)
}

// NormalizeDetect is Normalize but also preserves digits and '+', which
// member names sometimes carry ("Layla 2", "Vikram+").
func NormalizeDetect(text string) string {
	return normalize(text, true)
}

func normalize(text string, keepDigits bool) string {
	if text == "" {
		return ""
	}

	// Lowercasing can expose new decomposable runes, so decompose on both sides.
	s := stripMarks(text)
	s = strings.ToLower(s)
	s = stripMarks(s)
	s = quoteReplacer.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), r == '\'':
			b.WriteRune(r)
		case keepDigits && (unicode.IsDigit(r) || r == '+'):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripMarks applies compatibility decomposition and drops nonspacing marks.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
