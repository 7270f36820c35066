// Package detect infers which known member a question is about.
//
// Detection runs in two tiers. The literal tier accepts the first name whose
// raw form appears in the question (case-insensitive) or whose normalized
// tokens appear as whole words in the normalized question. The fuzzy tier runs
// only when no name matched literally, scoring every name with PartialRatio
// and accepting the best one if it reaches the configured threshold.
package detect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/textnorm"
)

// DefaultThreshold is the minimum fuzzy score accepted when none is configured.
const DefaultThreshold = 70.0

// Match tiers, also used as metric labels.
const (
	TierLiteral = "literal"
	TierFuzzy   = "fuzzy"
	TierNone    = "none"
)

// Result describes how a detection was reached.
type Result struct {
	Name  string
	Tier  string
	Score float64
}

// Found reports whether a member was detected.
func (r Result) Found() bool {
	return r.Tier != TierNone && r.Name != ""
}

// Detector matches questions against known member names.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	threshold float64
	logger    *zap.Logger
}

// New creates a Detector. A threshold outside (0, 100] falls back to
// DefaultThreshold.
func New(threshold float64, logger *zap.Logger) *Detector {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{threshold: threshold, logger: logger}
}

// Threshold returns the fuzzy acceptance threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect returns the member the question refers to, if any.
// Names are evaluated in the order given; callers wanting stable results
// across runs should pass a stable ordering.
func (d *Detector) Detect(question string, names []string) (string, bool) {
	res := d.DetectResult(question, names)
	return res.Name, res.Found()
}

// DetectResult is Detect with the matching tier and fuzzy score exposed.
func (d *Detector) DetectResult(question string, names []string) Result {
	res := d.detect(question, names)

	detectionsTotal.WithLabelValues(res.Tier).Inc()
	d.logger.Debug("member detection",
		zap.String("tier", res.Tier),
		zap.String("member", res.Name),
		zap.Float64("score", res.Score),
		zap.Int("candidates", len(names)),
	)
	return res
}

func (d *Detector) detect(question string, names []string) Result {
	none := Result{Tier: TierNone}
	if strings.TrimSpace(question) == "" || len(names) == 0 {
		return none
	}

	lowerQ := strings.ToLower(question)
	normQ := textnorm.NormalizeDetect(question)

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if strings.Contains(lowerQ, strings.ToLower(name)) {
			return Result{Name: name, Tier: TierLiteral, Score: 100}
		}
		for _, token := range strings.Fields(textnorm.NormalizeDetect(name)) {
			if containsWord(normQ, token) {
				return Result{Name: name, Tier: TierLiteral, Score: 100}
			}
		}
	}

	if normQ == "" {
		return none
	}

	var (
		bestName  string
		bestScore float64
	)
	for _, name := range names {
		normName := textnorm.NormalizeDetect(name)
		if normName == "" {
			continue
		}

		score := 0.0
		candidates := append(strings.Fields(normName), normName)
		for _, cand := range candidates {
			if s := PartialRatio(cand, normQ); s > score {
				score = s
			}
		}

		// Strict comparison keeps the first-seen name on ties.
		if score > bestScore {
			bestScore = score
			bestName = name
		}
	}

	if bestName != "" && bestScore >= d.threshold {
		return Result{Name: bestName, Tier: TierFuzzy, Score: bestScore}
	}
	none.Score = bestScore
	return none
}

// containsWord reports whether word occurs in text delimited by non-word
// runes or the ends of text. Letters and digits are word runes; apostrophes
// and '+' are not, so "thiago" is found in "thiago's".
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		leftOK := start == 0
		if !leftOK {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			leftOK = !isWordRune(r)
		}
		rightOK := end == len(text)
		if !rightOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			rightOK = !isWordRune(r)
		}
		if leftOK && rightOK {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
