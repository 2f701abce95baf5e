// internal/game/capital.go
package game

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OverridePolicy decides which way the opponent may overturn a capital grade.
type OverridePolicy string

const (
	// OverrideBoth lets the opponent flip either grade.
	OverrideBoth OverridePolicy = "both"
	// OverrideRescueOnly only lets the opponent turn "incorrect" into "correct".
	OverrideRescueOnly OverridePolicy = "rescue_only"
)

func (p OverridePolicy) valid() bool {
	return p == OverrideBoth || p == OverrideRescueOnly
}

// CapitalArbiter grades free-text capital answers. Matching is exact after
// normalization; near misses are left to the opponent's decision.
type CapitalArbiter struct {
	Override OverridePolicy
}

// NormalizeAnswer trims, case-folds, strips diacritics and collapses inner
// whitespace.
func NormalizeAnswer(s string) string {
	// casers and transform chains are stateful, build them per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, cases.Fold().String(strings.TrimSpace(s)))
	if err != nil {
		out = strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join(strings.Fields(out), " ")
}

// Grade reports whether answer names one of the accepted capitals. An empty
// answer is an explicit "don't know" and is always incorrect.
func (a CapitalArbiter) Grade(answer string, accepted []string) bool {
	got := NormalizeAnswer(answer)
	if got == "" {
		return false
	}
	for _, c := range accepted {
		if got == NormalizeAnswer(c) {
			return true
		}
	}
	return false
}

// Decide applies the opponent's decision to the automated grade. accepted
// confirms the grade, !accepted overturns it.
func (a CapitalArbiter) Decide(graded, accepted bool) (bool, error) {
	if accepted {
		return graded, nil
	}
	if graded && a.Override == OverrideRescueOnly {
		return false, fmt.Errorf("%w: a correct answer cannot be overturned", ErrInvalidAction)
	}
	return !graded, nil
}
