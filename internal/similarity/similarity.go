// Package similarity implements the pairwise text-similarity measures used
// to fill the matrices of a report.
//
// Every measure is a pure function of its two inputs: deterministic,
// symmetric and bounded to [0, 1], with identical texts scoring 1.
package similarity

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Func computes a similarity score in [0, 1] for two texts.
type Func func(a, b string) float64

// Algorithm names accepted by ByName.
const (
	AlgorithmRatio       = "ratio"
	AlgorithmLevenshtein = "levenshtein"
)

var registry = map[string]Func{
	AlgorithmRatio:       Ratio,
	AlgorithmLevenshtein: NormalizedLevenshtein,
}

// ByName returns the measure registered under name.
func ByName(name string) (Func, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown similarity algorithm %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names lists the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isJunk marks whitespace characters that may not anchor a matching block.
func isJunk(s string) bool {
	return s == " " || s == "\t" || s == "\n"
}

// Ratio returns 2*M/T where M is the number of characters in the longest
// matching blocks of a and b and T the combined length. Blocks are not
// anchored on spaces, tabs or newlines.
//
// The block search is order dependent, so the inputs are put in canonical
// order first.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcherWithJunk(splitRunes(a), splitRunes(b), false, isJunk)
	return clamp(m.Ratio())
}

// NormalizedLevenshtein returns 1 - d/max(len(a), len(b)) where d is the
// rune-level edit distance.
func NormalizedLevenshtein(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return clamp(1 - float64(d)/float64(maxLen))
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
