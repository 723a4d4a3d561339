package face

import (
	"math"
	"slices"
	"sort"
)

// Expressions maps an expression name to its probability in [0,1].
type Expressions map[string]float64

// ExpressionOrder is the canonical iteration order used to break ties.
var ExpressionOrder = []string{"neutral", "happy", "sad", "angry", "fearful", "disgusted", "surprised"}

// Keys returns the expression names in canonical order: known expressions
// first, then unknown names sorted lexicographically.
func (e Expressions) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, k := range ExpressionOrder {
		if _, ok := e[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range e {
		if !slices.Contains(ExpressionOrder, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Dominant returns the expression with the strictly greatest probability.
// On a tie the first key in Keys order wins, so {happy: 0.5, sad: 0.5} yields "happy".
func (e Expressions) Dominant() (string, bool) {
	best := ""
	bestP := math.Inf(-1)
	for _, k := range e.Keys() {
		p := e[k]
		if math.IsNaN(p) {
			continue
		}
		if p > bestP {
			best, bestP = k, p
		}
	}
	return best, best != ""
}

// Probability returns the probability of name, or 0 when it is missing.
func (e Expressions) Probability(name string) float64 {
	return e[name]
}
