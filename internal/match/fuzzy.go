package match

import (
	"math"

	"github.com/adrg/strutil/metrics"
)

// Scorer computes a 0-100 similarity ratio between two normalized strings.
// Implementations must be pure: the staged matcher's determinism depends on
// scoring being side-effect free.
type Scorer interface {
	Ratio(a, b string) int
}

// LevenshteinScorer scores with the indel ratio: edit distance where a
// substitution costs two, normalized over the combined length. This matches
// the classic fuzz.ratio behaviour, so transposed letter pairs ("Sniady" /
// "Snaidy") still clear the review threshold.
type LevenshteinScorer struct{}

// indel is a Levenshtein metric with substitution charged as a delete plus
// an insert. Stateless, safe to share.
var indel = func() *metrics.Levenshtein {
	m := metrics.NewLevenshtein()
	m.CaseSensitive = true
	m.ReplaceCost = 2
	return m
}()

// Ratio returns 100 only for exact equality of non-empty strings, 0 when
// either side is empty. Symmetric in its arguments.
func (LevenshteinScorer) Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	dist := indel.Distance(a, b)
	total := len([]rune(a)) + len([]rune(b))

	score := int(math.Round(100 * (1 - float64(dist)/float64(total))))
	if score < 0 {
		return 0
	}
	// Distinct strings cap below 100 so only true equality scores 100.
	if score > 99 {
		return 99
	}
	return score
}

// bestMatch returns the index and score of the highest-ratio candidate.
// Ties keep the earliest candidate, so input order decides equal scores.
func bestMatch(scorer Scorer, query string, candidates []string) (int, int) {
	bestIdx, bestScore := -1, 0
	for i, c := range candidates {
		if s := scorer.Ratio(query, c); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx, bestScore
}
