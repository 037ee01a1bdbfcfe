package match

import (
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// Stage selection thresholds. These govern which candidate a stage keeps;
// whether a kept candidate is auto-accepted is decided by the global review
// band below, regardless of stage.
const (
	fuzzyThreshold     = 91
	birthYearThreshold = 80
	countryThreshold   = 90

	// AutoAcceptScore is the inclusive lower bound for auto-acceptance.
	// Candidates scoring in [ReviewScore, AutoAcceptScore) go to manual
	// review instead of the link table.
	AutoAcceptScore = 90
	ReviewScore     = 80
)

// Stage labels stamped on the candidates a stage keeps, aliased from the
// model package so report rows and candidates carry the same strings.
const (
	StageExact     = model.StageExact
	StageFuzzy     = model.StageFuzzy
	StageBirthYear = model.StageBirthYear
	StageCountry   = model.StageCountry
)

// Outcome is the result of one full staged-matching run.
type Outcome struct {
	// Candidates holds every pair a stage kept, with score, stage and status.
	Candidates []model.MatchCandidate

	// LeftOnly and RightOnly are the records no stage claimed; each becomes
	// a single-source unified athlete.
	LeftOnly  []model.RawRecord
	RightOnly []model.RawRecord

	// SkippedLeft and SkippedRight count records dropped for missing a
	// display name.
	SkippedLeft  int
	SkippedRight int
}

// Matcher runs the ordered matching stages over two provider pools.
// The left pool is LiveHeats, the right pool PWA. Matching is one-to-one
// and first-match-wins: a stage removes its winners from both pools before
// the next stage runs, so input order decides equally-scoring candidates.
type Matcher struct {
	scorer Scorer
}

// NewMatcher creates a Matcher using the given scorer.
func NewMatcher(scorer Scorer) *Matcher {
	return &Matcher{scorer: scorer}
}

// Run executes the stages in fixed order: exact-or-high-fuzzy, birth-year
// window, country, unmatched remainder.
func (m *Matcher) Run(left, right []model.RawRecord) Outcome {
	log := zap.L().With(zap.String("component", "staged_matcher"))

	var out Outcome
	left, out.SkippedLeft = dropNameless(left)
	right, out.SkippedRight = dropNameless(right)
	if out.SkippedLeft+out.SkippedRight > 0 {
		log.Warn("skipped records without display name",
			zap.Int("left", out.SkippedLeft),
			zap.Int("right", out.SkippedRight),
		)
	}

	stages := []struct {
		name string
		run  func([]model.RawRecord, []model.RawRecord) ([]model.MatchCandidate, []model.RawRecord, []model.RawRecord)
	}{
		{"exact_or_fuzzy", m.stageExact},
		{"birth_year_window", m.stageBirthYear},
		{"country", m.stageCountry},
	}

	for i, st := range stages {
		var found []model.MatchCandidate
		found, left, right = st.run(left, right)
		out.Candidates = append(out.Candidates, found...)
		log.Info("matching stage complete",
			zap.Int("stage", i+1),
			zap.String("name", st.name),
			zap.Int("matched", len(found)),
			zap.Int("left_remaining", len(left)),
			zap.Int("right_remaining", len(right)),
		)
	}

	out.LeftOnly = left
	out.RightOnly = right
	return out
}

// stageExact matches on exact normalized-name equality at score 100, falling
// back to the single best fuzzy match at >= 91.
func (m *Matcher) stageExact(left, right []model.RawRecord) ([]model.MatchCandidate, []model.RawRecord, []model.RawRecord) {
	var found []model.MatchCandidate
	consumed := make(map[string]bool, len(right))
	matchedLeft := make(map[string]bool, len(left))

	for _, l := range left {
		lname := Normalize(l.Name)

		// Exact match wins immediately.
		hit := false
		for _, r := range right {
			if consumed[r.SourceID] {
				continue
			}
			if Normalize(r.Name) == lname {
				found = append(found, newCandidate(l, r, 100, StageExact))
				consumed[r.SourceID] = true
				matchedLeft[l.SourceID] = true
				hit = true
				break
			}
		}
		if hit {
			continue
		}

		if r, score, ok := m.best(lname, right, consumed); ok && score >= fuzzyThreshold {
			found = append(found, newCandidate(l, r, score, StageFuzzy))
			consumed[r.SourceID] = true
			matchedLeft[l.SourceID] = true
		}
	}

	return found, without(left, matchedLeft), without(right, consumed)
}

// stageBirthYear restricts candidates to right records whose birth year is
// within one year of the left record's, accepting the best fuzzy match >= 80.
func (m *Matcher) stageBirthYear(left, right []model.RawRecord) ([]model.MatchCandidate, []model.RawRecord, []model.RawRecord) {
	idx := NewIndex(right, ByYearOfBirth)

	var found []model.MatchCandidate
	consumed := make(map[string]bool)
	matchedLeft := make(map[string]bool)

	for _, l := range left {
		if l.YearOfBirth == 0 {
			continue
		}
		window := idx.LookupAll(
			yearKey(l.YearOfBirth-1),
			yearKey(l.YearOfBirth),
			yearKey(l.YearOfBirth+1),
		)
		if r, score, ok := m.best(Normalize(l.Name), window, consumed); ok && score >= birthYearThreshold {
			found = append(found, newCandidate(l, r, score, StageBirthYear))
			consumed[r.SourceID] = true
			matchedLeft[l.SourceID] = true
		}
	}

	return found, without(left, matchedLeft), without(right, consumed)
}

// stageCountry restricts candidates to right records sharing the left
// record's normalized country, accepting the best fuzzy match >= 90.
func (m *Matcher) stageCountry(left, right []model.RawRecord) ([]model.MatchCandidate, []model.RawRecord, []model.RawRecord) {
	idx := NewIndex(right, ByCountry)

	var found []model.MatchCandidate
	consumed := make(map[string]bool)
	matchedLeft := make(map[string]bool)

	for _, l := range left {
		country := Normalize(l.Nationality)
		if country == "" {
			continue
		}
		if r, score, ok := m.best(Normalize(l.Name), idx.Lookup(country), consumed); ok && score >= countryThreshold {
			found = append(found, newCandidate(l, r, score, StageCountry))
			consumed[r.SourceID] = true
			matchedLeft[l.SourceID] = true
		}
	}

	return found, without(left, matchedLeft), without(right, consumed)
}

// best returns the highest-scoring record among candidates not yet consumed.
// Ties keep the earliest candidate.
func (m *Matcher) best(query string, candidates []model.RawRecord, consumed map[string]bool) (model.RawRecord, int, bool) {
	var bestRec model.RawRecord
	bestScore := 0
	ok := false
	for _, r := range candidates {
		if consumed[r.SourceID] {
			continue
		}
		if s := m.scorer.Ratio(query, Normalize(r.Name)); s > bestScore {
			bestRec, bestScore, ok = r, s, true
		}
	}
	return bestRec, bestScore, ok
}

// newCandidate builds a candidate with its status from the global review
// band: >= 90 auto-accepts, [80,90) goes to manual review.
func newCandidate(l, r model.RawRecord, score int, stage string) model.MatchCandidate {
	status := model.StatusAutoMatched
	if score < AutoAcceptScore {
		status = model.StatusNeedsReview
	}
	return model.MatchCandidate{
		LeftID:    l.SourceID,
		LeftName:  l.Name,
		RightID:   r.SourceID,
		RightName: r.Name,
		Score:     score,
		Stage:     stage,
		Status:    status,
	}
}

// dropNameless filters records whose name normalizes to empty, returning the
// kept records and the skip count.
func dropNameless(pool []model.RawRecord) ([]model.RawRecord, int) {
	kept := pool[:0:0]
	skipped := 0
	for _, r := range pool {
		if Normalize(r.Name) == "" {
			skipped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, skipped
}

// without returns pool minus the records whose source id is in drop,
// preserving order.
func without(pool []model.RawRecord, drop map[string]bool) []model.RawRecord {
	if len(drop) == 0 {
		return pool
	}
	kept := make([]model.RawRecord, 0, len(pool))
	for _, r := range pool {
		if drop[r.SourceID] {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
