// Package heatkey resolves the composite "Surname_SailNumber" athlete keys
// that PWA heat score rows carry instead of profile ids.
package heatkey

import (
	"strings"

	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/match"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// autoScore is the minimum similarity for an automatic heat key match.
// Weaker non-zero scores are queued for review instead.
const autoScore = 80

// Resolver matches composite heat keys against the unified athlete pool.
type Resolver struct {
	scorer   match.Scorer
	athletes []model.UnifiedAthlete
	byKey    map[string]int
	bySail   map[string][]int
	log      *zap.Logger
}

// NewResolver indexes the athlete pool by constructed composite key and by
// sail number. Athletes without a sail number only participate in the
// full-name fallback.
func NewResolver(scorer match.Scorer, athletes []model.UnifiedAthlete) *Resolver {
	r := &Resolver{
		scorer:   scorer,
		athletes: athletes,
		byKey:    make(map[string]int),
		bySail:   make(map[string][]int),
		log:      zap.L().With(zap.String("component", "heatkey")),
	}
	for i, a := range athletes {
		sail := match.NormalizeCompact(a.PWASailNumber)
		if sail == "" {
			continue
		}
		key := athleteSurname(a) + "_" + sail
		if _, taken := r.byKey[key]; !taken {
			r.byKey[key] = i
		}
		r.bySail[sail] = append(r.bySail[sail], i)
	}
	return r
}

// Resolve tries 3 stages in order and returns on the first hit: exact
// constructed key, exact sail number with fuzzy surname, then fuzzy full
// name across the PWA and primary name fields.
func (r *Resolver) Resolve(key model.HeatScoreKey) model.HeatKeyMatch {
	m := model.HeatKeyMatch{
		CompositeID: key.CompositeID,
		AthleteName: key.AthleteName,
		SailNumber:  key.SailNumber,
		Status:      model.StatusNoMatch,
	}

	surname, sail, fullName := queryParts(key)

	// Stage 1: exact constructed key.
	if sail != "" && surname != "" {
		if i, ok := r.byKey[surname+"_"+sail]; ok {
			return r.hit(m, i, 100, model.HeatStageExactKey, model.StatusAutoMatched)
		}
	}

	// Stage 2: exact sail number, fuzzy surname.
	if sail != "" {
		bestIdx, bestScore := -1, 0
		for _, i := range r.bySail[sail] {
			if score := r.scorer.Ratio(surname, athleteSurname(r.athletes[i])); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx >= 0 && bestScore >= autoScore {
			return r.hit(m, bestIdx, bestScore, model.HeatStageSailFuzzy, model.StatusAutoMatched)
		}
	}

	// Stage 3: fuzzy full name, PWA name field tried before primary name.
	if fullName != "" {
		bestIdx, bestScore := -1, 0
		query := match.Normalize(fullName)
		for i, a := range r.athletes {
			for _, name := range []string{a.PWAName, a.PrimaryName} {
				if name == "" {
					continue
				}
				if score := r.scorer.Ratio(query, match.Normalize(name)); score > bestScore {
					bestIdx, bestScore = i, score
				}
			}
		}
		if bestIdx >= 0 && bestScore > 0 {
			status := model.StatusNeedsReview
			if bestScore >= autoScore {
				status = model.StatusAutoMatched
			}
			return r.hit(m, bestIdx, bestScore, model.HeatStageNameFuzzy, status)
		}
	}

	return m
}

// ResolveAll resolves every key and logs per-status totals.
func (r *Resolver) ResolveAll(keys []model.HeatScoreKey) []model.HeatKeyMatch {
	matches := make([]model.HeatKeyMatch, 0, len(keys))
	counts := map[model.MatchStatus]int{}
	for _, key := range keys {
		m := r.Resolve(key)
		counts[m.Status]++
		matches = append(matches, m)
	}
	r.log.Info("heatkey: resolution complete",
		zap.Int("keys", len(keys)),
		zap.Int("auto_matched", counts[model.StatusAutoMatched]),
		zap.Int("needs_review", counts[model.StatusNeedsReview]),
		zap.Int("no_match", counts[model.StatusNoMatch]),
	)
	return matches
}

func (r *Resolver) hit(m model.HeatKeyMatch, idx, score int, stage string, status model.MatchStatus) model.HeatKeyMatch {
	a := r.athletes[idx]
	m.AthleteID = a.ID
	m.MatchedName = a.PrimaryName
	m.Score = score
	m.Stage = stage
	m.Status = status
	return m
}

// queryParts derives the normalized surname, sail number and display name
// for a heat key, falling back to the composite id's own segments when the
// row carried no separate name or sail columns.
func queryParts(key model.HeatScoreKey) (surname, sail, fullName string) {
	namePart, sailPart := splitComposite(key.CompositeID)

	fullName = key.AthleteName
	if fullName == "" {
		fullName = namePart
	}
	surname = match.Surname(match.Normalize(fullName))

	rawSail := key.SailNumber
	if rawSail == "" {
		rawSail = sailPart
	}
	sail = match.NormalizeCompact(rawSail)
	return surname, sail, fullName
}

// splitComposite cuts "Warchol_POL-111" at the last underscore.
func splitComposite(id string) (namePart, sailPart string) {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

func athleteSurname(a model.UnifiedAthlete) string {
	name := a.PWAName
	if name == "" {
		name = a.PrimaryName
	}
	return match.Surname(match.Normalize(name))
}
