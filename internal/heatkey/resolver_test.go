package heatkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/match"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func testAthletes() []model.UnifiedAthlete {
	return []model.UnifiedAthlete{
		{ID: 1, PrimaryName: "Adam Warchol", PWAName: "Adam Warchol", PWASailNumber: "POL-111"},
		{ID: 2, PrimaryName: "Justyna Sniady", PWAName: "Justyna Snaidy", PWASailNumber: "POL-1111"},
		{ID: 3, PrimaryName: "Marc Pare", PWAName: "Marc Pare", PWASailNumber: "E-334"},
		{ID: 4, PrimaryName: "Lina Erpenstein"}, // no sail number
	}
}

func newTestResolver() *Resolver {
	return NewResolver(&match.LevenshteinScorer{}, testAthletes())
}

func TestResolve_ExactCompositeKey(t *testing.T) {
	r := newTestResolver()

	m := r.Resolve(model.HeatScoreKey{
		CompositeID: "Warchol_POL-111",
		AthleteName: "Adam Warchol",
		SailNumber:  "POL-111",
	})

	assert.Equal(t, int64(1), m.AthleteID)
	assert.Equal(t, 100, m.Score)
	assert.Equal(t, model.HeatStageExactKey, m.Stage)
	assert.Equal(t, model.StatusAutoMatched, m.Status)
}

func TestResolve_SailExactSurnameFuzzy(t *testing.T) {
	r := newTestResolver()

	// Heat rows spell the surname Sniady, the PWA profile says Snaidy.
	m := r.Resolve(model.HeatScoreKey{
		CompositeID: "Sniady_POL-1111",
		AthleteName: "Justyna Sniady",
		SailNumber:  "POL-1111",
	})

	assert.Equal(t, int64(2), m.AthleteID)
	assert.Equal(t, model.HeatStageSailFuzzy, m.Stage)
	assert.Equal(t, model.StatusAutoMatched, m.Status)
	assert.GreaterOrEqual(t, m.Score, 80)
}

func TestResolve_NameFallbackAuto(t *testing.T) {
	r := newTestResolver()

	// Wrong sail number, so only the full-name fallback can place her.
	m := r.Resolve(model.HeatScoreKey{
		CompositeID: "Erpenstein_GER-999",
		AthleteName: "Lina Erpenstein",
		SailNumber:  "GER-999",
	})

	assert.Equal(t, int64(4), m.AthleteID)
	assert.Equal(t, model.HeatStageNameFuzzy, m.Stage)
	assert.Equal(t, model.StatusAutoMatched, m.Status)
	assert.Equal(t, 100, m.Score)
}

func TestResolve_WeakScoreNeedsReview(t *testing.T) {
	r := newTestResolver()

	m := r.Resolve(model.HeatScoreKey{
		CompositeID: "Parsons_GBR-77",
		AthleteName: "Kit Parsons",
		SailNumber:  "GBR-77",
	})

	assert.Equal(t, model.StatusNeedsReview, m.Status)
	assert.Equal(t, model.HeatStageNameFuzzy, m.Stage)
	assert.Greater(t, m.Score, 0)
	assert.Less(t, m.Score, 80)
}

func TestResolve_NoNameNoSail(t *testing.T) {
	r := newTestResolver()

	m := r.Resolve(model.HeatScoreKey{CompositeID: ""})

	assert.Equal(t, model.StatusNoMatch, m.Status)
	assert.Zero(t, m.AthleteID)
	assert.Zero(t, m.Score)
}

func TestResolve_CompositeIDOnly(t *testing.T) {
	r := newTestResolver()

	// Some heat exports only carry the composite id itself.
	m := r.Resolve(model.HeatScoreKey{CompositeID: "Pare_E-334"})

	assert.Equal(t, int64(3), m.AthleteID)
	assert.Equal(t, model.HeatStageExactKey, m.Stage)
	assert.Equal(t, 100, m.Score)
}

func TestResolveAll_StatusCounts(t *testing.T) {
	r := newTestResolver()

	matches := r.ResolveAll([]model.HeatScoreKey{
		{CompositeID: "Warchol_POL-111", AthleteName: "Adam Warchol", SailNumber: "POL-111"},
		{CompositeID: "Unknown_XXX-0", AthleteName: "", SailNumber: "XXX-0"},
	})

	require.Len(t, matches, 2)
	assert.Equal(t, model.StatusAutoMatched, matches[0].Status)
}
