package results

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func divisionRows(source model.Source, eventID, division string, n int) []model.ResultRow {
	rows := make([]model.ResultRow, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, model.ResultRow{
			Source:          source,
			EventID:         eventID,
			Division:        division,
			Placement:       i,
			SourceAthleteID: fmt.Sprintf("%s-%d", source, i),
		})
	}
	return rows
}

func TestMergeDivisions_LargerSetWins(t *testing.T) {
	pwa := divisionRows(model.SourcePWA, "gran-canaria-2023", "Men Wave", 12)
	lh := divisionRows(model.SourceLiveHeats, "gran-canaria-2023", "Men Wave", 20)

	merged := MergeDivisions(pwa, lh)

	require.Len(t, merged.Rows, 20)
	for _, row := range merged.Rows {
		assert.Equal(t, model.SourceLiveHeats, row.Source)
	}
	assert.Equal(t, model.SourceLiveHeats, merged.KeptDivisions["gran-canaria-2023|Men Wave"])
	assert.Equal(t, 12, merged.DroppedRows["gran-canaria-2023|Men Wave"])
}

func TestMergeDivisions_FirstPoolWinsWhenLarger(t *testing.T) {
	pwa := divisionRows(model.SourcePWA, "sylt-2023", "Women Wave", 15)
	lh := divisionRows(model.SourceLiveHeats, "sylt-2023", "Women Wave", 9)

	merged := MergeDivisions(pwa, lh)

	require.Len(t, merged.Rows, 15)
	assert.Equal(t, model.SourcePWA, merged.KeptDivisions["sylt-2023|Women Wave"])
	assert.Equal(t, 9, merged.DroppedRows["sylt-2023|Women Wave"])
}

func TestMergeDivisions_TieKeepsFirstPool(t *testing.T) {
	pwa := divisionRows(model.SourcePWA, "chile-2024", "Men Wave", 10)
	lh := divisionRows(model.SourceLiveHeats, "chile-2024", "Men Wave", 10)

	merged := MergeDivisions(pwa, lh)

	require.Len(t, merged.Rows, 10)
	assert.Equal(t, model.SourcePWA, merged.KeptDivisions["chile-2024|Men Wave"])
}

func TestMergeDivisions_UncontestedPassThrough(t *testing.T) {
	pwa := divisionRows(model.SourcePWA, "tenerife-2023", "Men Wave", 8)
	lh := divisionRows(model.SourceLiveHeats, "omaezaki-2023", "Women Wave", 6)

	merged := MergeDivisions(pwa, lh)

	require.Len(t, merged.Rows, 14)
	assert.Equal(t, model.SourcePWA, merged.KeptDivisions["tenerife-2023|Men Wave"])
	assert.Equal(t, model.SourceLiveHeats, merged.KeptDivisions["omaezaki-2023|Women Wave"])
	assert.Nil(t, merged.DroppedRows)
}

func TestMergeDivisions_SameEventDifferentDivisions(t *testing.T) {
	pwa := append(
		divisionRows(model.SourcePWA, "gran-canaria-2023", "Men Wave", 5),
		divisionRows(model.SourcePWA, "gran-canaria-2023", "Women Wave", 4)...,
	)
	lh := divisionRows(model.SourceLiveHeats, "gran-canaria-2023", "Men Wave", 7)

	merged := MergeDivisions(pwa, lh)

	// Men Wave contested (LiveHeats wins), Women Wave uncontested.
	require.Len(t, merged.Rows, 11)
	assert.Equal(t, model.SourceLiveHeats, merged.KeptDivisions["gran-canaria-2023|Men Wave"])
	assert.Equal(t, model.SourcePWA, merged.KeptDivisions["gran-canaria-2023|Women Wave"])
}

func TestMergeDivisions_EmptyPools(t *testing.T) {
	merged := MergeDivisions(nil, nil)
	assert.Empty(t, merged.Rows)
	assert.Empty(t, merged.KeptDivisions)
}

func TestSortByPlacement(t *testing.T) {
	rows := []model.ResultRow{
		{EventID: "b", Division: "Men", Placement: 2},
		{EventID: "a", Division: "Men", Placement: 1},
		{EventID: "b", Division: "Men", Placement: 1},
		{EventID: "a", Division: "Women", Placement: 1},
	}

	SortByPlacement(rows)

	assert.Equal(t, "a", rows[0].EventID)
	assert.Equal(t, "Men", rows[0].Division)
	assert.Equal(t, "a", rows[1].EventID)
	assert.Equal(t, "Women", rows[1].Division)
	assert.Equal(t, 1, rows[2].Placement)
	assert.Equal(t, 2, rows[3].Placement)
}
