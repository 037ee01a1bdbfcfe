package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func TestIndex_ByYearOfBirth(t *testing.T) {
	pool := []model.RawRecord{
		{SourceID: "1", Name: "A", YearOfBirth: 1990},
		{SourceID: "2", Name: "B", YearOfBirth: 1991},
		{SourceID: "3", Name: "C", YearOfBirth: 1990},
		{SourceID: "4", Name: "D"}, // missing year: excluded
	}

	idx := NewIndex(pool, ByYearOfBirth)

	in1990 := idx.Lookup("1990")
	require.Len(t, in1990, 2)
	assert.Equal(t, "1", in1990[0].SourceID)
	assert.Equal(t, "3", in1990[1].SourceID)

	window := idx.LookupAll("1989", "1990", "1991")
	assert.Len(t, window, 3)

	assert.Empty(t, idx.Lookup("1985"))
}

func TestIndex_ByCountry(t *testing.T) {
	pool := []model.RawRecord{
		{SourceID: "1", Name: "A", Nationality: "Poland"},
		{SourceID: "2", Name: "B", Nationality: "poland "},
		{SourceID: "3", Name: "C"}, // missing country: excluded
	}

	idx := NewIndex(pool, ByCountry)
	assert.Len(t, idx.Lookup("POLAND"), 2)
}

func TestIndex_BySailNumber(t *testing.T) {
	pool := []model.RawRecord{
		{SourceID: "1", Name: "A", SailNumber: "POL-111"},
		{SourceID: "2", Name: "B", SailNumber: "POL-1111"},
		{SourceID: "3", Name: "C"},
	}

	idx := NewIndex(pool, BySailNumber)
	require.Len(t, idx.Lookup("POL-111"), 1)
	assert.Equal(t, "1", idx.Lookup("POL-111")[0].SourceID)
	assert.Empty(t, idx.Lookup("GER-33"))
}
