package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func TestDecodeJSONObject_AthletePool(t *testing.T) {
	input := `[
		{"source":"Live Heats","source_id":"ath-77","name":"Maciek Warchol","year_of_birth":1990,"nationality":"Poland"},
		{"source":"Live Heats","source_id":"ath-78","name":"Justyna Sniady"}
	]`

	pool, err := DecodeJSONObject[[]model.RawRecord](strings.NewReader(input))
	require.NoError(t, err)

	records := *pool
	require.Len(t, records, 2)
	assert.Equal(t, model.SourceLiveHeats, records[0].Source)
	assert.Equal(t, "Maciek Warchol", records[0].Name)
	assert.Equal(t, 1990, records[0].YearOfBirth)
	assert.Zero(t, records[1].YearOfBirth)
}

func TestDecodeJSONObject_Malformed(t *testing.T) {
	_, err := DecodeJSONObject[[]model.RawRecord](strings.NewReader(`[{"source":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}
