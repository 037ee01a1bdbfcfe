package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "athlete_source_ids",
		Columns:      []string{"athlete_id", "source", "source_id"},
		ConflictKeys: []string{"source", "source_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "athlete_source_ids",
		ConflictKeys: []string{"source", "source_id"},
	}, [][]any{{1, "PWA", "42"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "athlete_source_ids",
		Columns: []string{"athlete_id", "source", "source_id"},
	}, [][]any{{1, "PWA", "42"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"athletes", `"athletes"`},
		{"stats.results", `"stats"."results"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"athlete_id", "source", "source_id"})
	assert.Equal(t, `"athlete_id", "source", "source_id"`, result)
}
