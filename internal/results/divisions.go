// Package results reconciles per-division result sets published by both
// providers into a single deduplicated corpus.
package results

import (
	"sort"

	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// MergeDivisions resolves duplicate divisions between two result pools.
// For every (event, division) key present in both pools the pool with
// strictly more rows is kept whole and the other pool's rows for that
// division are discarded entirely; there is no row-level interleaving.
// Divisions present in only one pool pass through unchanged.
//
// On an exact row-count tie the first pool wins; callers pass PWA first.
func MergeDivisions(first, second []model.ResultRow) model.MergedResultSet {
	log := zap.L().With(zap.String("component", "division_merge"))

	firstByDiv := groupByDivision(first)
	secondByDiv := groupByDivision(second)

	merged := model.MergedResultSet{
		KeptDivisions: make(map[string]model.Source),
		DroppedRows:   make(map[string]int),
	}

	// First pool in input order; contested divisions decided by row count.
	seen := make(map[string]bool)
	for _, row := range first {
		key := row.DivisionKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		ours := firstByDiv[key]
		theirs, contested := secondByDiv[key]
		if contested && len(theirs) > len(ours) {
			merged.Rows = append(merged.Rows, theirs...)
			merged.KeptDivisions[key] = theirs[0].Source
			merged.DroppedRows[key] = len(ours)
			log.Info("contested division resolved",
				zap.String("division", key),
				zap.String("kept_source", string(theirs[0].Source)),
				zap.Int("kept_rows", len(theirs)),
				zap.Int("dropped_rows", len(ours)),
			)
			continue
		}

		merged.Rows = append(merged.Rows, ours...)
		merged.KeptDivisions[key] = ours[0].Source
		if contested {
			merged.DroppedRows[key] = len(theirs)
			log.Info("contested division resolved",
				zap.String("division", key),
				zap.String("kept_source", string(ours[0].Source)),
				zap.Int("kept_rows", len(ours)),
				zap.Int("dropped_rows", len(theirs)),
			)
		}
	}

	// Divisions only the second pool published.
	for _, row := range second {
		key := row.DivisionKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged.Rows = append(merged.Rows, secondByDiv[key]...)
		merged.KeptDivisions[key] = row.Source
	}

	if len(merged.DroppedRows) == 0 {
		merged.DroppedRows = nil
	}
	return merged
}

// groupByDivision buckets rows by division key, preserving input order
// within each bucket.
func groupByDivision(rows []model.ResultRow) map[string][]model.ResultRow {
	byDiv := make(map[string][]model.ResultRow)
	for _, r := range rows {
		key := r.DivisionKey()
		byDiv[key] = append(byDiv[key], r)
	}
	return byDiv
}

// SortByPlacement orders rows by event, division and placement for stable
// report output.
func SortByPlacement(rows []model.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EventID != rows[j].EventID {
			return rows[i].EventID < rows[j].EventID
		}
		if rows[i].Division != rows[j].Division {
			return rows[i].Division < rows[j].Division
		}
		return rows[i].Placement < rows[j].Placement
	})
}
