package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// ReadDecisionsCSV parses a manual match decision file. Expected columns are
// liveheats_id, pwa_id, decision; header order is taken from the header row,
// so extra columns (reviewer, notes) are ignored. Rows whose decision column
// is empty or unrecognised are skipped.
func ReadDecisionsCSV(ctx context.Context, r io.Reader) ([]model.ManualDecision, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var header []string
	var decisions []model.ManualDecision
	for row := range rowCh {
		if header == nil {
			header = <-headerCh
		}
		d, ok := decisionFromRow(header, row)
		if !ok {
			continue
		}
		decisions = append(decisions, d)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "decisions: read csv")
		}
	}
	return decisions, nil
}

// ReadDecisionsFile opens and parses a decision CSV from disk.
func ReadDecisionsFile(ctx context.Context, path string) ([]model.ManualDecision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "decisions: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadDecisionsCSV(ctx, f)
}

func decisionFromRow(header, row []string) (model.ManualDecision, bool) {
	var d model.ManualDecision
	for i, col := range header {
		if i >= len(row) {
			break
		}
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "liveheats_id", "left_id":
			d.LeftID = row[i]
		case "pwa_id", "right_id":
			d.RightID = row[i]
		case "decision":
			d.Decision = model.Decision(strings.ToLower(strings.TrimSpace(row[i])))
		}
	}
	if d.LeftID == "" || d.RightID == "" {
		return d, false
	}
	if d.Decision != model.DecisionAccept && d.Decision != model.DecisionReject {
		return d, false
	}
	return d, true
}

// ReadHeatKeysCSV parses exported heat score rows into distinct composite
// keys. Expected columns are composite_id (required), athlete_name and
// sail_number (optional). Duplicate composite ids keep the first row seen.
func ReadHeatKeysCSV(ctx context.Context, r io.Reader) ([]model.HeatScoreKey, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var header []string
	seen := make(map[string]bool)
	var keys []model.HeatScoreKey
	for row := range rowCh {
		if header == nil {
			header = <-headerCh
		}
		k, ok := heatKeyFromRow(header, row)
		if !ok || seen[k.CompositeID] {
			continue
		}
		seen[k.CompositeID] = true
		keys = append(keys, k)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "heatkeys: read csv")
		}
	}
	return keys, nil
}

func heatKeyFromRow(header, row []string) (model.HeatScoreKey, bool) {
	var k model.HeatScoreKey
	for i, col := range header {
		if i >= len(row) {
			break
		}
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "composite_id", "athlete_key":
			k.CompositeID = row[i]
		case "athlete_name", "name":
			k.AthleteName = row[i]
		case "sail_number", "sail_no":
			k.SailNumber = row[i]
		}
	}
	return k, k.CompositeID != ""
}
