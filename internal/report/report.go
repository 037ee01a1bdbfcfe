// Package report writes the matching audit artifacts: a CSV of every
// candidate pair, an XLSX workbook for the manual review pass, and CSV
// listings of the composite-key and division-merge outcomes.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

var candidateColumns = []string{
	"liveheats_id",
	"liveheats_name",
	"pwa_id",
	"pwa_name",
	"score",
	"stage",
	"status",
}

// WriteCandidatesCSV writes every candidate pair, one row per pair.
func WriteCandidatesCSV(path string, candidates []model.MatchCandidate) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(candidateColumns); err != nil {
		return eris.Wrap(err, "report: write candidates header")
	}
	for _, c := range candidates {
		row := []string{
			c.LeftID,
			c.LeftName,
			c.RightID,
			c.RightName,
			fmt.Sprintf("%d", c.Score),
			c.Stage,
			string(c.Status),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "report: write candidates row")
		}
	}
	return nil
}

// WriteUnmatchedCSV writes the per-source listings of records that left the
// pools without a partner.
func WriteUnmatchedCSV(path string, leftOnly, rightOnly []model.RawRecord) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"source", "source_id", "name", "year_of_birth", "nationality", "sail_number"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write unmatched header")
	}
	for _, rec := range append(leftOnly, rightOnly...) {
		yob := ""
		if rec.YearOfBirth != 0 {
			yob = fmt.Sprintf("%d", rec.YearOfBirth)
		}
		row := []string{string(rec.Source), rec.SourceID, rec.Name, yob, rec.Nationality, rec.SailNumber}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "report: write unmatched row")
		}
	}
	return nil
}

// WriteReviewWorkbook writes the needs_review candidates to an XLSX workbook
// with a blank decision column for the reviewer. Row order follows the
// candidate list. Returns the number of rows written.
func WriteReviewWorkbook(path string, candidates []model.MatchCandidate) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Needs Review")
	if err != nil {
		return 0, eris.Wrap(err, "report: add review sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"liveheats_id", "liveheats_name", "pwa_id", "pwa_name", "score", "decision"} {
		header.AddCell().Value = col
	}

	n := 0
	for _, c := range candidates {
		if c.Status != model.StatusNeedsReview {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().Value = c.LeftID
		row.AddCell().Value = c.LeftName
		row.AddCell().Value = c.RightID
		row.AddCell().Value = c.RightName
		row.AddCell().SetInt(c.Score)
		row.AddCell() // decision, left blank
		n++
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "report: create report dir")
	}
	if err := file.Save(path); err != nil {
		return 0, eris.Wrap(err, "report: save review workbook")
	}
	return n, nil
}

// WriteHeatMatchesCSV writes the composite-key resolution outcomes.
func WriteHeatMatchesCSV(path string, matches []model.HeatKeyMatch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"composite_id", "athlete_name", "sail_number", "athlete_id", "matched_name", "score", "stage", "status"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write heat matches header")
	}
	for _, m := range matches {
		athleteID := ""
		if m.AthleteID != 0 {
			athleteID = fmt.Sprintf("%d", m.AthleteID)
		}
		row := []string{
			m.CompositeID,
			m.AthleteName,
			m.SailNumber,
			athleteID,
			m.MatchedName,
			fmt.Sprintf("%d", m.Score),
			m.Stage,
			string(m.Status),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "report: write heat matches row")
		}
	}
	return nil
}

// WriteMergeCSV writes which source was kept for each contested division.
func WriteMergeCSV(path string, merged model.MergedResultSet) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"division_key", "kept_source", "dropped_rows"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "report: write merge header")
	}
	for _, key := range sortedKeys(merged.KeptDivisions) {
		row := []string{key, string(merged.KeptDivisions[key]), fmt.Sprintf("%d", merged.DroppedRows[key])}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "report: write merge row")
		}
	}
	return nil
}

func sortedKeys(m map[string]model.Source) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create report dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: create %s", path)
	}
	return f, nil
}
