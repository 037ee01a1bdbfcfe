package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/heatkey"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/match"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/registry"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/report"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/store"
)

var (
	heatKeysFile    string
	heatSheet       string
	heatReportDir   string
	heatLinksDryRun bool
)

var heatlinksCmd = &cobra.Command{
	Use:   "heatlinks",
	Short: "Resolve composite heat score keys against the registry",
	Long: "Reads the composite Surname_SailNumber keys exported with PWA heat scores, " +
		"matches each against the unified athlete pool, records the audit CSV, and " +
		"links auto-accepted keys as a heat alias on the matched athlete.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if heatReportDir == "" {
			heatReportDir = cfg.Resolve.ReportDir
		}

		keys, err := readHeatKeys(ctx, heatKeysFile)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			zap.L().Info("no heat keys to resolve")
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		athletes, err := allAthletes(ctx, st)
		if err != nil {
			return err
		}

		resolver := heatkey.NewResolver(match.LevenshteinScorer{}, athletes)
		matches := resolver.ResolveAll(keys)

		if err := report.WriteHeatMatchesCSV(filepath.Join(heatReportDir, "heat_key_matches.csv"), matches); err != nil {
			return err
		}
		if heatLinksDryRun {
			return nil
		}

		reg := registry.New(st)
		linked := 0
		for _, m := range matches {
			if m.Status != model.StatusAutoMatched {
				continue
			}
			if err := reg.Link(ctx, m.AthleteID, model.SourcePWAHeat, m.CompositeID); err != nil {
				return eris.Wrapf(err, "heatlinks: link %s", m.CompositeID)
			}
			linked++
		}
		zap.L().Info("linked heat keys",
			zap.Int("keys", len(keys)),
			zap.Int("linked", linked),
		)
		return nil
	},
}

// readHeatKeys loads composite keys from a CSV or XLSX export.
func readHeatKeys(ctx context.Context, path string) ([]model.HeatScoreKey, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readHeatKeysXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "heatlinks: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return fetcher.ReadHeatKeysCSV(ctx, f)
}

func readHeatKeysXLSX(path string) ([]model.HeatScoreKey, error) {
	headerCh := make(chan []string, 1)
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{
		SheetName: heatSheet,
		SkipRows:  1,
		HeaderCh:  headerCh,
	})
	if err != nil {
		return nil, err
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("heatlinks: %s has no header row", path)
	}

	col := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	idCol, nameCol, sailCol := col("composite_id"), col("athlete_name"), col("sail_number")
	if idCol < 0 {
		return nil, eris.Errorf("heatlinks: %s has no composite_id column", path)
	}

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[string]bool)
	var keys []model.HeatScoreKey
	for _, row := range rows {
		id := cell(row, idCol)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, model.HeatScoreKey{
			CompositeID: id,
			AthleteName: cell(row, nameCol),
			SailNumber:  cell(row, sailCol),
		})
	}
	return keys, nil
}

// allAthletes pages through the store to load the full unified pool.
func allAthletes(ctx context.Context, st store.Store) ([]model.UnifiedAthlete, error) {
	const pageSize = 500
	var all []model.UnifiedAthlete
	for offset := 0; ; offset += pageSize {
		page, err := st.ListAthletes(ctx, store.AthleteFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func init() {
	heatlinksCmd.Flags().StringVar(&heatKeysFile, "keys", "", "heat key export (.csv or .xlsx)")
	heatlinksCmd.Flags().StringVar(&heatSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	heatlinksCmd.Flags().StringVar(&heatReportDir, "report-dir", "", "report output directory (default from config)")
	heatlinksCmd.Flags().BoolVar(&heatLinksDryRun, "dry-run", false, "resolve and report without writing links")
	_ = heatlinksCmd.MarkFlagRequired("keys")
	rootCmd.AddCommand(heatlinksCmd)
}
