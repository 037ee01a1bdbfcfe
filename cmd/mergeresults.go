package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/report"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/results"
)

var (
	mergeDataDir   string
	mergeReportDir string
	mergeDryRun    bool
)

var mergeresultsCmd = &cobra.Command{
	Use:   "mergeresults",
	Short: "Merge the two providers' result sets division by division",
	Long: "Loads the fetched result rows from both providers, keeps the richer row set " +
		"for each contested event division, and replaces the stored result corpus.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if mergeReportDir == "" {
			mergeReportDir = cfg.Resolve.ReportDir
		}

		liveheats, err := readJSON[[]model.ResultRow](filepath.Join(mergeDataDir, "liveheats_results.json"))
		if err != nil {
			return err
		}
		pwa, err := readJSON[[]model.ResultRow](filepath.Join(mergeDataDir, "pwa_results.json"))
		if err != nil {
			return err
		}

		merged := results.MergeDivisions(pwa, liveheats)
		results.SortByPlacement(merged.Rows)

		if err := report.WriteMergeCSV(filepath.Join(mergeReportDir, "division_merge.csv"), merged); err != nil {
			return err
		}
		if mergeDryRun {
			zap.L().Info("dry run, stored results untouched")
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ReplaceResults(ctx, merged.Rows); err != nil {
			return eris.Wrap(err, "mergeresults: replace results")
		}

		zap.L().Info("results merged",
			zap.Int("rows", len(merged.Rows)),
			zap.Int("divisions", len(merged.KeptDivisions)),
		)
		return nil
	},
}

func init() {
	mergeresultsCmd.Flags().StringVar(&mergeDataDir, "data", "data", "directory with fetched result rows")
	mergeresultsCmd.Flags().StringVar(&mergeReportDir, "report-dir", "", "report output directory (default from config)")
	mergeresultsCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "merge and report without writing to the store")
	rootCmd.AddCommand(mergeresultsCmd)
}
