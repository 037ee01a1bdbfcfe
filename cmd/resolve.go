package main

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/match"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/registry"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/report"
)

var (
	resolveDataDir   string
	resolveDecisions string
	resolveReportDir string
	resolveDryRun    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Match the two athlete pools and sync the identity registry",
	Long: "Runs the staged matcher over the Live Heats and PWA athlete pools, applies " +
		"manual review decisions, writes the audit reports, and syncs accepted " +
		"profiles into the registry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("run_id", uuid.New().String()))

		if resolveDecisions == "" {
			resolveDecisions = cfg.Resolve.DecisionsCSV
		}
		if resolveReportDir == "" {
			resolveReportDir = cfg.Resolve.ReportDir
		}

		liveheats, err := readJSON[[]model.RawRecord](filepath.Join(resolveDataDir, "liveheats_athletes.json"))
		if err != nil {
			return err
		}
		pwa, err := readJSON[[]model.RawRecord](filepath.Join(resolveDataDir, "pwa_athletes.json"))
		if err != nil {
			return err
		}

		matcher := match.NewMatcher(match.LevenshteinScorer{})
		outcome := matcher.Run(liveheats, pwa)

		candidates := outcome.Candidates
		if resolveDecisions != "" {
			if _, err := os.Stat(resolveDecisions); err == nil {
				decisions, err := fetcher.ReadDecisionsFile(ctx, resolveDecisions)
				if err != nil {
					return err
				}
				candidates = match.ApplyDecisions(candidates, decisions)
				log.Info("applied manual decisions", zap.Int("decisions", len(decisions)))
			} else {
				log.Info("no decision file, borderline candidates stay pending",
					zap.String("path", resolveDecisions),
				)
			}
		}

		if err := writeResolveReports(candidates, outcome); err != nil {
			return err
		}

		if resolveDryRun {
			log.Info("dry run, registry untouched")
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		profiles := registry.BuildProfiles(candidates, liveheats, pwa)
		ids, err := registry.New(st).Sync(ctx, profiles)
		if err != nil {
			return eris.Wrap(err, "resolve: sync registry")
		}

		log.Info("registry synced",
			zap.Int("profiles", len(profiles)),
			zap.Int("athletes", len(ids)),
			zap.Int("pending_review", len(match.Pending(candidates))),
		)
		return nil
	},
}

func writeResolveReports(candidates []model.MatchCandidate, outcome match.Outcome) error {
	if err := report.WriteCandidatesCSV(filepath.Join(resolveReportDir, "match_candidates.csv"), candidates); err != nil {
		return err
	}
	if err := report.WriteUnmatchedCSV(filepath.Join(resolveReportDir, "unmatched.csv"), outcome.LeftOnly, outcome.RightOnly); err != nil {
		return err
	}

	n, err := report.WriteReviewWorkbook(filepath.Join(resolveReportDir, "needs_review.xlsx"), candidates)
	if err != nil {
		return err
	}
	zap.L().Info("wrote reports",
		zap.String("dir", resolveReportDir),
		zap.Int("candidates", len(candidates)),
		zap.Int("needs_review", n),
	)
	return nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveDataDir, "data", "data", "directory with fetched athlete pools")
	resolveCmd.Flags().StringVar(&resolveDecisions, "decisions", "", "manual decision CSV (default from config)")
	resolveCmd.Flags().StringVar(&resolveReportDir, "report-dir", "", "report output directory (default from config)")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "write reports without touching the registry")
	rootCmd.AddCommand(resolveCmd)
}
