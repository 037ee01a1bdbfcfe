package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/source"
)

var (
	fetchDivisions []string
	fetchEvents    []string
	fetchPWAIDs    []string
	fetchOutDir    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch athlete pools and results from both providers",
	Long: "Scrapes PWA athlete profiles and event results, queries Live Heats divisions " +
		"over GraphQL, and writes the raw pools as JSON for the resolve step.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := os.MkdirAll(fetchOutDir, 0o755); err != nil {
			return eris.Wrap(err, "fetch: create output dir")
		}

		f := newFetcher()
		pwa := source.NewPWAClient(f, cfg.Fetch.PWABaseURL)
		lh := source.NewLiveHeatsClient(f, cfg.Fetch.LiveHeatsURL)

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return fetchPWA(gctx, pwa)
		})
		g.Go(func() error {
			return fetchLiveHeats(gctx, lh)
		})

		return g.Wait()
	},
}

func fetchPWA(ctx context.Context, pwa *source.PWAClient) error {
	ids := fetchPWAIDs
	if len(ids) == 0 {
		var err error
		ids, err = pwa.ListAthleteIDs(ctx)
		if err != nil {
			return err
		}
	}

	athletes, err := pwa.Athletes(ctx, ids)
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(fetchOutDir, "pwa_athletes.json"), athletes); err != nil {
		return err
	}

	var results []model.ResultRow
	for _, eventID := range fetchEvents {
		rows, err := pwa.EventResults(ctx, eventID)
		if err != nil {
			return err
		}
		results = append(results, rows...)
	}
	return writeJSON(filepath.Join(fetchOutDir, "pwa_results.json"), results)
}

func fetchLiveHeats(ctx context.Context, lh *source.LiveHeatsClient) error {
	seen := make(map[string]bool)
	var athletes []model.RawRecord
	var results []model.ResultRow

	for _, spec := range fetchDivisions {
		eventID, divisionID, err := splitDivisionSpec(spec)
		if err != nil {
			return err
		}

		records, err := lh.DivisionAthletes(ctx, divisionID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if seen[rec.SourceID] {
				continue
			}
			seen[rec.SourceID] = true
			athletes = append(athletes, rec)
		}

		rows, err := lh.DivisionRankings(ctx, eventID, divisionID)
		if err != nil {
			return err
		}
		results = append(results, rows...)
	}

	if err := writeJSON(filepath.Join(fetchOutDir, "liveheats_athletes.json"), athletes); err != nil {
		return err
	}
	return writeJSON(filepath.Join(fetchOutDir, "liveheats_results.json"), results)
}

// splitDivisionSpec parses an "eventID:divisionID" pair.
func splitDivisionSpec(spec string) (eventID, divisionID string, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", eris.Errorf("fetch: invalid division spec %q, want eventID:divisionID", spec)
	}
	return parts[0], parts[1], nil
}

// newFetcher builds the shared HTTP fetcher from config.
func newFetcher() *fetcher.HTTPFetcher {
	limiters := fetcher.DefaultRateLimiters()
	if cfg.Fetch.RequestsPerSec > 0 {
		limit := rate.Limit(cfg.Fetch.RequestsPerSec)
		for host := range limiters {
			limiters[host] = rate.NewLimiter(limit, max(int(cfg.Fetch.RequestsPerSec), 1))
		}
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Fetch.MaxRetries,
		RateLimiters: limiters,
	})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	zap.L().Info("wrote file", zap.String("path", path))
	return nil
}

func readJSON[T any](path string) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, eris.Wrapf(err, "read %s", path)
	}
	defer f.Close() //nolint:errcheck

	v, err := fetcher.DecodeJSONObject[T](f)
	if err != nil {
		return zero, eris.Wrapf(err, "parse %s", path)
	}
	return *v, nil
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchDivisions, "divisions", nil, "Live Heats divisions as eventID:divisionID pairs")
	fetchCmd.Flags().StringSliceVar(&fetchEvents, "events", nil, "PWA event ids to scrape results for")
	fetchCmd.Flags().StringSliceVar(&fetchPWAIDs, "pwa-ids", nil, "PWA athlete ids (default: walk the sailor listing)")
	fetchCmd.Flags().StringVar(&fetchOutDir, "out", "data", "output directory for raw pools")
	rootCmd.AddCommand(fetchCmd)
}
