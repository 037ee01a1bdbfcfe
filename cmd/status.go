package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry and result counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		athletes, err := allAthletes(ctx, st)
		if err != nil {
			return err
		}
		results, err := st.ListResults(ctx, store.ResultFilter{})
		if err != nil {
			return err
		}

		if len(athletes) == 0 {
			zap.L().Info("registry is empty, run 'resolve' first")
			return nil
		}

		formatStatus(os.Stdout, athletes, results)
		return nil
	},
}

func formatStatus(out io.Writer, athletes []model.UnifiedAthlete, results []model.ResultRow) {
	byStage := make(map[string]int)
	for _, a := range athletes {
		byStage[a.MatchStage]++
	}
	stages := make([]string, 0, len(byStage))
	for stage := range byStage {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MATCH STAGE\tATHLETES")
	_, _ = fmt.Fprintln(w, "-----------\t--------")
	for _, stage := range stages {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", stage, byStage[stage])
	}
	_, _ = fmt.Fprintf(w, "total\t%d\n", len(athletes))
	_, _ = fmt.Fprintf(w, "\nresult rows\t%d\n", len(results))
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
