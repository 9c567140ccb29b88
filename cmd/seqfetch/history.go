// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/seqfetch/internal/journal"
	"github.com/pdiddy/seqfetch/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded fetch runs and the batches they left missing",
	Long: `History reads the run journal written by fetch --journal and lists the
most recent runs, newest first. Use --run to list every batch of one run
with its status, attempts and error.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("term", "", "only list runs for this search term")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Int64("run", 0, "show the batches of this run ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("journal.path")
	if path == "" {
		return fmt.Errorf("no journal configured; pass --journal or set journal.path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal %s: %w", path, err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	if runID, _ := cmd.Flags().GetInt64("run"); runID > 0 {
		return showRun(ctx, j, runID, os.Stdout)
	}

	term, _ := cmd.Flags().GetString("term")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := j.Runs(ctx, term, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	printRuns(os.Stdout, runs)
	return nil
}

// showRun prints one run's header line followed by its batches.
func showRun(ctx context.Context, j *journal.Journal, runID int64, w io.Writer) error {
	run, err := j.Run(ctx, runID)
	if err != nil {
		return err
	}
	outcomes, err := j.Windows(ctx, runID)
	if err != nil {
		return err
	}
	printRuns(w, []journal.Run{run})
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No batches recorded: the result set was empty or the start batch was past its end.")
		return nil
	}
	printOutcomes(w, outcomes)
	return nil
}

func printRuns(w io.Writer, runs []journal.Run) {
	bad := color.New(color.FgRed).SprintFunc()
	for _, r := range runs {
		gaps := fmt.Sprintf("%d gaps", r.Gaps)
		if r.Gaps > 0 {
			gaps = bad(gaps)
		}
		fmt.Fprintf(w, "%4d  %s  %-20q %6d records  %3d batches  %s",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Term, r.Count, r.Windows, gaps)
		if r.Canceled {
			fmt.Fprint(w, "  (interrupted)")
		}
		fmt.Fprintln(w)
	}
}

func printOutcomes(w io.Writer, outcomes []types.WindowOutcome) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	for _, o := range outcomes {
		status := ok(string(o.Status))
		if o.Status != types.WindowSucceeded {
			status = bad(string(o.Status))
		}
		fmt.Fprintf(w, "%-16s %-9s attempts=%d records=%d bytes=%d",
			o.Window, status, o.Attempts, o.Records, o.Bytes)
		if o.Error != "" {
			fmt.Fprintf(w, "  %s", o.Error)
		}
		fmt.Fprintln(w)
	}
}
