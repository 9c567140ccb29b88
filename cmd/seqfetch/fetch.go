// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/fetch"
	"github.com/pdiddy/seqfetch/internal/journal"
	"github.com/pdiddy/seqfetch/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search Entrez and download the matching records as FASTA",
	Long: `Fetch searches the configured Entrez database (protein by default) for
records whose title matches --search-term, excluding uninformative titles
(hypothetical, putative, probable, ...) and restricting sequence length, then
downloads the match set in batches into <term>.fasta. An existing file of the
same name is overwritten.

Each batch is tried up to three times when the server answers 5xx or the
connection fails, with a 15 second pause after each failure. Other failures
abandon the batch at once. Abandoned batches leave a gap in the file; use
--start-batch to resume, --journal to record gaps, or --strict to exit
non-zero when any batch is missing.`,
	Example: `  seqfetch fetch -s lysozyme --email you@example.org
  seqfetch fetch -s "heat shock protein" --batch-size 500 --gzip`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringP("search-term", "s", "", "search term for the NCBI database (required)")
	f.String("email", "", "contact email sent to NCBI (or .secrets/ncbi-email)")
	f.String("api-key", "", "NCBI API key (or .secrets/ncbi-api-key)")
	f.String("db", "protein", "Entrez database")
	f.Int("batch-size", fetch.DefaultBatchSize, "records per batch")
	f.Int("start-batch", 0, "index of the first batch to download")
	f.String("output-dir", ".", "directory for <term>.fasta")
	f.Bool("gzip", false, "write <term>.fasta.gz")
	f.Int("max-attempts", fetch.DefaultMaxAttempts, "attempts per batch on transient failures")
	f.Duration("backoff", fetch.DefaultBackoff, "pause after each transient failure")
	f.String("report", "", "write a YAML report of every batch outcome to this path")
	f.Bool("strict", false, "exit non-zero if any batch left a gap")
	fetchCmd.MarkFlagRequired("search-term")

	for key, flag := range map[string]string{
		"entrez.email":             "email",
		"entrez.api_key":           "api-key",
		"entrez.database":          "db",
		"fetch.batch_size":         "batch-size",
		"fetch.start_batch":        "start-batch",
		"fetch.output_dir":         "output-dir",
		"fetch.compress":           "gzip",
		"fetch.retry.max_attempts": "max-attempts",
		"fetch.retry.backoff":      "backoff",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	term, _ := cmd.Flags().GetString("search-term")
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("provide a search term with --search-term")
	}
	reportPath, _ := cmd.Flags().GetString("report")
	strict, _ := cmd.Flags().GetBool("strict")

	cfg := loadConfig()
	client, err := entrez.NewClient(&http.Client{Timeout: cfg.Entrez.Timeout}, cfg.Entrez)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := fetch.Retrieve(ctx, client, entrez.NewQuery(term, cfg.Filter), cfg.Fetch, os.Stdout)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, report)

	if cfg.Journal.Path != "" {
		if err := recordRun(context.Background(), cfg.Journal.Path, report); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if reportPath != "" {
		if err := fetch.WriteReport(report, reportPath); err != nil {
			return err
		}
	}

	if strict && report.HasGaps() {
		return fmt.Errorf("%d batch(es) missing from %s", len(report.Gaps()), report.OutputPath)
	}
	return nil
}

// recordRun appends report to the journal at path.
func recordRun(ctx context.Context, path string, report types.FetchReport) error {
	j, err := journal.Open(path)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer j.Close()

	id, err := j.Record(ctx, report)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Recorded run %d in %s\n", id, path)
	return nil
}

// printSummary writes the per-run totals and one line per gap.
func printSummary(w io.Writer, r types.FetchReport) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	total := len(r.Outcomes)
	fmt.Fprintf(w, "\nRun summary: %s of %d batches written, %d records, output %s\n",
		ok(r.Succeeded()), total, r.Records(), r.OutputPath)

	for _, g := range r.Gaps() {
		status := bad(string(g.Status))
		if g.Status == types.WindowCanceled {
			status = warn(string(g.Status))
		}
		fmt.Fprintf(w, "  %-9s records %s (%d attempts): %s\n", status, g.Window, g.Attempts, g.Error)
	}
	if r.Canceled {
		remaining := len(fetch.Windows(r.Handle.Count, r.BatchSize, r.StartBatch)) - total
		fmt.Fprintf(w, "  %s before %d remaining batches\n", warn("interrupted"), remaining)
	}
}
