// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/seqfetch/internal/fasta"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>...",
	Short: "Summarize the records in downloaded FASTA files",
	Long: `Stats counts records and residues in one or more FASTA files written by
fetch. Files ending in .gz are decompressed on the fly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

type fileStats struct {
	Path  string      `json:"path"`
	Stats fasta.Stats `json:"stats"`
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	var all []fileStats
	var total fasta.Stats
	for _, path := range args {
		st, err := fasta.CountFile(path)
		if err != nil {
			return err
		}
		all = append(all, fileStats{Path: path, Stats: st})
		total.Add(st)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	for _, f := range all {
		printStats(f.Path, f.Stats)
	}
	if len(all) > 1 {
		printStats("total", total)
	}
	return nil
}

func printStats(label string, st fasta.Stats) {
	fmt.Printf("%s: %d records, %d residues, length %d..%d (mean %.1f)\n",
		label, st.Records, st.Residues, st.MinLength, st.MaxLength, st.MeanLength())
}
