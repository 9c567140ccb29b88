// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/output"
	"github.com/pdiddy/seqfetch/pkg/types"
)

// Client is the remote record store: one search, then windowed fetches.
type Client interface {
	Fetcher
	Search(ctx context.Context, q entrez.Query) (types.ResultHandle, error)
}

// Retrieve runs a whole job: it resolves q to a result handle, opens the
// output file for q's term in truncate mode, and runs the fetch loop over
// the handle. A search failure is returned before any file is created.
// Window failures are recorded in the report, never returned.
func Retrieve(ctx context.Context, c Client, q entrez.Query, cfg types.FetchConfig, w io.Writer) (types.FetchReport, error) {
	h, err := c.Search(ctx, q)
	if err != nil {
		return types.FetchReport{Term: q.Term, Query: q.String()}, err
	}
	fmt.Fprintf(w, "Found %d records for %q\n", h.Count, q.Term)

	path := output.Path(cfg.OutputDir, q.Term, cfg.Compress)
	sink, err := output.Create(path, cfg.Compress)
	if err != nil {
		return types.FetchReport{Term: q.Term, Query: q.String(), Handle: h}, err
	}

	report := Run(ctx, c, h, cfg, sink, w)
	report.Term = q.Term
	report.Query = q.String()
	report.OutputPath = path

	if err := sink.Close(); err != nil {
		return report, err
	}
	return report, nil
}

// WriteReport writes report to path as YAML.
func WriteReport(report types.FetchReport, path string) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
