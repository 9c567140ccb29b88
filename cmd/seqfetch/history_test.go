// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/seqfetch/internal/journal"
	"github.com/pdiddy/seqfetch/pkg/types"
)

func TestShowRun(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	ctx := context.Background()

	withWindows, err := j.Record(ctx, types.FetchReport{
		Term:   "lysozyme",
		Handle: types.ResultHandle{Count: 200},
		Outcomes: []types.WindowOutcome{
			{Window: types.Window{Start: 0, End: 100}, Status: types.WindowSucceeded, Attempts: 1, Records: 100},
			{Window: types.Window{Start: 100, End: 200}, Status: types.WindowExhausted, Attempts: 3, Error: "efetch returned HTTP 503"},
		},
	})
	require.NoError(t, err)
	empty, err := j.Record(ctx, types.FetchReport{Term: "nothing"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      int64
		want    []string
		wantErr error
	}{
		{"run with batches", withWindows, []string{`"lysozyme"`, "1 gaps", "101 to 200", "efetch returned HTTP 503"}, nil},
		{"run with no batches", empty, []string{`"nothing"`, "No batches recorded"}, nil},
		{"unknown run", empty + 10, nil, journal.ErrRunNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := showRun(ctx, j, tt.id, &buf)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}
