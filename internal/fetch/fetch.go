// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch pages through a retained search result set in fixed-size
// windows and appends each window's payload to the output as it arrives.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/fasta"
	"github.com/pdiddy/seqfetch/internal/httputil"
	"github.com/pdiddy/seqfetch/pkg/types"
)

const (
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 3
	DefaultBackoff     = 15 * time.Second
)

// sleep waits between attempts. Tests replace it to record pauses
// instead of taking them.
var sleep = httputil.SleepContext

// Fetcher opens the payload stream for one window of a result set.
type Fetcher interface {
	Fetch(ctx context.Context, h types.ResultHandle, w types.Window) (io.ReadCloser, error)
}

// Sink receives window payloads in order. Flush makes a written window durable.
type Sink interface {
	io.Writer
	Flush() error
}

// outputError marks a failure writing to the local sink. It is never
// retried, even when the underlying errno looks like a network condition.
type outputError struct{ err error }

func (e *outputError) Error() string { return "writing output: " + e.err.Error() }
func (e *outputError) Unwrap() error { return e.err }

// Windows returns the half-open ranges covering [startBatch*batchSize, count)
// in steps of batchSize, the last one clipped to count. A non-positive
// batchSize selects DefaultBatchSize; a negative startBatch is treated as 0.
func Windows(count, batchSize, startBatch int) []types.Window {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if startBatch < 0 {
		startBatch = 0
	}
	var windows []types.Window
	for start := startBatch * batchSize; start < count; start += batchSize {
		windows = append(windows, types.Window{Start: start, End: min(count, start+batchSize)})
	}
	return windows
}

// retryable reports whether a window attempt that failed with err should be
// repeated: server 5xx and connection-level failures are, local output
// failures and everything else are not.
func retryable(err error) bool {
	var oe *outputError
	if errors.As(err, &oe) {
		return false
	}
	return entrez.IsTransient(err)
}

// Run fetches every window of h from cfg.StartBatch onward, one at a time
// in increasing offset order, and writes each successful payload to sink.
// A window is retried up to cfg.Retry.MaxAttempts times on transient
// failures with a fixed pause after each; any other failure abandons it at
// once. Failed windows leave a gap and the loop always moves on. Only
// cancellation of ctx stops the loop early.
//
// Progress and failures are logged to w. The returned report records the
// outcome of every window attempted.
func Run(ctx context.Context, f Fetcher, h types.ResultHandle, cfg types.FetchConfig, sink Sink, w io.Writer) types.FetchReport {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxAttempts := cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := cfg.Retry.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	report := types.FetchReport{
		Handle:     h,
		BatchSize:  batchSize,
		StartBatch: max(cfg.StartBatch, 0),
		StartedAt:  time.Now(),
	}

	for _, win := range Windows(h.Count, batchSize, cfg.StartBatch) {
		fmt.Fprintf(w, "Going to download record %d to %d of %d\n", win.Start+1, win.End, h.Count)

		outcome := types.WindowOutcome{Window: win}
		policy := httputil.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     backoff,
			Retryable:   retryable,
			Sleep:       sleep,
			OnRetry: func(attempt int, err error) {
				if entrez.IsServerError(err) {
					fmt.Fprintf(w, "Received error from server %v\n", err)
					return
				}
				fmt.Fprintf(w, "URL error (%s) on attempt %d of %d; retrying...\n",
					entrez.ConnectionReason(err), attempt, maxAttempts)
			},
		}

		res := policy.Do(ctx, func(ctx context.Context, _ int) error {
			n, records, err := fetchWindow(ctx, f, h, win, sink)
			if err != nil {
				return err
			}
			outcome.Bytes = n
			outcome.Records = records
			return nil
		})
		outcome.Attempts = res.Attempts

		switch {
		case res.Err == nil:
			outcome.Status = types.WindowSucceeded
		case res.Canceled:
			outcome.Status = types.WindowCanceled
			outcome.Error = res.Err.Error()
			fmt.Fprintf(w, "Interrupted while downloading batch %s: %v\n", win, res.Err)
		case res.Exhausted:
			outcome.Status = types.WindowExhausted
			outcome.Error = res.Err.Error()
			fmt.Fprintf(w, "Giving up on batch %s after %d attempts: %v\n", win, res.Attempts, res.Err)
		default:
			outcome.Status = types.WindowAbandoned
			outcome.Error = res.Err.Error()
			fmt.Fprintf(w, "Failed to download batch %s: %v\n", win, res.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Status == types.WindowCanceled {
			report.Canceled = true
			break
		}
	}

	report.FinishedAt = time.Now()
	if report.Canceled {
		fmt.Fprintln(w, "Download interrupted.")
	} else {
		fmt.Fprintln(w, "Download completed.")
	}
	return report
}

// fetchWindow performs one attempt: it reads the full payload before
// writing, so a stream that breaks mid-read leaves nothing in the output.
func fetchWindow(ctx context.Context, f Fetcher, h types.ResultHandle, win types.Window, sink Sink) (int64, int, error) {
	body, err := f.Fetch(ctx, h, win)
	if err != nil {
		return 0, 0, err
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return 0, 0, fmt.Errorf("reading payload: %w", err)
	}

	if _, err := sink.Write(data); err != nil {
		return 0, 0, &outputError{err: err}
	}
	if err := sink.Flush(); err != nil {
		return 0, 0, &outputError{err: err}
	}
	return int64(len(data)), fasta.CountBytes(data).Records, nil
}
