// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/pkg/types"
)

// --- test helpers ---

// step scripts one attempt against a window.
type step struct {
	err     error // returned by Fetch
	readErr error // returned while reading the body
}

type fakeFetcher struct {
	calls    []types.Window
	script   map[int][]step // window start -> attempts
	attempts map[int]int
	onFetch  func(w types.Window)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{script: map[int][]step{}, attempts: map[int]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, _ types.ResultHandle, w types.Window) (io.ReadCloser, error) {
	f.calls = append(f.calls, w)
	if f.onFetch != nil {
		f.onFetch(w)
	}
	n := f.attempts[w.Start]
	f.attempts[w.Start]++

	if steps := f.script[w.Start]; n < len(steps) {
		s := steps[n]
		if s.err != nil {
			return nil, s.err
		}
		if s.readErr != nil {
			return io.NopCloser(io.MultiReader(strings.NewReader(">partial\n"), iotest.ErrReader(s.readErr))), nil
		}
	}
	return io.NopCloser(strings.NewReader(payload(w))), nil
}

func payload(w types.Window) string {
	return fmt.Sprintf(">rec%d-%d\nMKV\n>rec%d-%d-b\nLL\n", w.Start, w.End, w.Start, w.End)
}

type memSink struct {
	bytes.Buffer
	flushes  int
	writeErr error
}

func (s *memSink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.Buffer.Write(p)
}

func (s *memSink) Flush() error {
	s.flushes++
	return nil
}

// recordSleeps replaces the backoff sleep with a recorder for the test.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var pauses []time.Duration
	old := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	t.Cleanup(func() { sleep = old })
	return &pauses
}

func handle(count int) types.ResultHandle {
	return types.ResultHandle{Database: "protein", WebEnv: "X", QueryKey: "1", Count: count}
}

var (
	errServer    = &entrez.StatusError{Endpoint: "efetch", Code: 503}
	errBadReq    = &entrez.StatusError{Endpoint: "efetch", Code: 400}
	errConnReset = &url.Error{Op: "Get", URL: "https://eutils.example/efetch.fcgi", Err: errors.New("connection reset by peer")}
)

// errTimeout is what http.Client returns when Timeout elapses: it wraps
// context.DeadlineExceeded although the caller's context is live.
var errTimeout = &url.Error{
	Op:  "Get",
	URL: "https://eutils.example/efetch.fcgi",
	Err: fmt.Errorf("%w (Client.Timeout exceeded while awaiting headers)", context.DeadlineExceeded),
}

// --- Windows ---

func TestWindows(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		batch      int
		startBatch int
		want       []types.Window
	}{
		{"clipped last window", 250, 100, 0, []types.Window{{Start: 0, End: 100}, {Start: 100, End: 200}, {Start: 200, End: 250}}},
		{"exact multiple", 200, 100, 0, []types.Window{{Start: 0, End: 100}, {Start: 100, End: 200}}},
		{"resume from batch 1", 250, 100, 1, []types.Window{{Start: 100, End: 200}, {Start: 200, End: 250}}},
		{"start beyond count", 250, 100, 3, nil},
		{"empty result set", 0, 100, 0, nil},
		{"smaller than one batch", 5, 100, 0, []types.Window{{Start: 0, End: 5}}},
		{"default batch size", 150, 0, 0, []types.Window{{Start: 0, End: 100}, {Start: 100, End: 150}}},
		{"negative start batch", 7, 3, -2, []types.Window{{Start: 0, End: 3}, {Start: 3, End: 6}, {Start: 6, End: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows(tt.count, tt.batch, tt.startBatch))
		})
	}
}

func TestWindowsCountAndContiguity(t *testing.T) {
	for count := 0; count <= 35; count++ {
		for batch := 1; batch <= 8; batch++ {
			for s := 0; s <= 5; s++ {
				windows := Windows(count, batch, s)

				first := s * batch
				want := 0
				if count > first {
					want = (count - first + batch - 1) / batch
				}
				require.Len(t, windows, want, "count=%d batch=%d start=%d", count, batch, s)

				next := first
				for _, w := range windows {
					assert.Equal(t, next, w.Start)
					assert.LessOrEqual(t, w.End, count)
					assert.LessOrEqual(t, w.Len(), batch)
					assert.Positive(t, w.Len())
					next = w.End
				}
				if want > 0 {
					assert.Equal(t, count, next)
				}
			}
		}
	}
}

// --- Run ---

func TestRun_AllWindowsSucceed(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(250), types.FetchConfig{BatchSize: 100}, sink, &log)

	assert.Equal(t, []types.Window{{Start: 0, End: 100}, {Start: 100, End: 200}, {Start: 200, End: 250}}, f.calls)
	assert.Equal(t, payload(types.Window{Start: 0, End: 100})+payload(types.Window{Start: 100, End: 200})+payload(types.Window{Start: 200, End: 250}), sink.String())
	assert.Equal(t, 3, sink.flushes)
	assert.Empty(t, *pauses)

	require.Len(t, report.Outcomes, 3)
	for _, o := range report.Outcomes {
		assert.Equal(t, types.WindowSucceeded, o.Status)
		assert.Equal(t, 1, o.Attempts)
		assert.Equal(t, 2, o.Records)
		assert.Equal(t, int64(len(payload(o.Window))), o.Bytes)
		assert.Empty(t, o.Error)
	}
	assert.False(t, report.HasGaps())
	assert.Equal(t, 3, report.Succeeded())
	assert.Equal(t, 6, report.Records())
	assert.Equal(t, 100, report.BatchSize)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	out := log.String()
	assert.Contains(t, out, "Going to download record 1 to 100 of 250\n")
	assert.Contains(t, out, "Going to download record 101 to 200 of 250\n")
	assert.Contains(t, out, "Going to download record 201 to 250 of 250\n")
	assert.True(t, strings.HasSuffix(out, "Download completed.\n"))
}

func TestRun_TransientFailuresExhaustWindow(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[100] = []step{{err: errServer}, {err: errServer}, {err: errServer}}
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(250), types.FetchConfig{BatchSize: 100}, sink, &log)

	assert.Equal(t, 3, f.attempts[100])
	assert.Equal(t, []time.Duration{15 * time.Second, 15 * time.Second, 15 * time.Second}, *pauses)

	// The loop moved on past the failed window.
	assert.Equal(t, 1, f.attempts[200])
	assert.Equal(t, payload(types.Window{Start: 0, End: 100})+payload(types.Window{Start: 200, End: 250}), sink.String())

	require.Len(t, report.Outcomes, 3)
	o := report.Outcomes[1]
	assert.Equal(t, types.WindowExhausted, o.Status)
	assert.Equal(t, 3, o.Attempts)
	assert.Contains(t, o.Error, "HTTP 503")
	assert.Equal(t, []types.WindowOutcome{o}, report.Gaps())
	assert.True(t, report.HasGaps())

	assert.Equal(t, 3, strings.Count(log.String(), "Received error from server efetch returned HTTP 503"))
	assert.Contains(t, log.String(), "Giving up on batch 101 to 200 after 3 attempts")
}

func TestRun_FatalFailureAbandonsImmediately(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{err: errBadReq}}
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(250), types.FetchConfig{BatchSize: 100}, sink, &log)

	assert.Equal(t, 1, f.attempts[0])
	assert.Empty(t, *pauses)
	assert.Equal(t, []types.Window{{Start: 0, End: 100}, {Start: 100, End: 200}, {Start: 200, End: 250}}, f.calls)
	assert.Equal(t, payload(types.Window{Start: 100, End: 200})+payload(types.Window{Start: 200, End: 250}), sink.String())

	o := report.Outcomes[0]
	assert.Equal(t, types.WindowAbandoned, o.Status)
	assert.Equal(t, 1, o.Attempts)
	assert.Contains(t, log.String(), "Failed to download batch 1 to 100: efetch returned HTTP 400")
}

func TestRun_ConnectionErrorRetried(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{err: errConnReset}}
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(50), types.FetchConfig{BatchSize: 100}, sink, &log)

	assert.Equal(t, 2, f.attempts[0])
	assert.Equal(t, []time.Duration{15 * time.Second}, *pauses)
	assert.Equal(t, payload(types.Window{Start: 0, End: 50}), sink.String())
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[0].Status)
	assert.Equal(t, 2, report.Outcomes[0].Attempts)
	assert.Contains(t, log.String(), "URL error (connection reset by peer) on attempt 1 of 3; retrying...")
}

func TestRun_ClientTimeoutIsTransientNotCancel(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{err: errTimeout}, {err: errTimeout}, {err: errTimeout}}
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(30), types.FetchConfig{BatchSize: 10}, sink, &log)

	assert.Equal(t, []types.Window{{Start: 0, End: 10}, {Start: 0, End: 10}, {Start: 0, End: 10}, {Start: 10, End: 20}, {Start: 20, End: 30}}, f.calls)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, types.WindowExhausted, report.Outcomes[0].Status)
	assert.Equal(t, 3, report.Outcomes[0].Attempts)
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[1].Status)
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[2].Status)
	assert.False(t, report.Canceled)
	assert.Len(t, *pauses, 3)
	assert.Equal(t, payload(types.Window{Start: 10, End: 20})+payload(types.Window{Start: 20, End: 30}), sink.String())
	assert.Contains(t, log.String(), "Giving up on batch 1 to 10 after 3 attempts")
	assert.NotContains(t, log.String(), "Interrupted")
}

func TestRun_BrokenStreamWritesNothingAndRetries(t *testing.T) {
	recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{readErr: io.ErrUnexpectedEOF}}
	sink := &memSink{}

	report := Run(context.Background(), f, handle(10), types.FetchConfig{BatchSize: 10}, sink, io.Discard)

	assert.Equal(t, 2, f.attempts[0])
	assert.Equal(t, payload(types.Window{Start: 0, End: 10}), sink.String(), "partial body must not reach the output")
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[0].Status)
}

func TestRun_OtherReadErrorIsFatal(t *testing.T) {
	recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{readErr: errors.New("decoder exploded")}}
	sink := &memSink{}

	report := Run(context.Background(), f, handle(10), types.FetchConfig{BatchSize: 10}, sink, io.Discard)

	assert.Equal(t, 1, f.attempts[0])
	assert.Empty(t, sink.String())
	assert.Equal(t, types.WindowAbandoned, report.Outcomes[0].Status)
}

func TestRun_OutputWriteErrorNotRetried(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	sink := &memSink{writeErr: syscall.ENOSPC}

	report := Run(context.Background(), f, handle(20), types.FetchConfig{BatchSize: 10}, sink, io.Discard)

	assert.Equal(t, 1, f.attempts[0])
	assert.Equal(t, 1, f.attempts[10])
	assert.Empty(t, *pauses)
	for _, o := range report.Outcomes {
		assert.Equal(t, types.WindowAbandoned, o.Status)
		assert.Contains(t, o.Error, "writing output")
	}
}

func TestRun_RecoversWithinAttemptBudget(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{err: errServer}, {err: errConnReset}}
	sink := &memSink{}

	report := Run(context.Background(), f, handle(5), types.FetchConfig{BatchSize: 5}, sink, io.Discard)

	assert.Equal(t, 3, f.attempts[0])
	assert.Len(t, *pauses, 2)
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[0].Status)
	assert.Equal(t, 3, report.Outcomes[0].Attempts)
}

func TestRun_CustomRetryConfig(t *testing.T) {
	pauses := recordSleeps(t)
	f := newFakeFetcher()
	f.script[0] = []step{{err: errServer}, {err: errServer}, {err: errServer}, {err: errServer}, {err: errServer}}

	cfg := types.FetchConfig{
		BatchSize: 5,
		Retry:     types.RetryConfig{MaxAttempts: 5, Backoff: time.Second},
	}
	report := Run(context.Background(), f, handle(5), cfg, &memSink{}, io.Discard)

	assert.Equal(t, 5, f.attempts[0])
	assert.Len(t, *pauses, 5)
	assert.Equal(t, time.Second, (*pauses)[0])
	assert.Equal(t, types.WindowExhausted, report.Outcomes[0].Status)
}

func TestRun_StartBatchResumes(t *testing.T) {
	recordSleeps(t)
	f := newFakeFetcher()
	sink := &memSink{}

	report := Run(context.Background(), f, handle(250), types.FetchConfig{BatchSize: 100, StartBatch: 2}, sink, io.Discard)

	assert.Equal(t, []types.Window{{Start: 200, End: 250}}, f.calls)
	assert.Equal(t, payload(types.Window{Start: 200, End: 250}), sink.String())
	assert.Equal(t, 2, report.StartBatch)
}

func TestRun_EmptyResultSet(t *testing.T) {
	f := newFakeFetcher()
	var log bytes.Buffer

	report := Run(context.Background(), f, handle(0), types.FetchConfig{}, &memSink{}, &log)

	assert.Empty(t, f.calls)
	assert.Empty(t, report.Outcomes)
	assert.False(t, report.HasGaps())
	assert.Equal(t, "Download completed.\n", log.String())
}

func TestRun_CancelStopsLoop(t *testing.T) {
	recordSleeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeFetcher()
	f.script[10] = []step{{err: &url.Error{Op: "Get", URL: "x", Err: context.Canceled}}}
	f.onFetch = func(w types.Window) {
		if w.Start == 10 {
			cancel()
		}
	}
	sink := &memSink{}
	var log bytes.Buffer

	report := Run(ctx, f, handle(30), types.FetchConfig{BatchSize: 10}, sink, &log)

	assert.Equal(t, []types.Window{{Start: 0, End: 10}, {Start: 10, End: 20}}, f.calls)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, types.WindowSucceeded, report.Outcomes[0].Status)
	assert.Equal(t, types.WindowCanceled, report.Outcomes[1].Status)
	assert.Equal(t, 1, report.Outcomes[1].Attempts)
	assert.True(t, report.Canceled)
	assert.True(t, report.HasGaps())
	assert.Contains(t, log.String(), "Download interrupted.")
}
