// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for seqfetch: search
// handles, fetch windows, per-window outcomes and the run report.
package types

import (
	"fmt"
	"time"
)

// ResultHandle references a search's match set retained by the server.
// Holding it is enough to fetch any sub-range without searching again.
type ResultHandle struct {
	// Database is the Entrez database the search ran against.
	Database string `json:"database" yaml:"database"`

	// WebEnv is the server-assigned history session token.
	WebEnv string `json:"webenv" yaml:"webenv"`

	// QueryKey identifies the search within the WebEnv session.
	QueryKey string `json:"query_key" yaml:"query_key"`

	// Count is the total number of matching records.
	Count int `json:"count" yaml:"count"`
}

// Window is the half-open record range [Start, End) fetched as one unit.
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of records in the window.
func (w Window) Len() int { return w.End - w.Start }

// String renders the window with one-based inclusive bounds, the way
// progress is reported ("record 1 to 100").
func (w Window) String() string {
	return fmt.Sprintf("%d to %d", w.Start+1, w.End)
}

// WindowStatus is the final state of one window.
type WindowStatus string

const (
	// WindowSucceeded means the payload was written to the output.
	WindowSucceeded WindowStatus = "succeeded"
	// WindowExhausted means every attempt failed transiently.
	WindowExhausted WindowStatus = "exhausted"
	// WindowAbandoned means an attempt failed with a non-retryable error.
	WindowAbandoned WindowStatus = "abandoned"
	// WindowCanceled means the run was interrupted while the window was in flight.
	WindowCanceled WindowStatus = "canceled"
)

// WindowOutcome records how one window was resolved.
type WindowOutcome struct {
	Window   Window       `json:"window" yaml:"window"`
	Status   WindowStatus `json:"status" yaml:"status"`
	Attempts int          `json:"attempts" yaml:"attempts"`
	Bytes    int64        `json:"bytes" yaml:"bytes"`
	Records  int          `json:"records" yaml:"records"`
	Error    string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// FetchReport summarizes one fetch run.
type FetchReport struct {
	Term       string          `json:"term" yaml:"term"`
	Query      string          `json:"query" yaml:"query"`
	Handle     ResultHandle    `json:"handle" yaml:"handle"`
	BatchSize  int             `json:"batch_size" yaml:"batch_size"`
	StartBatch int             `json:"start_batch" yaml:"start_batch"`
	OutputPath string          `json:"output_path" yaml:"output_path"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Canceled   bool            `json:"canceled" yaml:"canceled"`
	Outcomes   []WindowOutcome `json:"outcomes" yaml:"outcomes"`
}

// Succeeded returns the number of windows whose payload was written.
func (r FetchReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == WindowSucceeded {
			n++
		}
	}
	return n
}

// Records returns the number of records written across all windows.
func (r FetchReport) Records() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Records
	}
	return n
}

// Gaps returns the outcomes of windows that left no payload in the output.
func (r FetchReport) Gaps() []WindowOutcome {
	var gaps []WindowOutcome
	for _, o := range r.Outcomes {
		if o.Status != WindowSucceeded {
			gaps = append(gaps, o)
		}
	}
	return gaps
}

// HasGaps reports whether any window failed or the run was interrupted.
func (r FetchReport) HasGaps() bool {
	return r.Canceled || len(r.Gaps()) > 0
}
