// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers and the retry policy used by the
// E-utilities client and the fetch loop.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff. The delay starts at RetryBaseDelay
// and doubles each attempt.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if err := SleepContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

// SleepContext pauses for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy retries an operation a fixed number of times with a fixed pause
// after every retryable failure.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff is the pause after each retryable failure.
	Backoff time.Duration

	// Retryable classifies errors. A nil Retryable makes every error fatal.
	Retryable func(error) bool

	// Sleep waits between attempts. Nil uses SleepContext; tests install
	// a recorder to avoid real delay.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, if set, is called after each retryable failure, before the pause.
	OnRetry func(attempt int, err error)
}

// RetryResult describes how Do finished.
type RetryResult struct {
	// Attempts is the number of times op was called.
	Attempts int

	// Err is nil on success, otherwise the last error op returned or the
	// context error if the wait was interrupted.
	Err error

	// Exhausted is true when every attempt failed with a retryable error.
	Exhausted bool

	// Canceled is true when Do stopped because ctx ended. An attempt error
	// that merely wraps a deadline, such as an HTTP client timeout, does
	// not set it while ctx is still live.
	Canceled bool
}

// Do calls op until it succeeds, returns a non-retryable error, or
// MaxAttempts is spent. The pause follows every retryable failure,
// including the last one, so consecutive windows stay spaced out.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) RetryResult {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var res RetryResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			res.Canceled = true
			return res
		}

		res.Attempts = attempt
		err := op(ctx, attempt)
		if err == nil {
			res.Err = nil
			return res
		}
		res.Err = err

		if ctx.Err() != nil {
			res.Canceled = true
			return res
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return res
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := sleep(ctx, p.Backoff); serr != nil {
			res.Err = serr
			res.Canceled = ctx.Err() != nil
			return res
		}
	}

	res.Exhausted = true
	return res
}
