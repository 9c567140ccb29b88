// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

// ErrMissingEmail is returned by NewClient when no contact address is configured.
var ErrMissingEmail = errors.New("entrez: contact email is required (set --email, SEQFETCH_ENTREZ_EMAIL or .secrets/ncbi-email)")

// StatusError reports a non-200 response from an E-utilities endpoint.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.Code, e.Body)
}

// ServerSide reports whether the status is in the 500-599 class.
func (e *StatusError) ServerSide() bool {
	return e.Code >= 500 && e.Code <= 599
}

// SearchError is the failure of the initial search. No result handle exists
// after it, so nothing can be fetched.
type SearchError struct {
	Term string
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search for %q failed: %v", e.Term, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// IsServerError reports whether err carries a 5xx response.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.ServerSide()
}

// IsConnectionError reports whether err is a connection or URL-level
// failure: a failed dial, reset, timeout, or a body cut short. Callers
// that cancel their own context check ctx.Err() first.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// IsTransient reports whether a fetch attempt that failed with err may
// succeed if repeated after a pause.
func IsTransient(err error) bool {
	return IsServerError(err) || IsConnectionError(err)
}

// ConnectionReason returns the underlying cause of a URL-level failure,
// or the error text itself.
func ConnectionReason(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
