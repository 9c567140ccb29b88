// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "seqfetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// EntrezConfig holds settings for the NCBI E-utilities client. The caller
// identity (Email, Tool) is threaded through the client at construction
// instead of being set process-wide.
type EntrezConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the E-utilities root (default https://eutils.ncbi.nlm.nih.gov/entrez/eutils).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Database is the Entrez database to search and fetch from (default "protein").
	Database string `json:"database" yaml:"database"`

	// Email is the contact address NCBI requires on every request.
	Email string `json:"email" yaml:"email"`

	// Tool names the calling program (default "seqfetch").
	Tool string `json:"tool" yaml:"tool"`

	// APIKey is an optional NCBI API key. With a key the service allows
	// 10 requests per second instead of 3.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RequestsPerSecond overrides the request pacing. Zero selects the
	// NCBI limit for the presence or absence of an API key.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// FilterPolicy restricts a keyword search to informative records. It is
// supplied by the caller rather than embedded in query construction.
type FilterPolicy struct {
	// ExcludeTitleTerms are title keywords whose records are dropped
	// (e.g. "hypothetical", "putative").
	ExcludeTitleTerms []string `json:"exclude_title_terms" yaml:"exclude_title_terms"`

	// MinLength and MaxLength bound the sequence length (SLEN). A zero
	// MaxLength disables the length filter.
	MinLength int `json:"min_length" yaml:"min_length"`
	MaxLength int `json:"max_length" yaml:"max_length"`

	// Extra is appended verbatim to the rendered query.
	Extra string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// DefaultFilterPolicy returns the exclusion list and length bounds used
// when no policy is configured.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		ExcludeTitleTerms: []string{"hypothetical", "putative", "putitive", "probable", "possible", "unknown"},
		MinLength:         50,
		MaxLength:         1000000,
	}
}

// RetryConfig parameterizes per-window retries.
type RetryConfig struct {
	// MaxAttempts is the number of attempts per window (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Backoff is the fixed pause after each transient failure (default 15s).
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// FetchConfig holds settings for the paged fetch loop.
type FetchConfig struct {
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// BatchSize is the number of records requested per window (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// StartBatch is the index of the first window, used to resume a
	// partial run (default 0).
	StartBatch int `json:"start_batch" yaml:"start_batch"`

	// OutputDir is the directory that receives <term>.fasta (default ".").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Compress writes <term>.fasta.gz instead of plain text.
	Compress bool `json:"compress" yaml:"compress"`
}

// JournalConfig holds settings for the optional run journal.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `json:"path" yaml:"path"`
}

// Config groups all settings for a seqfetch run.
type Config struct {
	Entrez  EntrezConfig  `json:"entrez" yaml:"entrez"`
	Filter  FilterPolicy  `json:"filter" yaml:"filter"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}
