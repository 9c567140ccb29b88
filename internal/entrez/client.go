// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entrez is a client for the NCBI E-utilities search (ESearch) and
// fetch (EFetch) endpoints, limited to what history-mode batched retrieval
// needs.
package entrez

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/seqfetch/internal/httputil"
	"github.com/pdiddy/seqfetch/pkg/types"
)

// DefaultBaseURL is the E-utilities root.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	defaultDatabase = "protein"
	defaultTool     = "seqfetch"

	// NCBI allows 3 requests per second without an API key and 10 with one.
	anonymousRate = 3
	keyedRate     = 10

	// rateLimitRetries bounds HTTP 429 retries below the window policy.
	rateLimitRetries = 3

	// errorBodyLimit caps how much of an error response is kept.
	errorBodyLimit = 512
)

// Client talks to E-utilities. Every request carries the configured
// identity and waits on a shared rate limiter.
type Client struct {
	http    *http.Client
	cfg     types.EntrezConfig
	limiter *rate.Limiter
}

// NewClient returns a client for cfg. The contact email is required;
// database, tool and base URL fall back to defaults.
func NewClient(hc *http.Client, cfg types.EntrezConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, ErrMissingEmail
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = anonymousRate
		if cfg.APIKey != "" {
			rps = keyedRate
		}
	}

	return &Client{
		http:    hc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Database returns the Entrez database the client searches.
func (c *Client) Database() string { return c.cfg.Database }

// Search runs q through ESearch with history enabled and returns the
// server-side handle. Nothing is fetched. Every failure is a *SearchError.
func (c *Client) Search(ctx context.Context, q Query) (types.ResultHandle, error) {
	if q.IsEmpty() {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: fmt.Errorf("empty search term")}
	}

	params := url.Values{
		"db":         {c.cfg.Database},
		"term":       {q.String()},
		"usehistory": {"y"},
		"idtype":     {"acc"},
		"retmax":     {"0"},
	}

	resp, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: err}
	}
	defer resp.Body.Close()

	var result esearchResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: fmt.Errorf("parsing ESearch response: %w", err)}
	}
	if msg := strings.TrimSpace(result.Error); msg != "" {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: fmt.Errorf("ESearch error: %s", msg)}
	}

	count, err := strconv.Atoi(strings.TrimSpace(result.Count))
	if err != nil {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: fmt.Errorf("invalid ESearch count %q", result.Count)}
	}

	h := types.ResultHandle{
		Database: c.cfg.Database,
		WebEnv:   strings.TrimSpace(result.WebEnv),
		QueryKey: strings.TrimSpace(result.QueryKey),
		Count:    count,
	}
	if h.WebEnv == "" || h.QueryKey == "" {
		return types.ResultHandle{}, &SearchError{Term: q.Term, Err: fmt.Errorf("ESearch response has no history handle")}
	}
	return h, nil
}

// Fetch opens an EFetch stream for window w of the result set behind h, in
// FASTA text. The caller reads and closes the body.
func (c *Client) Fetch(ctx context.Context, h types.ResultHandle, w types.Window) (io.ReadCloser, error) {
	db := h.Database
	if db == "" {
		db = c.cfg.Database
	}
	params := url.Values{
		"db":        {db},
		"rettype":   {"fasta"},
		"retmode":   {"text"},
		"retstart":  {strconv.Itoa(w.Start)},
		"retmax":    {strconv.Itoa(w.Len())},
		"WebEnv":    {h.WebEnv},
		"query_key": {h.QueryKey},
		"idtype":    {"acc"},
	}

	resp, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// get issues a paced GET against endpoint with identity parameters added.
// A non-200 response is returned as a *StatusError with the body closed.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	params.Set("tool", c.cfg.Tool)
	params.Set("email", c.cfg.Email)
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.cfg.BaseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, rateLimitRetries)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, &StatusError{
			Endpoint: strings.TrimSuffix(endpoint, ".fcgi"),
			Code:     resp.StatusCode,
			Body:     strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// ESearch XML structure. Only the history fields are read.
type esearchResult struct {
	XMLName  xml.Name `xml:"eSearchResult"`
	Count    string   `xml:"Count"`
	QueryKey string   `xml:"QueryKey"`
	WebEnv   string   `xml:"WebEnv"`
	Error    string   `xml:"ERROR"`
}
