// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/seqfetch/internal/entrez"
	"github.com/pdiddy/seqfetch/internal/fetch"
	"github.com/pdiddy/seqfetch/internal/secrets"
	"github.com/pdiddy/seqfetch/pkg/types"
)

const (
	defaultTimeout   = "60s"
	defaultUserAgent = "seqfetch/0.1"
)

func init() {
	defaults := types.DefaultFilterPolicy()

	viper.SetDefault("entrez.base_url", entrez.DefaultBaseURL)
	viper.SetDefault("entrez.database", "protein")
	viper.SetDefault("entrez.tool", "seqfetch")
	viper.SetDefault("entrez.timeout", defaultTimeout)
	viper.SetDefault("entrez.user_agent", defaultUserAgent)

	viper.SetDefault("filter.exclude_title_terms", defaults.ExcludeTitleTerms)
	viper.SetDefault("filter.min_length", defaults.MinLength)
	viper.SetDefault("filter.max_length", defaults.MaxLength)

	viper.SetDefault("fetch.batch_size", fetch.DefaultBatchSize)
	viper.SetDefault("fetch.output_dir", ".")
	viper.SetDefault("fetch.retry.max_attempts", fetch.DefaultMaxAttempts)
	viper.SetDefault("fetch.retry.backoff", fetch.DefaultBackoff)
}

// loadConfig assembles the run configuration from flags, environment,
// config file and defaults, in that order of precedence. The email and
// API key fall back to the secrets directory.
func loadConfig() types.Config {
	return types.Config{
		Entrez: types.EntrezConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("entrez.timeout"),
				UserAgent: viper.GetString("entrez.user_agent"),
			},
			BaseURL:           viper.GetString("entrez.base_url"),
			Database:          viper.GetString("entrez.database"),
			Email:             loadedSecrets.Or(secrets.NCBIEmail, viper.GetString("entrez.email")),
			Tool:              viper.GetString("entrez.tool"),
			APIKey:            loadedSecrets.Or(secrets.NCBIAPIKey, viper.GetString("entrez.api_key")),
			RequestsPerSecond: viper.GetFloat64("entrez.requests_per_second"),
		},
		Filter: types.FilterPolicy{
			ExcludeTitleTerms: viper.GetStringSlice("filter.exclude_title_terms"),
			MinLength:         viper.GetInt("filter.min_length"),
			MaxLength:         viper.GetInt("filter.max_length"),
			Extra:             viper.GetString("filter.extra"),
		},
		Fetch: types.FetchConfig{
			Retry: types.RetryConfig{
				MaxAttempts: viper.GetInt("fetch.retry.max_attempts"),
				Backoff:     viper.GetDuration("fetch.retry.backoff"),
			},
			BatchSize:  viper.GetInt("fetch.batch_size"),
			StartBatch: viper.GetInt("fetch.start_batch"),
			OutputDir:  viper.GetString("fetch.output_dir"),
			Compress:   viper.GetBool("fetch.compress"),
		},
		Journal: types.JournalConfig{
			Path: viper.GetString("journal.path"),
		},
	}
}
