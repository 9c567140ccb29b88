// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the seqfetch CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/seqfetch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the seqfetch CLI.
var rootCmd = &cobra.Command{
	Use:   "seqfetch",
	Short: "Download sequence records from NCBI Entrez by keyword",
	Long: `seqfetch searches an NCBI Entrez database for records whose title matches
a keyword, keeps the match set on the server, and downloads it in fixed-size
batches into <term>.fasta. Batches that fail transiently are retried; batches
that still fail leave a gap and the download moves on.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./seqfetch.yaml or ~/.config/seqfetch/seqfetch.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory holding ncbi-email and ncbi-api-key files")
	rootCmd.PersistentFlags().String("journal", "", "SQLite run journal (empty disables journaling)")
	viper.BindPFlag("journal.path", rootCmd.PersistentFlags().Lookup("journal"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("seqfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "seqfetch"))
		}
	}

	viper.SetEnvPrefix("SEQFETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
