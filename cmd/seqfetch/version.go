// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seqfetch version, VCS revision and Go toolchain",
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return
		}
		info, _ := debug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), versionLine(version, info))
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

// versionLine renders "seqfetch <version> (<revision>[, modified]) <go version>".
// The revision comes from the VCS stamp in info and is omitted when absent.
func versionLine(v string, info *debug.BuildInfo) string {
	goVersion := runtime.Version()
	var rev string
	modified := false
	if info != nil {
		if info.GoVersion != "" {
			goVersion = info.GoVersion
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				rev = s.Value
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}

	line := "seqfetch " + v
	switch {
	case rev != "" && modified:
		line += fmt.Sprintf(" (%s, modified)", rev)
	case rev != "":
		line += fmt.Sprintf(" (%s)", rev)
	}
	return line + " " + goVersion
}
