// Copyright 2024 DBSpaces Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands implements the dbspaces command-line interface.
package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jakesalomon/DBSpaces/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		return fmt.Sprintf("%s (%s, commit: %s)", version, buildDate, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

var (
	flagConfig  string
	flagDryRun  bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dbspaces",
	Short: "Manage dbspaces and their chunk files",
	Long: `Manage dbspaces and their chunk files: a consistent view of the server's
storage reports plus guided create/add/drop operations that keep the raw
files and symlinks on disk in lockstep with the server.

Every mutating command accepts --dry-run to print the exact actions and
commands it would run without touching anything.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if flagVerbose {
			logrus.SetOutput(os.Stderr)
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetOutput(io.Discard)
		}

		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("dbspaces version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default "+config.FilePath()+")")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "print intended actions without executing them")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging on stderr")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
