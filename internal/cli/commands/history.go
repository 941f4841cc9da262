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

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent lifecycle operations",
	Long: `Show the operation journal: every create, add and drop run by this tool,
newest first, including dry runs and how far a failed run got.

Examples:
  dbspaces history
  dbspaces history --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := journal.Open(config.JournalPath())
	if err != nil {
		return fmt.Errorf("opening operation journal: %w", err)
	}
	defer j.Close()

	runs, err := j.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded operations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tDBSPACE\tSERVER\tSTATUS\tDETAIL")
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += " (dry-run)"
		}
		detail := r.Detail
		if r.Status == journal.StatusFailed && r.FailedStep != "" {
			detail = fmt.Sprintf("step %s: %s", r.FailedStep, r.Detail)
		}
		if r.Completed > 0 {
			detail = fmt.Sprintf("%s [%d completed]", detail, r.Completed)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			time.Unix(r.StartedAt, 0).Format("2006-01-02 15:04:05"),
			r.Kind, r.DBspace, r.Server, status, detail)
	}
	return w.Flush()
}
