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

	"github.com/spf13/cobra"

	"github.com/jakesalomon/DBSpaces/internal/lifecycle"
)

var (
	addSizeKB      int64
	addCount       int
	addLargeChunks bool
)

var addCmd = &cobra.Command{
	Use:   "add <dbspace>",
	Short: "Add chunks to a dbspace",
	Long: `Append one or more chunks to an existing dbspace. Each chunk gets a fresh
raw file and symlink with contiguous sequence numbers; if a chunk fails
partway through the run, the earlier chunks stay added and the count of
completed chunks is reported.

Examples:
  dbspaces add data_dbs
  dbspaces add data_dbs --size 4096000 --count 3
  dbspaces add data_dbs --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().Int64Var(&addSizeKB, "size", 0, "chunk size in KB (default from config)")
	addCmd.Flags().IntVar(&addCount, "count", 1, "number of chunks to add")
	addCmd.Flags().BoolVar(&addLargeChunks, "large-chunks", false, "allow chunks above 2 GB")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	if addCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	rc, err := loadRunContext(cmd.Context())
	if err != nil {
		return err
	}
	op, rec := rc.newOperator(cmd.Context())

	var added int
	err = recordRun(cmd.Context(), rc.server, "add-chunk", name, func() (int, error) {
		n, err := op.AddChunk(cmd.Context(), lifecycle.AddSpec{
			DBspace:     name,
			SizeKB:      addSizeKB,
			Count:       addCount,
			LargeChunks: addLargeChunks,
		})
		added = n
		return n, err
	})
	if err != nil {
		if added > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d chunk(s) added before the failure\n", added, addCount)
		}
		return err
	}

	if rec != nil {
		printDryRun(rec)
		return nil
	}
	fmt.Printf("Added %d chunk(s) to %s\n", added, name)
	return nil
}
