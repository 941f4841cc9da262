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
	"strconv"

	"github.com/spf13/cobra"
)

var (
	dropChunkYes bool
	dropSpaceYes bool
)

var dropChunkCmd = &cobra.Command{
	Use:   "drop-chunk <dbspace> <order>",
	Short: "Drop one chunk from a dbspace",
	Long: `Drop the chunk at the given 1-based creation order from a dbspace. The
first chunk (order 1) cannot be dropped this way; drop the whole dbspace
instead. The dropped chunk's symlink is removed and its raw file renamed
to a retired name so its sequence number is never reissued.

Examples:
  dbspaces drop-chunk data_dbs 3 --yes
  dbspaces drop-chunk data_dbs 3 --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runDropChunk,
}

var dropSpaceCmd = &cobra.Command{
	Use:   "drop <dbspace>",
	Short: "Drop a whole dbspace",
	Long: `Drop a dbspace and retire all its chunk files. Chunks are dropped in
reverse creation order, then the space itself; a failure partway leaves
the remaining chunks and the space in place, with the completed count
reported.

Examples:
  dbspaces drop temp_dbs --yes
  dbspaces drop temp_dbs --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runDropSpace,
}

func init() {
	dropChunkCmd.Flags().BoolVarP(&dropChunkYes, "yes", "y", false, "confirm the drop")
	dropSpaceCmd.Flags().BoolVarP(&dropSpaceYes, "yes", "y", false, "confirm the drop")
	rootCmd.AddCommand(dropChunkCmd)
	rootCmd.AddCommand(dropSpaceCmd)
}

func runDropChunk(cmd *cobra.Command, args []string) error {
	name := args[0]
	order, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid chunk order %q: %w", args[1], err)
	}
	if !dropChunkYes && !flagDryRun {
		return fmt.Errorf("refusing to drop without --yes (or use --dry-run)")
	}

	rc, err := loadRunContext(cmd.Context())
	if err != nil {
		return err
	}
	op, rec := rc.newOperator(cmd.Context())

	err = recordRun(cmd.Context(), rc.server, "drop-chunk", name, func() (int, error) {
		if err := op.DropChunk(cmd.Context(), name, order); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return err
	}

	if rec != nil {
		printDryRun(rec)
		return nil
	}
	fmt.Printf("Dropped chunk %d of %s\n", order, name)
	return nil
}

func runDropSpace(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !dropSpaceYes && !flagDryRun {
		return fmt.Errorf("refusing to drop without --yes (or use --dry-run)")
	}

	rc, err := loadRunContext(cmd.Context())
	if err != nil {
		return err
	}
	op, rec := rc.newOperator(cmd.Context())

	err = recordRun(cmd.Context(), rc.server, "drop-dbspace", name, func() (int, error) {
		return 0, op.DropDBspace(cmd.Context(), name)
	})
	if err != nil {
		return err
	}

	if rec != nil {
		printDryRun(rec)
		return nil
	}
	fmt.Printf("Dropped dbspace %s\n", name)
	return nil
}
