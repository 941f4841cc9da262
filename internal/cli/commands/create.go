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

	"github.com/jakesalomon/DBSpaces/internal/inventory"
	"github.com/jakesalomon/DBSpaces/internal/lifecycle"
)

var (
	createSizeKB      int64
	createPageKB      int
	createMirror      bool
	createTemp        bool
	createBlob        bool
	createSmartBlob   bool
	createLargeChunks bool
	createBlobPages   int
)

var createCmd = &cobra.Command{
	Use:   "create <dbspace>",
	Short: "Create a dbspace with its first chunk",
	Long: `Create a new dbspace: generate the raw file and symlink for its first
chunk, set ownership-compatible permissions, then hand the space to the
server. The name must start with a lowercase letter and contain only
letters, digits and underscores.

Examples:
  dbspaces create data_dbs --size 2048000
  dbspaces create temp_dbs --temp
  dbspaces create blob_dbs --blob
  dbspaces create data_dbs --mirror --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().Int64Var(&createSizeKB, "size", 0, "first chunk size in KB (default from config)")
	createCmd.Flags().IntVar(&createPageKB, "pagesize", 0, "page size in KB (default from config)")
	createCmd.Flags().BoolVar(&createMirror, "mirror", false, "mirror the dbspace")
	createCmd.Flags().BoolVar(&createTemp, "temp", false, "create a temporary dbspace")
	createCmd.Flags().BoolVar(&createBlob, "blob", false, "create a blobspace")
	createCmd.Flags().BoolVar(&createSmartBlob, "sblob", false, "create a smart blobspace")
	createCmd.Flags().BoolVar(&createLargeChunks, "large-chunks", false, "allow chunks above 2 GB")
	createCmd.Flags().IntVar(&createBlobPages, "blobpages", 0, "blob page size as a multiple of the data page size (default from config)")
	rootCmd.AddCommand(createCmd)
}

func createKind() (inventory.Kind, error) {
	set := 0
	kind := inventory.KindRegular
	if createTemp {
		set++
		kind = inventory.KindTemp
	}
	if createBlob {
		set++
		kind = inventory.KindBlob
	}
	if createSmartBlob {
		set++
		kind = inventory.KindSmartBlob
	}
	if set > 1 {
		return kind, fmt.Errorf("--temp, --blob and --sblob are mutually exclusive")
	}
	return kind, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	kind, err := createKind()
	if err != nil {
		return err
	}

	rc, err := loadRunContext(cmd.Context())
	if err != nil {
		return err
	}
	op, rec := rc.newOperator(cmd.Context())

	err = recordRun(cmd.Context(), rc.server, "create-dbspace", name, func() (int, error) {
		err := op.CreateDBspace(cmd.Context(), lifecycle.CreateSpec{
			Name:         name,
			Kind:         kind,
			SizeKB:       createSizeKB,
			PageSizeKB:   createPageKB,
			Mirrored:     createMirror,
			LargeChunks:  createLargeChunks,
			BlobPageMult: createBlobPages,
		})
		if err != nil {
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
	fmt.Printf("Created dbspace %s\n", name)
	return nil
}
