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

	"github.com/spf13/cobra"

	"github.com/jakesalomon/DBSpaces/internal/inventory"
)

var listChunks bool

var listCmd = &cobra.Command{
	Use:   "list [dbspace]",
	Short: "Show dbspaces and their chunks",
	Long: `Refresh the storage reports from the server and show every dbspace, or a
single dbspace when named. With --chunks each space's chunks are listed in
creation order, with their symlinks and raw files.

Examples:
  dbspaces list
  dbspaces list --chunks
  dbspaces list data_dbs --chunks`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listChunks, "chunks", false, "also list each dbspace's chunks")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	rc, err := loadRunContext(cmd.Context())
	if err != nil {
		return err
	}

	var spaces []*inventory.DBspace
	if len(args) == 1 {
		space, ok := rc.inv.SpaceByName(args[0])
		if !ok {
			return fmt.Errorf("dbspace not found: %s", args[0])
		}
		spaces = []*inventory.DBspace{space}
	} else {
		for _, num := range rc.inv.SpaceNumbers() {
			spaces = append(spaces, rc.inv.Spaces[num])
		}
	}

	fmt.Printf("Server: %s\n\n", rc.inv.Server)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUM\tNAME\tKIND\tMIRROR\tCHUNKS\tPAGES\tFREE\tFULL")
	for _, s := range spaces {
		mirror := "-"
		if s.Mirrored {
			mirror = "yes"
		}
		full := "n/a"
		if pct, ok := s.PctFull(); ok {
			full = fmt.Sprintf("%.1f%%", pct)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.Number, s.Name, s.Kind, mirror, s.ChunkCount, s.TotalPages, s.FreePages, full)
	}
	w.Flush()

	if listChunks {
		for _, s := range spaces {
			fmt.Printf("\n%s:\n", s.Name)
			if oerr, ok := rc.orderErrs[s.Number]; ok {
				fmt.Printf("  (creation order unresolved: %v)\n", oerr)
			}
			cw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(cw, "  ORDER\tCHUNK\tSIZE\tFREE\tSYMLINK\tRAW FILE")
			for _, c := range s.Chunks() {
				order := "?"
				if c.Order > 0 {
					order = fmt.Sprintf("%d", c.Order)
				}
				fmt.Fprintf(cw, "  %s\t%d\t%d\t%d\t%s\t%s\n",
					order, c.Number, c.SizePages, c.FreePages, c.SymlinkPath, c.RawFilePath)
				if c.MirrorSymlinkPath != "" {
					fmt.Fprintf(cw, "  \t\t\t\t%s\t%s\n", c.MirrorSymlinkPath, c.MirrorRawFilePath)
				}
			}
			cw.Flush()
		}
	}

	if len(rc.orderErrs) > 0 && !listChunks {
		fmt.Printf("\n%d dbspace(s) with unresolved chunk order; see list --chunks\n", len(rc.orderErrs))
	}
	return nil
}
