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

package inventory

import (
	"fmt"

	"github.com/jakesalomon/DBSpaces/internal/report"
)

// OrderErrors maps a dbspace number to the error that prevented its chain
// from resolving. A failed space leaves its chunks with Order 0; all other
// spaces still resolve.
type OrderErrors map[int]error

// ResolveOrder reconstructs each dbspace's chunk creation order by walking
// the next-pointer chain from the reserved-page report, starting at the
// space's first chunk. Chunk numbers alone cannot serve here: the server
// recycles them after drops, so only the chain reflects history.
func ResolveOrder(inv *Inventory, rows []report.OrderRow) OrderErrors {
	next := make(map[int]int, len(rows))
	for _, row := range rows {
		next[row.Chunk] = row.Next
	}

	errs := make(OrderErrors)
	for _, num := range inv.SpaceNumbers() {
		space := inv.Spaces[num]
		if err := walkChain(inv, space, next); err != nil {
			errs[num] = err
			for _, c := range space.chunks {
				c.Order = 0
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// walkChain assigns Order 1, 2, 3, ... along the chain. The input is not
// trusted: a successor without its own reserved-page record, a successor
// outside the space, or a cycle all fail the space.
func walkChain(inv *Inventory, space *DBspace, next map[int]int) error {
	visited := make(map[int]bool, len(space.chunks))
	current := space.FirstChunk
	order := 0

	for current != report.NoNextChunk {
		if visited[current] {
			return fmt.Errorf("dbspace %s: chunk chain cycles at chunk %d", space.Name, current)
		}
		visited[current] = true

		chunk, ok := inv.Chunks[current]
		if !ok {
			return fmt.Errorf("dbspace %s: chain references unknown chunk %d", space.Name, current)
		}
		if chunk.DBspaceNumber != space.Number {
			return fmt.Errorf("dbspace %s: chain crosses into dbspace %d at chunk %d",
				space.Name, chunk.DBspaceNumber, current)
		}

		order++
		chunk.Order = order

		successor := next[current] // absent record means last in chain
		if successor != report.NoNextChunk {
			if _, ok := next[successor]; !ok {
				return fmt.Errorf("dbspace %s: chunk %d names successor %d with no reserved-page record",
					space.Name, current, successor)
			}
		}
		chunk.NextChunk = successor
		current = successor
	}
	return nil
}
