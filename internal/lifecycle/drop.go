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

package lifecycle

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/engine"
	"github.com/jakesalomon/DBSpaces/internal/inventory"
)

// DropChunk drops the chunk at the given 1-based creation order within a
// dbspace: the engine gives it up first, then the symlink goes away and the
// raw file is renamed to its retired name. Order 1 is the space's first
// chunk and can only go with the whole space.
func (op *Operator) DropChunk(ctx context.Context, dbspace string, order int) error {
	if order == 0 {
		return stepErr("validate-order",
			fmt.Errorf("chunk order 0 is invalid; orders are 1-based"))
	}
	if order == 1 {
		return stepErr("validate-order",
			fmt.Errorf("chunk 1 is the first chunk of %s and cannot be dropped alone; use drop-dbspace", dbspace))
	}

	space, ok := op.inv.SpaceByName(dbspace)
	if !ok {
		return stepErr("locate-chunk", fmt.Errorf("%w: dbspace %s", common.ErrNotFound, dbspace))
	}
	chunk := space.ChunkByOrder(order)
	if chunk == nil {
		return stepErr("locate-chunk",
			fmt.Errorf("%w: dbspace %s has no chunk with creation order %d", common.ErrNotFound, dbspace, order))
	}
	if op.logChunks != nil && op.logChunks[chunk.Number] {
		return stepErr("validate-logs",
			fmt.Errorf("chunk %d of %s holds a logical log and cannot be dropped", chunk.Number, dbspace))
	}

	return op.dropChunk(ctx, space, chunk)
}

// dropChunk performs the engine drop and the retirement of one chunk's
// artifacts, primary then mirror.
func (op *Operator) dropChunk(ctx context.Context, space *inventory.DBspace, chunk *inventory.Chunk) error {
	offsetKB := chunk.OffsetPages * int64(space.PageSizeKB)
	args := engine.DropChunkArgs(space.Name, chunk.SymlinkPath, offsetKB)
	if err := op.eff.RunSpaces(ctx, args); err != nil {
		return stepErr("drop-chunk", err)
	}

	if err := op.retire(chunk.SymlinkPath, chunk.RawFilePath); err != nil {
		return stepErr("retire-primary", err)
	}
	if chunk.MirrorSymlinkPath != "" {
		if err := op.retire(chunk.MirrorSymlinkPath, chunk.MirrorRawFilePath); err != nil {
			return stepErr("retire-mirror", err)
		}
	}

	log.WithFields(log.Fields{
		"dbspace": space.Name,
		"chunk":   chunk.Number,
		"order":   chunk.Order,
	}).Info("chunk dropped")
	return nil
}

// DropDBspace retires a whole dbspace: every non-first chunk is dropped in
// descending creation order, then the engine drops the space itself and the
// first chunk's artifacts are retired. The first chunk-drop failure stops
// the whole operation; Completed on the error counts the chunks already
// gone.
func (op *Operator) DropDBspace(ctx context.Context, dbspace string) error {
	space, ok := op.inv.SpaceByName(dbspace)
	if !ok {
		return stepErr("locate-dbspace", fmt.Errorf("%w: dbspace %s", common.ErrNotFound, dbspace))
	}
	if op.spaceHoldsLogs(space) {
		return stepErr("validate-logs",
			fmt.Errorf("dbspace %s holds logical logs and cannot be dropped", dbspace))
	}

	chunks := space.Chunks()
	if len(chunks) == 0 {
		if err := op.eff.RunSpaces(ctx, engine.DropSpaceArgs(space.Name)); err != nil {
			return stepErr("drop-dbspace", err)
		}
		return nil
	}
	if len(chunks) > 1 {
		for _, c := range chunks {
			if c.Order == 0 {
				return stepErr("resolve-order",
					fmt.Errorf("creation order of dbspace %s is unresolved; refusing multi-chunk drop", dbspace))
			}
		}
	}

	first := chunks[0]
	dropped := 0
	for i := len(chunks) - 1; i >= 1; i-- {
		if err := op.dropChunk(ctx, space, chunks[i]); err != nil {
			return &StepError{Step: "drop-chunks", Completed: dropped, Err: err}
		}
		dropped++
	}

	if err := op.eff.RunSpaces(ctx, engine.DropSpaceArgs(space.Name)); err != nil {
		return &StepError{Step: "drop-dbspace", Completed: dropped, Err: err}
	}
	if err := op.retire(first.SymlinkPath, first.RawFilePath); err != nil {
		return &StepError{Step: "retire-primary", Completed: dropped, Err: err}
	}
	if first.MirrorSymlinkPath != "" {
		if err := op.retire(first.MirrorSymlinkPath, first.MirrorRawFilePath); err != nil {
			return &StepError{Step: "retire-mirror", Completed: dropped, Err: err}
		}
	}

	log.WithFields(log.Fields{
		"dbspace": space.Name,
		"chunks":  len(chunks),
	}).Info("dbspace dropped")
	return nil
}
