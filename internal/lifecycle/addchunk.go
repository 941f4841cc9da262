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
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/engine"
	"github.com/jakesalomon/DBSpaces/internal/naming"
)

// AddSpec parameterizes an add-chunk operation. Count chunks of SizeKB each
// are appended; a zero size falls back to the configured default.
type AddSpec struct {
	DBspace     string
	SizeKB      int64
	Count       int
	LargeChunks bool
}

// AddChunk appends chunks to an existing dbspace. Paths are generated as
// one contiguous run; each pair then goes through create, chmod, symlink
// and the privileged add command. The loop stops at the first pair whose
// steps fail, and the returned count says how many pairs completed before
// the failure.
func (op *Operator) AddChunk(ctx context.Context, spec AddSpec) (int, error) {
	space, ok := op.inv.SpaceByName(spec.DBspace)
	if !ok {
		return 0, stepErr("validate-dbspace",
			fmt.Errorf("%w: dbspace %s", common.ErrNotFound, spec.DBspace))
	}

	count := spec.Count
	if count == 0 {
		count = 1
	}
	sizeKB := spec.SizeKB
	if sizeKB == 0 {
		sizeKB = op.cfg.ChunkSizeKB
	}
	sizeKB, err := roundChunkSize(sizeKB, space.PageSizeKB, spec.LargeChunks)
	if err != nil {
		return 0, stepErr("validate-size", err)
	}

	// Dropped chunks leave gaps in the live indexes, so the next index comes
	// from the symlink high-water mark, not the chunk count.
	bases := make([]string, 0, len(space.Chunks()))
	for _, c := range space.Chunks() {
		bases = append(bases, filepath.Base(c.SymlinkPath))
	}
	pairs, err := op.gen.Pairs(space.Name, naming.NextIndexFrom(bases), count, space.Mirrored)
	if err != nil {
		return 0, stepErr("generate-paths", err)
	}
	for _, pair := range pairs {
		if err := op.validateCandidatePair(space.Name, pair); err != nil {
			return 0, stepErr("generate-paths", err)
		}
	}

	for done, pair := range pairs {
		if err := op.materializePair(pair); err != nil {
			return done, &StepError{Step: "materialize-paths", Completed: done, Err: err}
		}
		args := engine.AddChunkArgs(space.Name, pair.Symlink, 0, sizeKB, pair.MirrorSymlink, 0)
		if err := op.eff.RunSpaces(ctx, args); err != nil {
			return done, &StepError{Step: "add-chunk", Completed: done, Err: err}
		}
		log.WithFields(log.Fields{
			"dbspace": space.Name,
			"symlink": pair.Symlink,
			"size_kb": sizeKB,
		}).Info("chunk added")
	}
	return len(pairs), nil
}
