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
	"github.com/jakesalomon/DBSpaces/internal/validate"
)

// CreateSpec parameterizes a create-dbspace operation. Zero sizes fall back
// to the configured defaults.
type CreateSpec struct {
	Name         string
	Kind         inventory.Kind
	SizeKB       int64
	PageSizeKB   int
	Mirrored     bool
	LargeChunks  bool
	BlobPageMult int
}

// CreateDBspace creates a new dbspace with its first chunk: validate the
// name, generate and validate the index-1 paths, materialize file(s) and
// symlink(s), then hand the space to the engine. A failure after the
// filesystem steps leaves the created artifacts behind; they are inert
// until the engine accepts them.
func (op *Operator) CreateDBspace(ctx context.Context, spec CreateSpec) error {
	if err := validate.DBspaceName(spec.Name); err != nil {
		return stepErr("validate-name", err)
	}

	if _, ok := op.inv.SpaceByName(spec.Name); ok {
		return stepErr("validate-not-exists",
			fmt.Errorf("%w: dbspace %s", common.ErrExists, spec.Name))
	}

	pageKB := spec.PageSizeKB
	if pageKB == 0 {
		pageKB = op.cfg.DataPageSize
	}
	sizeKB := spec.SizeKB
	if sizeKB == 0 {
		sizeKB = op.cfg.ChunkSizeKB
	}
	sizeKB, err := roundChunkSize(sizeKB, pageKB, spec.LargeChunks)
	if err != nil {
		return stepErr("resolve-size", err)
	}

	pairs, err := op.gen.Pairs(spec.Name, 1, 1, spec.Mirrored)
	if err != nil {
		return stepErr("generate-paths", err)
	}
	pair := pairs[0]
	if err := op.validateCandidatePair(spec.Name, pair); err != nil {
		return stepErr("generate-paths", err)
	}

	if err := op.materializePair(pair); err != nil {
		return stepErr("materialize-paths", err)
	}

	cmdSpec := engine.CreateSpaceSpec{
		Name:         spec.Name,
		Kind:         spec.Kind,
		Path:         pair.Symlink,
		OffsetKB:     0,
		SizeKB:       sizeKB,
		PageSizeKB:   pageKB,
		BlobPageMult: spec.BlobPageMult,
	}
	if spec.Mirrored {
		cmdSpec.MirrorPath = pair.MirrorSymlink
		cmdSpec.MirrorOffKB = 0
	}
	if err := op.eff.RunSpaces(ctx, engine.CreateSpaceArgs(cmdSpec)); err != nil {
		// Created file and symlink stay behind, see package doc.
		return stepErr("create-space", err)
	}

	log.WithFields(log.Fields{
		"dbspace": spec.Name,
		"kind":    spec.Kind.String(),
		"size_kb": sizeKB,
	}).Info("dbspace created")
	return nil
}
