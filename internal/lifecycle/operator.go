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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/inventory"
	"github.com/jakesalomon/DBSpaces/internal/naming"
	"github.com/jakesalomon/DBSpaces/internal/validate"
)

// Chunk size ceilings in KB. Chunks above the small ceiling need the
// engine's large-chunk capability.
const (
	MaxSmallChunkKB int64 = 2 * 1024 * 1024        // 2 GB
	MaxLargeChunkKB int64 = 4 * 1024 * 1024 * 1024 // 4 TB
)

// StepError reports which gated step failed and how far the operation got.
// Completed counts fully finished (symlink, raw file) pairs for add-chunk
// and fully dropped chunks for drop-dbspace.
type StepError struct {
	Step      string
	Completed int
	Err       error
}

func (e *StepError) Error() string {
	if e.Completed > 0 {
		return fmt.Sprintf("step %s failed after %d completed: %v", e.Step, e.Completed, e.Err)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

// Operator composes the read model, the naming convention, the validator
// and an effector into the four lifecycle operations. It assumes exclusive
// administrative access for the duration of one operation; nothing here
// locks.
type Operator struct {
	cfg    *config.Config
	server string
	inv    *inventory.Inventory
	gen    *naming.Generator
	val    *validate.Validator
	eff    Effector

	// chunk numbers currently holding logical logs; nil skips the check
	logChunks map[int]bool
}

// New builds an Operator over a freshly refreshed inventory.
func New(cfg *config.Config, server string, inv *inventory.Inventory, eff Effector) *Operator {
	return &Operator{
		cfg:    cfg,
		server: server,
		inv:    inv,
		gen:    naming.New(cfg, server),
		val:    validate.New(cfg, server),
		eff:    eff,
	}
}

// SetLogChunks supplies the chunk numbers that hold logical logs, enabling
// the drop operations to refuse spaces the engine still logs into.
func (op *Operator) SetLogChunks(chunks map[int]bool) {
	op.logChunks = chunks
}

// roundChunkSize rounds a requested size in KB down to a multiple of the
// page size and enforces the chunk ceilings. The rounded value is what ends
// up in the generated command.
func roundChunkSize(sizeKB int64, pageKB int, largeChunks bool) (int64, error) {
	if pageKB <= 0 {
		return 0, fmt.Errorf("%w: page size %d KB", common.ErrSizeConstraint, pageKB)
	}
	rounded := sizeKB - sizeKB%int64(pageKB)
	if rounded <= 0 {
		return 0, fmt.Errorf("%w: chunk size %d KB is below one %d KB page",
			common.ErrSizeConstraint, sizeKB, pageKB)
	}
	if rounded > MaxLargeChunkKB {
		return 0, fmt.Errorf("%w: chunk size %d KB exceeds the %d KB maximum",
			common.ErrSizeConstraint, rounded, MaxLargeChunkKB)
	}
	if rounded > MaxSmallChunkKB && !largeChunks {
		return 0, fmt.Errorf("%w: chunk size %d KB needs the large-chunk capability (limit %d KB)",
			common.ErrSizeConstraint, rounded, MaxSmallChunkKB)
	}
	return rounded, nil
}

// validateCandidatePair checks a generated (symlink, raw file) pair before
// any side effect: the symlink must conform to the convention and neither
// path may already exist.
func (op *Operator) validateCandidatePair(dbspace string, p naming.ChunkPaths) error {
	if errs := op.val.Symlink(p.Symlink, dbspace, naming.RolePrimary); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if p.MirrorSymlink != "" {
		if errs := op.val.Symlink(p.MirrorSymlink, dbspace, naming.RoleMirror); len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	for _, path := range []string{p.Symlink, p.RawFile, p.MirrorSymlink, p.MirrorRawFile} {
		if path == "" {
			continue
		}
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%w: %s", common.ErrExists, path)
		}
	}
	return nil
}

// materializePair creates the raw file(s), sets their mode and plants the
// symlink(s) for one generated pair. Mirror artifacts follow the primary
// ones step by step.
func (op *Operator) materializePair(p naming.ChunkPaths) error {
	if err := op.eff.CreateRawFile(p.RawFile); err != nil {
		return err
	}
	if p.MirrorRawFile != "" {
		if err := op.eff.CreateRawFile(p.MirrorRawFile); err != nil {
			return err
		}
	}
	if err := op.eff.Chmod(p.RawFile, validate.RawFileMode); err != nil {
		return err
	}
	if p.MirrorRawFile != "" {
		if err := op.eff.Chmod(p.MirrorRawFile, validate.RawFileMode); err != nil {
			return err
		}
	}
	if err := op.eff.Symlink(p.RawFile, p.Symlink); err != nil {
		return err
	}
	if p.MirrorRawFile != "" {
		if err := op.eff.Symlink(p.MirrorRawFile, p.MirrorSymlink); err != nil {
			return err
		}
	}
	return nil
}

// retire removes a chunk's symlink and renames its raw file to
// {raw}.NEE-{symlink-basename}. The raw file is never deleted; the retired
// name both preserves the data and keeps the sequence number burned.
func (op *Operator) retire(symlink, rawFile string) error {
	if rawFile == "" {
		return fmt.Errorf("%w: raw file behind %s could not be resolved", common.ErrNotFound, symlink)
	}
	if err := op.eff.Unlink(symlink); err != nil {
		return err
	}
	retired := filepath.Join(filepath.Dir(rawFile),
		naming.RetiredName(filepath.Base(rawFile), filepath.Base(symlink)))
	return op.eff.Rename(rawFile, retired)
}

// spaceHoldsLogs reports whether any chunk of the space carries a logical
// log, per the log-placement report.
func (op *Operator) spaceHoldsLogs(space *inventory.DBspace) bool {
	if op.logChunks == nil {
		return false
	}
	for _, c := range space.Chunks() {
		if op.logChunks[c.Number] {
			return true
		}
	}
	return false
}
