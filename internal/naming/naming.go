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

// Package naming implements the deterministic naming convention for chunk
// symlinks and their raw storage files, primary and mirror.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/jakesalomon/DBSpaces/internal/config"
)

// Role selects the primary or mirror side of a chunk.
type Role string

const (
	RolePrimary Role = "P"
	RoleMirror  Role = "m"
)

// retiredInfix joins a retired raw file's original basename to the symlink
// basename that used to reference it.
const retiredInfix = ".NEE-"

// rawSeqRe matches a raw-file basename and captures its sequence number.
// Retired names ("file.00007.NEE-...") still match: they must keep counting
// toward the sequence high-water mark so a number is never reused.
var rawSeqRe = regexp.MustCompile(`^file\.(\d+)`)

// symlinkIdxRe captures the trailing relative-index component of a symlink
// basename.
var symlinkIdxRe = regexp.MustCompile(`\.(\d+)$`)

// ChunkPaths is one generated (symlink, raw file) pair, with the mirror
// counterpart populated for mirrored spaces.
type ChunkPaths struct {
	Index         int // 1-based relative chunk index within the dbspace
	Seq           int // system-wide raw-file sequence number
	Symlink       string
	RawFile       string
	MirrorSymlink string
	MirrorRawFile string
}

// Generator produces convention-conforming paths for one server.
type Generator struct {
	cfg    *config.Config
	server string
}

func New(cfg *config.Config, server string) *Generator {
	return &Generator{cfg: cfg, server: server}
}

// SymlinkBase returns the symlink basename
// {server}.{dbspace}.{P|m}.{index} with the configured zero padding.
func (g *Generator) SymlinkBase(dbspace string, role Role, index int) string {
	return fmt.Sprintf("%s.%s.%s.%0*d", g.server, dbspace, role, g.cfg.ChunkDecimals, index)
}

// SymlinkPath returns the full symlink path under the configured symlink
// directory.
func (g *Generator) SymlinkPath(dbspace string, role Role, index int) string {
	return filepath.Join(g.cfg.SymlinkDir(), g.SymlinkBase(dbspace, role, index))
}

// RawBase returns the raw-file basename file.{seq} with the configured zero
// padding.
func (g *Generator) RawBase(seq int) string {
	return fmt.Sprintf("file.%0*d", g.cfg.RawDecimals, seq)
}

// RawPath returns the full raw-file path under the primary or mirror top
// directory.
func (g *Generator) RawPath(role Role, seq int) string {
	dir := g.cfg.PrimaryDir()
	if role == RoleMirror {
		dir = g.cfg.MirrorDir()
	}
	return filepath.Join(dir, g.RawBase(seq))
}

// RetiredName returns the basename a raw file is renamed to when its chunk
// is dropped: {raw-basename}.NEE-{symlink-basename}. The file is renamed,
// never deleted, so the data stays recoverable.
func RetiredName(rawBase, symlinkBase string) string {
	return rawBase + retiredInfix + symlinkBase
}

// SequenceOf extracts the sequence number from a raw-file basename, retired
// or active. The second return is false for names outside the convention.
func SequenceOf(base string) (int, bool) {
	m := rawSeqRe.FindStringSubmatch(base)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// IndexOf extracts the relative chunk index from a symlink basename. The
// second return is false for names without a trailing numeric component.
func IndexOf(base string) (int, bool) {
	m := symlinkIdxRe.FindStringSubmatch(base)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// NextIndexFrom returns 1 + the highest relative index among the given
// symlink basenames. Dropped chunks leave gaps in the live indexes, so the
// high-water mark, not the count, decides the next index.
func NextIndexFrom(names []string) int {
	max := 0
	for _, name := range names {
		if idx, ok := IndexOf(name); ok && idx > max {
			max = idx
		}
	}
	return max + 1
}

// NextSequenceFrom returns 1 + the highest sequence number among the given
// basenames. Retired names count toward the high-water mark but are never
// offered as targets; names outside the convention are ignored.
func NextSequenceFrom(names []string) int {
	max := 0
	for _, name := range names {
		if seq, ok := SequenceOf(name); ok && seq > max {
			max = seq
		}
	}
	return max + 1
}

// NextSequence scans the primary and mirror raw-file directories and
// returns the next system-wide sequence number. A missing directory
// contributes nothing; both missing yields 1.
func (g *Generator) NextSequence() (int, error) {
	var names []string
	for _, dir := range []string{g.cfg.PrimaryDir(), g.cfg.MirrorDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	return NextSequenceFrom(names), nil
}

// Pairs generates count contiguous (symlink, raw file) pairs for a dbspace,
// starting at the 1-based relative index firstIndex and at the current
// sequence high-water mark. Mirror pairs reuse the primary's index and
// sequence, substituting only the role letter and the top directory.
func (g *Generator) Pairs(dbspace string, firstIndex, count int, mirrored bool) ([]ChunkPaths, error) {
	if firstIndex < 1 {
		return nil, fmt.Errorf("relative chunk index %d out of range", firstIndex)
	}
	if count < 1 {
		return nil, fmt.Errorf("pair count %d out of range", count)
	}
	seq, err := g.NextSequence()
	if err != nil {
		return nil, err
	}

	pairs := make([]ChunkPaths, 0, count)
	for i := 0; i < count; i++ {
		p := ChunkPaths{
			Index:   firstIndex + i,
			Seq:     seq + i,
			Symlink: g.SymlinkPath(dbspace, RolePrimary, firstIndex+i),
			RawFile: g.RawPath(RolePrimary, seq+i),
		}
		if mirrored {
			p.MirrorSymlink = g.SymlinkPath(dbspace, RoleMirror, firstIndex+i)
			p.MirrorRawFile = g.RawPath(RoleMirror, seq+i)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
