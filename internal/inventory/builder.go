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

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/report"
)

// LinkResolver resolves a symlink to its target raw file. os.Readlink in
// production; a map lookup in tests. A resolver error is not fatal to the
// build — the raw path is simply left empty for that chunk.
type LinkResolver func(symlink string) (string, error)

// Build assembles the read model from a parsed summary report. It fails
// fast when a chunk references a dbspace number with no live record, and
// when a mirror chunk row arrives for an unmirrored space.
func Build(cfg *config.Config, server string, sum *report.Summary, resolve LinkResolver) (*Inventory, error) {
	inv := &Inventory{
		Server: server,
		Spaces: make(map[int]*DBspace, len(sum.Spaces)),
		Chunks: make(map[int]*Chunk, len(sum.Chunks)),
		byName: make(map[string]*DBspace, len(sum.Spaces)),
	}

	for _, row := range sum.Spaces {
		s := &DBspace{
			Number:     row.Number,
			Name:       row.Name,
			Owner:      row.Owner,
			FirstChunk: row.FirstChunk,
			ChunkCount: row.NChunks,
			PageSizeKB: row.PageSizeKB,
			Kind:       spaceKind(row),
			Mirrored:   row.Mirrored,
		}
		inv.Spaces[s.Number] = s
		inv.byName[s.Name] = s
	}

	for _, row := range sum.Chunks {
		if row.IsMirror {
			continue
		}
		space, ok := inv.Spaces[row.DBspace]
		if !ok {
			return nil, fmt.Errorf("chunk %d references dbspace %d: %w",
				row.Number, row.DBspace, common.ErrNotFound)
		}
		c := &Chunk{
			Number:        row.Number,
			DBspaceNumber: space.Number,
			DBspaceName:   space.Name,
			PageSizeKB:    space.PageSizeKB,
			OffsetPages:   row.OffsetPages,
			SizePages:     row.SizePages,
			FreePages:     scaleFree(cfg, space.Kind, row.FreePages),
			SymlinkPath:   row.Path,
			IsFirst:       row.Number == space.FirstChunk,
			NextChunk:     NoNext,
		}
		if resolve != nil {
			if raw, err := resolve(c.SymlinkPath); err == nil {
				c.RawFilePath = raw
			}
		}
		inv.Chunks[c.Number] = c
		space.chunks = append(space.chunks, c)
		space.TotalPages += c.SizePages
		space.FreePages += c.FreePages
	}

	// Mirror halves arrive as separate rows with the primary's chunk number.
	for _, row := range sum.Chunks {
		if !row.IsMirror {
			continue
		}
		c, ok := inv.Chunks[row.Number]
		if !ok {
			return nil, fmt.Errorf("mirror row for unknown chunk %d: %w",
				row.Number, common.ErrNotFound)
		}
		space := inv.Spaces[c.DBspaceNumber]
		if !space.Mirrored {
			return nil, fmt.Errorf("mirror chunk row %d for unmirrored dbspace %s",
				row.Number, space.Name)
		}
		c.MirrorSymlinkPath = row.Path
		if resolve != nil {
			if raw, err := resolve(c.MirrorSymlinkPath); err == nil {
				c.MirrorRawFilePath = raw
			}
		}
	}

	return inv, nil
}

func spaceKind(row report.SpaceRow) Kind {
	switch row.KindChar {
	case 'B':
		return KindBlob
	case 'S':
		return KindSmartBlob
	case 'T':
		return KindTemp
	}
	if row.Temp {
		return KindTemp
	}
	return KindRegular
}

// scaleFree converts a blob chunk's free count from blob-page units into the
// dbspace-page units the size column already uses, so totals and percent
// full come out in one unit.
func scaleFree(cfg *config.Config, kind Kind, free int64) int64 {
	if kind != KindBlob && kind != KindSmartBlob {
		return free
	}
	if cfg.DataPageSize <= 0 || cfg.BlobPageSize <= 0 {
		return free
	}
	return free * int64(cfg.BlobPageSize) / int64(cfg.DataPageSize)
}
