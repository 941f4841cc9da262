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

// Package inventory builds the ephemeral read model of the server's storage
// allocation from parsed reports. The model is rebuilt from the live engine
// on every refresh; nothing here is persisted.
package inventory

import (
	"sort"
)

// Kind classifies a dbspace.
type Kind int

const (
	KindRegular Kind = iota
	KindTemp
	KindBlob
	KindSmartBlob
)

func (k Kind) String() string {
	switch k {
	case KindTemp:
		return "temp"
	case KindBlob:
		return "blob"
	case KindSmartBlob:
		return "smart-blob"
	default:
		return "regular"
	}
}

// NoNext is the successor sentinel on a Chunk: no chunk follows it in its
// dbspace.
const NoNext = 0

// Chunk is one unit of raw storage assigned to a dbspace. Mirror fields are
// populated iff the owning dbspace is mirrored. Order is 1-based creation
// order within the dbspace, 0 until the order resolver has run (or when its
// dbspace's chain could not be resolved).
type Chunk struct {
	Number        int
	DBspaceNumber int
	DBspaceName   string
	PageSizeKB    int
	OffsetPages   int64
	SizePages     int64
	FreePages     int64
	SymlinkPath   string
	RawFilePath   string
	IsFirst       bool
	NextChunk     int
	Order         int

	MirrorSymlinkPath string
	MirrorRawFilePath string
}

// DBspace is a named logical storage area composed of chunks. TotalPages and
// FreePages are sums over its chunks, in the space's own page units.
type DBspace struct {
	Number     int
	Name       string
	Owner      string
	FirstChunk int
	ChunkCount int
	PageSizeKB int
	Kind       Kind
	Mirrored   bool
	TotalPages int64
	FreePages  int64

	chunks []*Chunk
}

// PctFull returns 100 × (total − free) / total. The second return is false
// when the space has no pages at all, in which case the percentage is
// undefined.
func (s *DBspace) PctFull() (float64, bool) {
	if s.TotalPages == 0 {
		return 0, false
	}
	return 100 * float64(s.TotalPages-s.FreePages) / float64(s.TotalPages), true
}

// Chunks returns the space's chunks. When the order resolver has run
// successfully for this space they come back in creation order; otherwise in
// chunk-number order.
func (s *DBspace) Chunks() []*Chunk {
	out := make([]*Chunk, len(s.chunks))
	copy(out, s.chunks)
	ordered := true
	for _, c := range out {
		if c.Order == 0 {
			ordered = false
			break
		}
	}
	if ordered {
		sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	}
	return out
}

// ChunkByOrder returns the chunk with the given 1-based creation order, or
// nil if the order is out of range or unresolved.
func (s *DBspace) ChunkByOrder(order int) *Chunk {
	for _, c := range s.chunks {
		if c.Order == order && order != 0 {
			return c
		}
	}
	return nil
}

// Inventory is the full read model. Spaces and Chunks are keyed by their
// server-assigned numbers; both collections may have gaps where entities
// were dropped, so absence of a key is meaningful.
type Inventory struct {
	Server string
	Spaces map[int]*DBspace
	Chunks map[int]*Chunk

	byName map[string]*DBspace
}

// SpaceByName looks a dbspace up by its unique name.
func (inv *Inventory) SpaceByName(name string) (*DBspace, bool) {
	s, ok := inv.byName[name]
	return s, ok
}

// SpaceNumbers returns the live dbspace numbers in ascending order.
func (inv *Inventory) SpaceNumbers() []int {
	nums := make([]int, 0, len(inv.Spaces))
	for n := range inv.Spaces {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
