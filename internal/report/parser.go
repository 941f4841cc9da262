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

package report

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/jakesalomon/DBSpaces/internal/common"
)

// NoNextChunk is the successor sentinel in the reserved-page order report:
// a chunk whose next field is absent or zero is the last of its dbspace.
const NoNextChunk = 0

// SpaceRow is one data row of the summary report's Dbspaces section.
type SpaceRow struct {
	Address    string
	Number     int
	FirstChunk int
	NChunks    int
	PageSizeKB int
	Owner      string
	Name       string
	Mirrored   bool
	Temp       bool
	KindChar   byte // 'B' blob, 'S' smart blob, 'T' temp, ' ' regular
}

// ChunkRow is one data row of the summary report's Chunks section. A
// mirrored chunk produces two rows with the same chunk number; the mirror
// half is marked IsMirror and carries the mirror symlink path.
type ChunkRow struct {
	Address     string
	Number      int
	DBspace     int
	OffsetPages int64
	SizePages   int64
	FreePages   int64 // blob-page units for blob chunks
	BlobPages   int64 // 0 unless the chunk belongs to a blob space
	Path        string
	IsMirror    bool
	BlobChar    byte // 'B' blob, 'S' smart blob, ' ' otherwise
}

// Summary is the parsed space/chunk summary report.
type Summary struct {
	Spaces []SpaceRow
	Chunks []ChunkRow
}

// LogRow is one logical-log row of the log-placement report. ChunkRef is the
// chunk holding the log's first page.
type LogRow struct {
	Address   string
	Number    int
	UniqID    int64
	ChunkRef  int
	SizePages int64
	UsedPages int64
}

// OrderRow is one data row of the reserved-page order report. Next is
// NoNextChunk for the last chunk of a dbspace.
type OrderRow struct {
	Address string
	Chunk   int
	DBspace int
	Next    int
}

// ParseSummary parses the space/chunk summary report. Returns
// common.ErrUnreachable when the text contains no data rows at all: an
// engine that is down produces headers or nothing, never an empty inventory.
func ParseSummary(p Profile, text string) (*Summary, error) {
	const (
		secNone = iota
		secSpaces
		secChunks
	)
	sum := &Summary{}
	section := secNone

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Dbspaces"):
			section = secSpaces
			continue
		case strings.HasPrefix(trimmed, "Chunks"):
			section = secChunks
			continue
		}

		fields := splitRow(line)
		if !isDataRow(fields) {
			continue
		}
		switch section {
		case secSpaces:
			row, err := parseSpaceRow(p, line, fields)
			if err != nil {
				return nil, err
			}
			sum.Spaces = append(sum.Spaces, row)
		case secChunks:
			row, err := parseChunkRow(p, line, fields)
			if err != nil {
				return nil, err
			}
			sum.Chunks = append(sum.Chunks, row)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(sum.Spaces) == 0 && len(sum.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no data rows in summary report", common.ErrUnreachable)
	}
	return sum, nil
}

// parseSpaceRow parses an address-led Dbspaces row. Numeric fields come from
// fixed leading positions, owner and name from the trailing two; the
// character flags in between are read at the profile's byte offsets because
// they can contain embedded blanks.
func parseSpaceRow(p Profile, line string, fields []string) (SpaceRow, error) {
	if len(fields) < 8 {
		return SpaceRow{}, fmt.Errorf("malformed dbspace row %q", strings.TrimSpace(line))
	}
	number, err := atoi(fields[1])
	if err != nil {
		return SpaceRow{}, fmt.Errorf("dbspace row: %w", err)
	}
	fchunk, err := atoi(fields[3])
	if err != nil {
		return SpaceRow{}, fmt.Errorf("dbspace %d: %w", number, err)
	}
	nchunks, err := atoi(fields[4])
	if err != nil {
		return SpaceRow{}, fmt.Errorf("dbspace %d: %w", number, err)
	}
	pgsize, err := atoi(fields[5])
	if err != nil {
		return SpaceRow{}, fmt.Errorf("dbspace %d: %w", number, err)
	}
	return SpaceRow{
		Address:    fields[0],
		Number:     number,
		FirstChunk: fchunk,
		NChunks:    nchunks,
		PageSizeKB: pgsize / 1024,
		Owner:      fields[len(fields)-2],
		Name:       fields[len(fields)-1],
		Mirrored:   p.SpaceMirrored(line),
		Temp:       p.SpaceTemp(line),
		KindChar:   p.SpaceKindChar(line),
	}, nil
}

// parseChunkRow parses an address-led Chunks row. A blob chunk carries an
// extra bpages column; other rows leave it blank, so the field count tells
// the two layouts apart.
func parseChunkRow(p Profile, line string, fields []string) (ChunkRow, error) {
	if len(fields) < 8 {
		return ChunkRow{}, fmt.Errorf("malformed chunk row %q", strings.TrimSpace(line))
	}
	number, err := atoi(fields[1])
	if err != nil {
		return ChunkRow{}, fmt.Errorf("chunk row: %w", err)
	}
	dbs, err := atoi(fields[2])
	if err != nil {
		return ChunkRow{}, fmt.Errorf("chunk %d: %w", number, err)
	}
	offset, err := atoi64(fields[3])
	if err != nil {
		return ChunkRow{}, fmt.Errorf("chunk %d: %w", number, err)
	}
	size, err := atoi64(fields[4])
	if err != nil {
		return ChunkRow{}, fmt.Errorf("chunk %d: %w", number, err)
	}
	free, err := atoi64(fields[5])
	if err != nil {
		return ChunkRow{}, fmt.Errorf("chunk %d: %w", number, err)
	}
	var bpages int64
	if len(fields) >= 9 {
		bpages, err = atoi64(fields[6])
		if err != nil {
			return ChunkRow{}, fmt.Errorf("chunk %d: %w", number, err)
		}
	}
	return ChunkRow{
		Address:     fields[0],
		Number:      number,
		DBspace:     dbs,
		OffsetPages: offset,
		SizePages:   size,
		FreePages:   free,
		BlobPages:   bpages,
		Path:        fields[len(fields)-1],
		IsMirror:    p.ChunkIsMirror(line),
		BlobChar:    p.ChunkBlobChar(line),
	}, nil
}

// ParseLogs parses the log-placement report's logical-log section. Only
// address-led rows whose begin field has the chunk:page form are log rows;
// everything else in the report is ignored.
func ParseLogs(text string) ([]LogRow, error) {
	var rows []LogRow
	sawData := false

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		fields := splitRow(line)
		if !isDataRow(fields) {
			continue
		}
		sawData = true
		if len(fields) < 8 {
			continue
		}
		begin := fields[4]
		colon := strings.IndexByte(begin, ':')
		if colon <= 0 {
			continue
		}
		chunkRef, err := atoi(begin[:colon])
		if err != nil {
			continue
		}
		number, err := atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("log row: %w", err)
		}
		uniq, err := atoi64(fields[3])
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", number, err)
		}
		size, err := atoi64(fields[5])
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", number, err)
		}
		used, err := atoi64(fields[6])
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", number, err)
		}
		rows = append(rows, LogRow{
			Address:   fields[0],
			Number:    number,
			UniqID:    uniq,
			ChunkRef:  chunkRef,
			SizePages: size,
			UsedPages: used,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawData {
		return nil, fmt.Errorf("%w: no data rows in log-placement report", common.ErrUnreachable)
	}
	return rows, nil
}

// ParseOrder parses the chunk reserved-page report into successor rows. A
// row with five fields has no successor recorded; so does an explicit zero.
func ParseOrder(text string) ([]OrderRow, error) {
	var rows []OrderRow

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		fields := splitRow(sc.Text())
		if !isDataRow(fields) {
			continue
		}
		if len(fields) < 5 {
			return nil, fmt.Errorf("malformed order row %q", strings.Join(fields, " "))
		}
		chunk, err := atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("order row: %w", err)
		}
		dbs, err := atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk, err)
		}
		next := NoNextChunk
		if len(fields) >= 6 {
			next, err = atoi(fields[5])
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", chunk, err)
			}
		}
		rows = append(rows, OrderRow{
			Address: fields[0],
			Chunk:   chunk,
			DBspace: dbs,
			Next:    next,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows in reserved-page report", common.ErrUnreachable)
	}
	return rows, nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad numeric field %q", s)
	}
	return n, nil
}

func atoi64(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric field %q", s)
	}
	return n, nil
}
