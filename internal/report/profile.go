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

// Package report parses the engine's textual diagnostic reports: the
// space/chunk summary, the log-placement report, and the chunk reserved-page
// order report. Data rows are recognized by a leading hexadecimal address
// token; single-character indicator flags are read at fixed byte offsets that
// depend on the engine's major version.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Profile locates the character-flag fields within summary-report rows.
// The engine widened several columns between major versions, shifting the
// flag field; the profile is resolved once from the version report and then
// threaded, immutable, into every parse call.
type Profile struct {
	Major         int
	SpaceFlagBase int // byte offset of the flag field in a Dbspaces row
	ChunkFlagBase int // byte offset of the flag field in a Chunks row
}

// Offsets within the flag field itself. These did not move between the
// supported versions.
const (
	spaceMirrorOff = 0 // 'M' mirrored, 'N' not
	spaceTempOff   = 2 // 'T' temporary
	spaceKindOff   = 3 // 'B' blob, 'S' smart blob, 'T' temp, blank regular

	chunkMirrorOff = 0 // 'P' primary, 'M' mirror
	chunkBlobOff   = 3 // 'B' blob, 'S' smart blob
)

var profiles = map[int]Profile{
	11: {Major: 11, SpaceFlagBase: 55, ChunkFlagBase: 65},
	12: {Major: 12, SpaceFlagBase: 64, ChunkFlagBase: 71},
}

// ProfileForMajor returns the flag-offset profile for an engine major
// version. An unrecognized version is a configuration error; the caller must
// not proceed.
func ProfileForMajor(major int) (Profile, error) {
	p, ok := profiles[major]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported engine major version %d", major)
	}
	return p, nil
}

var versionRe = regexp.MustCompile(`Version\s+(\d+)\.(\d+)`)

// ParseVersion extracts the engine major version from the version-report
// banner (e.g. "IBM Informix Dynamic Server Version 12.10.FC12 -- On-Line").
func ParseVersion(text string) (int, error) {
	m := versionRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("no version banner in report output")
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("malformed version %q: %w", m[1], err)
	}
	return major, nil
}

// flagAt returns the byte at offset in line, or ' ' when the line is too
// short. Trailing blanks are routinely trimmed by terminals and pipes, so a
// short line means "flag not set", not malformed input.
func flagAt(line string, offset int) byte {
	if offset < 0 || offset >= len(line) {
		return ' '
	}
	return line[offset]
}

// SpaceMirrored reports whether a Dbspaces row describes a mirrored space.
func (p Profile) SpaceMirrored(line string) bool {
	return flagAt(line, p.SpaceFlagBase+spaceMirrorOff) == 'M'
}

// SpaceTemp reports whether a Dbspaces row describes a temporary space.
func (p Profile) SpaceTemp(line string) bool {
	return flagAt(line, p.SpaceFlagBase+spaceTempOff) == 'T' ||
		flagAt(line, p.SpaceFlagBase+spaceKindOff) == 'T'
}

// SpaceKindChar returns the kind indicator of a Dbspaces row: 'B' for blob,
// 'S' for smart blob, 'T' for temp, ' ' for a regular space.
func (p Profile) SpaceKindChar(line string) byte {
	return flagAt(line, p.SpaceFlagBase+spaceKindOff)
}

// ChunkIsMirror reports whether a Chunks row describes the mirror half of a
// mirrored chunk.
func (p Profile) ChunkIsMirror(line string) bool {
	return flagAt(line, p.ChunkFlagBase+chunkMirrorOff) == 'M'
}

// ChunkBlobChar returns the blob indicator of a Chunks row: 'B' for blob,
// 'S' for smart blob, ' ' otherwise.
func (p Profile) ChunkBlobChar(line string) byte {
	return flagAt(line, p.ChunkFlagBase+chunkBlobOff)
}

var addressRe = regexp.MustCompile(`^[0-9a-f]{8,}$`)

// isDataRow reports whether fields describes a report data row, recognized
// by its leading hexadecimal address token. Headers, footers and commentary
// never start with one.
func isDataRow(fields []string) bool {
	return len(fields) > 0 && addressRe.MatchString(fields[0])
}

func splitRow(line string) []string {
	return strings.Fields(line)
}
