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

package engine

import (
	"strconv"

	"github.com/jakesalomon/DBSpaces/internal/inventory"
)

// CreateSpaceSpec describes one privileged create-space invocation.
type CreateSpaceSpec struct {
	Name         string
	Kind         inventory.Kind
	Path         string // primary symlink path
	OffsetKB     int64
	SizeKB       int64
	PageSizeKB   int    // regular and temp spaces only
	MirrorPath   string // empty for unmirrored
	MirrorOffKB  int64
	BlobPageMult int // blob spaces only: blob page as a multiple of data pages
}

// CreateSpaceArgs builds the argument list for the create mode of the
// space-management command.
func CreateSpaceArgs(spec CreateSpaceSpec) []string {
	args := []string{"-c"}
	switch spec.Kind {
	case inventory.KindBlob:
		args = append(args, "-b", spec.Name)
	case inventory.KindTemp:
		args = append(args, "-t", spec.Name)
	case inventory.KindSmartBlob:
		args = append(args, "-S", spec.Name)
	default:
		args = append(args, "-d", spec.Name)
	}
	args = append(args,
		"-p", spec.Path,
		"-o", strconv.FormatInt(spec.OffsetKB, 10),
		"-s", strconv.FormatInt(spec.SizeKB, 10),
	)
	switch spec.Kind {
	case inventory.KindRegular, inventory.KindTemp:
		if spec.PageSizeKB > 0 {
			args = append(args, "-k", strconv.Itoa(spec.PageSizeKB))
		}
	case inventory.KindBlob:
		if spec.BlobPageMult > 0 {
			args = append(args, "-g", strconv.Itoa(spec.BlobPageMult))
		}
	}
	if spec.MirrorPath != "" {
		args = append(args, "-m", spec.MirrorPath, strconv.FormatInt(spec.MirrorOffKB, 10))
	}
	return args
}

// AddChunkArgs builds the argument list for the add mode.
func AddChunkArgs(space, path string, offsetKB, sizeKB int64, mirrorPath string, mirrorOffKB int64) []string {
	args := []string{
		"-a", space,
		"-p", path,
		"-o", strconv.FormatInt(offsetKB, 10),
		"-s", strconv.FormatInt(sizeKB, 10),
	}
	if mirrorPath != "" {
		args = append(args, "-m", mirrorPath, strconv.FormatInt(mirrorOffKB, 10))
	}
	return args
}

// DropChunkArgs builds the argument list for dropping one chunk. -y
// suppresses the tool's interactive confirmation.
func DropChunkArgs(space, path string, offsetKB int64) []string {
	return []string{
		"-d", space,
		"-p", path,
		"-o", strconv.FormatInt(offsetKB, 10),
		"-y",
	}
}

// DropSpaceArgs builds the argument list for dropping a whole dbspace.
func DropSpaceArgs(space string) []string {
	return []string{"-d", space, "-y"}
}
