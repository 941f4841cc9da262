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

// Package validate enforces the naming, ownership and permission invariants
// on existing and candidate storage paths. Checks collect every violation
// instead of stopping at the first, so a caller sees the complete list of
// problems at once.
package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/naming"
)

// RawFileMode is the only permission set a raw chunk file may carry:
// read/write for owner and group, nothing for others.
const RawFileMode fs.FileMode = 0660

// Validator checks paths against one server's configuration.
type Validator struct {
	cfg    *config.Config
	server string
}

func New(cfg *config.Config, server string) *Validator {
	return &Validator{cfg: cfg, server: server}
}

// RawFile validates an existing raw chunk file: a regular file at
// {top}/files/file.NNNNN, owned by the invoking identity, mode exactly
// 0660. Returns every violation found.
func (v *Validator) RawFile(path string) []error {
	var errs []error

	dir := filepath.Dir(path)
	if dir != v.cfg.PrimaryDir() && dir != v.cfg.MirrorDir() {
		errs = append(errs, fmt.Errorf("%w: %s is outside the raw-file directories (%s, %s)",
			common.ErrInvalidName, path, v.cfg.PrimaryDir(), v.cfg.MirrorDir()))
	}
	base := filepath.Base(path)
	if !v.rawBaseRe().MatchString(base) {
		errs = append(errs, fmt.Errorf("%w: basename %q does not match file.%s",
			common.ErrInvalidName, base, strings.Repeat("N", v.cfg.RawDecimals)))
	}

	info, err := os.Lstat(path)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s", common.ErrNotFound, path))
		return errs
	}
	if !info.Mode().IsRegular() {
		errs = append(errs, fmt.Errorf("%w: %s is not a regular file", common.ErrInvalidName, path))
	}
	if perm := info.Mode().Perm(); perm != RawFileMode {
		errs = append(errs, fmt.Errorf("%w: %s has mode %04o, want %04o",
			common.ErrPermission, path, perm, RawFileMode))
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		if int(st.Uid) != os.Getuid() {
			errs = append(errs, fmt.Errorf("%w: %s is owned by uid %d, not the invoking uid %d",
				common.ErrPermission, path, st.Uid, os.Getuid()))
		}
	}
	return errs
}

// Symlink validates a chunk symlink path for the given dbspace and role:
// it must live in the symlink directory, its basename must follow
// {server}.{dbspace}.{P|m}.NNN, the server component must name the live
// server (a shared-memory alias compares equal), and the index must lie in
// [1,999]. The path itself need not exist; candidates are validated before
// creation.
func (v *Validator) Symlink(path, dbspace string, role naming.Role) []error {
	var errs []error

	if filepath.Dir(path) != v.cfg.SymlinkDir() {
		errs = append(errs, fmt.Errorf("%w: %s is outside the symlink directory %s",
			common.ErrInvalidName, path, v.cfg.SymlinkDir()))
	}

	base := filepath.Base(path)
	parts := strings.Split(base, ".")
	if len(parts) != 4 {
		errs = append(errs, fmt.Errorf("%w: basename %q does not match {server}.{dbspace}.{%s}.%s",
			common.ErrInvalidName, base, role, strings.Repeat("N", v.cfg.ChunkDecimals)))
		return errs
	}
	server, space, roleCh, idx := parts[0], parts[1], parts[2], parts[3]

	if config.NormalizeServer(server) != config.NormalizeServer(v.server) {
		errs = append(errs, fmt.Errorf("%w: symlink server component %q does not name server %q",
			common.ErrInvalidName, server, v.server))
	}
	if space != dbspace {
		errs = append(errs, fmt.Errorf("%w: symlink dbspace component %q does not name dbspace %q",
			common.ErrInvalidName, space, dbspace))
	}
	if roleCh != string(role) {
		errs = append(errs, fmt.Errorf("%w: symlink role %q, want %q",
			common.ErrInvalidName, roleCh, role))
	}
	if len(idx) != v.cfg.ChunkDecimals {
		errs = append(errs, fmt.Errorf("%w: symlink index %q is not %d digits",
			common.ErrInvalidName, idx, v.cfg.ChunkDecimals))
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 1 || n > 999 {
		errs = append(errs, fmt.Errorf("%w: symlink index %q outside [1,999]",
			common.ErrInvalidName, idx))
	}
	return errs
}

// DBspaceName validates a candidate dbspace name: a lowercase letter
// followed by lowercase letters, digits or underscores.
func DBspaceName(name string) error {
	if !dbspaceNameRe.MatchString(name) {
		return fmt.Errorf("%w: dbspace name %q must start with a lowercase letter followed by letters, digits or underscores",
			common.ErrInvalidName, name)
	}
	return nil
}

var dbspaceNameRe = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)

func (v *Validator) rawBaseRe() *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^file\.\d{%d}$`, v.cfg.RawDecimals))
}
