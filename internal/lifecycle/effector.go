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

// Package lifecycle drives the four storage lifecycle operations:
// create-dbspace, add-chunk, drop-chunk and drop-dbspace. Each operation is
// a linear sequence of gated steps; the first failing step halts the rest,
// and completed steps are never rolled back.
package lifecycle

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/engine"
)

// Effector performs the side effects of a lifecycle operation. OSEffector
// executes them; Recorder only describes them, giving every operation a
// dry-run mode with identical control flow.
type Effector interface {
	CreateRawFile(path string) error
	Chmod(path string, mode fs.FileMode) error
	Symlink(target, link string) error
	Unlink(path string) error
	Rename(oldPath, newPath string) error
	RunSpaces(ctx context.Context, args []string) error
}

// OSEffector mutates the real filesystem and invokes the real privileged
// space-management command.
type OSEffector struct {
	Runner engine.Runner
}

func (e *OSEffector) CreateRawFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0660)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", common.ErrExists, path)
		}
		return fmt.Errorf("creating raw file %s: %w", path, err)
	}
	return f.Close()
}

func (e *OSEffector) Chmod(path string, mode fs.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

func (e *OSEffector) Symlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", common.ErrExists, link)
		}
		return fmt.Errorf("symlink %s -> %s: %w", link, target, err)
	}
	return nil
}

func (e *OSEffector) Unlink(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}

func (e *OSEffector) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

func (e *OSEffector) RunSpaces(ctx context.Context, args []string) error {
	out, err := e.Runner.Run(ctx, engine.SpacesTool, args...)
	if err != nil {
		log.WithField("output", strings.TrimSpace(out)).Error("space-management command failed")
		return err
	}
	log.WithField("output", strings.TrimSpace(out)).Debug("space-management command succeeded")
	return nil
}

// Recorder is the dry-run effector: it records a description of every
// intended action and reports success for all of them.
type Recorder struct {
	Actions []string
}

func (r *Recorder) record(format string, args ...any) error {
	r.Actions = append(r.Actions, fmt.Sprintf(format, args...))
	return nil
}

func (r *Recorder) CreateRawFile(path string) error {
	return r.record("create raw file %s", path)
}

func (r *Recorder) Chmod(path string, mode fs.FileMode) error {
	return r.record("chmod %04o %s", mode, path)
}

func (r *Recorder) Symlink(target, link string) error {
	return r.record("symlink %s -> %s", link, target)
}

func (r *Recorder) Unlink(path string) error {
	return r.record("unlink %s", path)
}

func (r *Recorder) Rename(oldPath, newPath string) error {
	return r.record("rename %s -> %s", oldPath, newPath)
}

func (r *Recorder) RunSpaces(_ context.Context, args []string) error {
	return r.record("run %s %s", engine.SpacesTool, strings.Join(args, " "))
}
