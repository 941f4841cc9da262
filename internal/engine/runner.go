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

// Package engine is the synchronous surface to the database engine's
// reporting and administrative commands. Every invocation blocks until the
// external command returns; callers needing timeouts wrap the context.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/common"
)

// Command names of the engine's administrative tools.
const (
	StatusTool = "onstat"
	CheckTool  = "oncheck"
	SpacesTool = "onspaces"
)

// Runner invokes one external command and returns its combined output.
// ExecRunner is the production implementation; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec, capturing stdout and stderr
// together the way the admin tools interleave them.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.WithField("command", name+" "+strings.Join(args, " ")).Debug("running external command")
	err := cmd.Run()
	if err != nil {
		return out.String(), fmt.Errorf("%w: %s %s: %v",
			common.ErrCommandFailed, name, strings.Join(args, " "), err)
	}
	return out.String(), nil
}
