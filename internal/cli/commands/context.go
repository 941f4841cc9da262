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

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/engine"
	"github.com/jakesalomon/DBSpaces/internal/inventory"
	"github.com/jakesalomon/DBSpaces/internal/journal"
	"github.com/jakesalomon/DBSpaces/internal/lifecycle"
)

// runContext carries everything a command needs after the shared setup:
// config, server identity, a runner for the engine utilities, and the
// freshly refreshed read model.
type runContext struct {
	cfg       *config.Config
	server    string
	runner    engine.Runner
	inv       *inventory.Inventory
	orderErrs inventory.OrderErrors
}

// loadRunContext performs the setup shared by every command that talks to
// the server: load config, resolve the server name, refresh the inventory.
func loadRunContext(ctx context.Context) (*runContext, error) {
	path := flagConfig
	if path == "" {
		path = config.FilePath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	server := config.ServerName()
	if server == "" {
		return nil, fmt.Errorf("no server configured: set DBSPACES_SERVER or INFORMIXSERVER")
	}

	runner := engine.ExecRunner{}
	inv, orderErrs, err := engine.LoadInventory(ctx, cfg, server, runner)
	if err != nil {
		return nil, err
	}
	return &runContext{
		cfg:       cfg,
		server:    server,
		runner:    runner,
		inv:       inv,
		orderErrs: orderErrs,
	}, nil
}

// newOperator builds the lifecycle operator, honoring --dry-run, and loads
// the log placement so drops can refuse spaces the server still logs into.
// The returned recorder is nil unless dry-run is active.
func (rc *runContext) newOperator(ctx context.Context) (*lifecycle.Operator, *lifecycle.Recorder) {
	var rec *lifecycle.Recorder
	var eff lifecycle.Effector
	if flagDryRun {
		rec = &lifecycle.Recorder{}
		eff = rec
	} else {
		eff = &lifecycle.OSEffector{Runner: rc.runner}
	}

	op := lifecycle.New(rc.cfg, rc.server, rc.inv, eff)
	if chunks, err := engine.LogChunks(ctx, rc.runner); err != nil {
		logrus.WithError(err).Warn("log placement unavailable, drop guard disabled")
	} else {
		op.SetLogChunks(chunks)
	}
	return op, rec
}

// recordRun wraps a lifecycle operation with journal bookkeeping. Journal
// failures are logged but never change the operation's outcome.
func recordRun(ctx context.Context, server, kind, dbspace string, fn func() (int, error)) error {
	j, jerr := journal.Open(config.JournalPath())
	if jerr != nil {
		logrus.WithError(jerr).Warn("operation journal unavailable")
	}

	var runID string
	if j != nil {
		defer j.Close()
		runID, jerr = j.Begin(ctx, server, kind, dbspace, flagDryRun)
		if jerr != nil {
			logrus.WithError(jerr).Warn("failed to record run start")
		}
	}

	completed, err := fn()

	if j != nil && runID != "" {
		status := journal.StatusSucceeded
		failedStep, detail := "", ""
		if err != nil {
			status = journal.StatusFailed
			detail = err.Error()
			var step *lifecycle.StepError
			if errors.As(err, &step) {
				failedStep = step.Step
				if step.Completed > 0 {
					completed = step.Completed
				}
			}
		}
		if jerr := j.Finish(ctx, runID, status, failedStep, detail, completed); jerr != nil {
			logrus.WithError(jerr).Warn("failed to record run end")
		}
	}
	return err
}

// printDryRun prints the actions a dry run collected.
func printDryRun(rec *lifecycle.Recorder) {
	fmt.Println("Dry run; would perform:")
	if len(rec.Actions) == 0 {
		fmt.Println("  (nothing)")
		return
	}
	for _, a := range rec.Actions {
		fmt.Printf("  %s\n", a)
	}
}
