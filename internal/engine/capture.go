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
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/inventory"
	"github.com/jakesalomon/DBSpaces/internal/report"
)

// Privileged reports whether the process can use the refreshed summary
// variant, which asks the engine to recompute chunk free counts first.
func Privileged() bool {
	return os.Geteuid() == 0
}

// Version probes the engine's major version from the status banner. The
// status tool encodes the engine's mode in its exit status, so a non-zero
// exit with a parseable banner is still a healthy answer.
func Version(ctx context.Context, r Runner) (int, error) {
	out, runErr := r.Run(ctx, StatusTool, "-")
	major, err := report.ParseVersion(out)
	if err == nil {
		return major, nil
	}
	if runErr != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrUnreachable, runErr)
	}
	return 0, fmt.Errorf("%w: %v", common.ErrUnreachable, err)
}

// CaptureSummary captures the space/chunk summary report. When privileged
// it first tries the refreshed variant and falls back to the standard one.
func CaptureSummary(ctx context.Context, r Runner) (string, error) {
	if Privileged() {
		out, err := r.Run(ctx, StatusTool, "-d", "update")
		if err == nil {
			return out, nil
		}
		log.WithError(err).Debug("refreshed summary unavailable, falling back")
	}
	return r.Run(ctx, StatusTool, "-d")
}

// CaptureLogs captures the log-placement report.
func CaptureLogs(ctx context.Context, r Runner) (string, error) {
	return r.Run(ctx, StatusTool, "-l")
}

// CaptureOrder captures the chunk reserved-page report.
func CaptureOrder(ctx context.Context, r Runner) (string, error) {
	return r.Run(ctx, CheckTool, "-pr")
}

// LoadInventory refreshes the whole read model: version probe, flag
// profile, summary parse, model build, chain resolution. The returned
// OrderErrors carry per-dbspace resolution failures; the inventory itself
// is still usable for the other spaces.
func LoadInventory(ctx context.Context, cfg *config.Config, server string, r Runner) (*inventory.Inventory, inventory.OrderErrors, error) {
	major, err := Version(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	profile, err := report.ProfileForMajor(major)
	if err != nil {
		return nil, nil, err
	}

	summaryText, err := CaptureSummary(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrUnreachable, err)
	}
	summary, err := report.ParseSummary(profile, summaryText)
	if err != nil {
		return nil, nil, err
	}

	inv, err := inventory.Build(cfg, server, summary, os.Readlink)
	if err != nil {
		return nil, nil, err
	}

	orderText, err := CaptureOrder(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrUnreachable, err)
	}
	orderRows, err := report.ParseOrder(orderText)
	if err != nil {
		return nil, nil, err
	}
	orderErrs := inventory.ResolveOrder(inv, orderRows)
	for num, oerr := range orderErrs {
		log.WithError(oerr).WithField("dbspace", num).Warn("chunk order unresolved")
	}
	return inv, orderErrs, nil
}

// LogChunks returns the set of chunk numbers holding logical logs, from the
// log-placement report.
func LogChunks(ctx context.Context, r Runner) (map[int]bool, error) {
	text, err := CaptureLogs(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnreachable, err)
	}
	rows, err := report.ParseLogs(text)
	if err != nil {
		return nil, err
	}
	chunks := make(map[int]bool, len(rows))
	for _, row := range rows {
		chunks[row.ChunkRef] = true
	}
	return chunks, nil
}
