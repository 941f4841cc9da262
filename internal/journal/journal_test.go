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

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_BeginAndFinish(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Begin(ctx, "prod1", "create-dbspace", "data_dbs", false)
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	if id == "" {
		t.Fatal("Expected non-empty run ID")
	}

	runs, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != StatusRunning {
		t.Errorf("Expected status %q, got %q", StatusRunning, runs[0].Status)
	}
	if runs[0].DBspace != "data_dbs" {
		t.Errorf("Expected dbspace data_dbs, got %q", runs[0].DBspace)
	}
	if runs[0].FinishedAt != 0 {
		t.Errorf("Expected zero finished_at while running, got %d", runs[0].FinishedAt)
	}

	if err := j.Finish(ctx, id, StatusSucceeded, "", "", 1); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	runs, err = j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if runs[0].Status != StatusSucceeded {
		t.Errorf("Expected status %q, got %q", StatusSucceeded, runs[0].Status)
	}
	if runs[0].Completed != 1 {
		t.Errorf("Expected completed 1, got %d", runs[0].Completed)
	}
	if runs[0].FinishedAt == 0 {
		t.Error("Expected finished_at to be set")
	}
}

func TestJournal_FailedRunRecordsStep(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Begin(ctx, "prod1", "add-chunk", "data_dbs", false)
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}

	err = j.Finish(ctx, id, StatusFailed, "add-chunk-command", "onspaces exited with status 1", 1)
	if err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	runs, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if runs[0].Status != StatusFailed {
		t.Errorf("Expected status %q, got %q", StatusFailed, runs[0].Status)
	}
	if runs[0].FailedStep != "add-chunk-command" {
		t.Errorf("Expected failed step add-chunk-command, got %q", runs[0].FailedStep)
	}
	if runs[0].Completed != 1 {
		t.Errorf("Expected completed 1, got %d", runs[0].Completed)
	}
}

func TestJournal_RecentOrdersNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	kinds := []string{"create-dbspace", "add-chunk", "drop-chunk"}
	for i, kind := range kinds {
		id, err := j.Begin(ctx, "prod1", kind, "data_dbs", false)
		if err != nil {
			t.Fatalf("Failed to begin run %d: %v", i, err)
		}
		if err := j.Finish(ctx, id, StatusSucceeded, "", "", 0); err != nil {
			t.Fatalf("Failed to finish run %d: %v", i, err)
		}
		// started_at has second precision
		time.Sleep(1100 * time.Millisecond)
	}

	runs, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs with limit 2, got %d", len(runs))
	}
	if runs[0].Kind != "drop-chunk" {
		t.Errorf("Expected newest run first (drop-chunk), got %q", runs[0].Kind)
	}
	if runs[1].Kind != "add-chunk" {
		t.Errorf("Expected add-chunk second, got %q", runs[1].Kind)
	}
}

func TestJournal_DryRunFlagPersists(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	id, err := j.Begin(ctx, "prod1", "drop-dbspace", "temp_dbs", true)
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	if err := j.Finish(ctx, id, StatusSucceeded, "", "", 0); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	runs, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if !runs[0].DryRun {
		t.Error("Expected dry_run to be recorded")
	}
}
