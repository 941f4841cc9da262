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

// Package journal records every lifecycle run in a local SQLite database.
// The read model is rebuilt from the engine on each refresh and is never
// persisted; the journal is the tool's only durable record of what it did,
// including how far a halted operation got.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/jakesalomon/DBSpaces/internal/util"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunModel is one lifecycle run: create-dbspace, add-chunk, drop-chunk or
// drop-dbspace, executed or dry-run.
type RunModel struct {
	bun.BaseModel `bun:"table:operation_runs"`

	ID         string `bun:"id,pk"`
	Server     string `bun:"server,notnull"`
	Kind       string `bun:"kind,notnull"`
	DBspace    string `bun:"dbspace,notnull"`
	DryRun     bool   `bun:"dry_run,notnull"`
	Status     string `bun:"status,notnull"`
	FailedStep string `bun:"failed_step"`
	Completed  int    `bun:"completed,notnull"` // chunks finished before a halt
	Detail     string `bun:"detail"`
	StartedAt  int64  `bun:"started_at,notnull"` // Unix timestamp
	FinishedAt int64  `bun:"finished_at"`        // Unix timestamp, 0 while running
}

const schema = `CREATE TABLE IF NOT EXISTS operation_runs (
	id          TEXT PRIMARY KEY,
	server      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	dbspace     TEXT NOT NULL,
	dry_run     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	failed_step TEXT,
	completed   INTEGER NOT NULL DEFAULT 0,
	detail      TEXT,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER
)`

// Journal is the operations journal over one SQLite file.
type Journal struct {
	db *bun.DB
}

// execPragma runs a PRAGMA through Query because libsql returns rows for
// PRAGMA statements.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	return rows.Close()
}

// Open opens (creating if needed) the journal at path. PRAGMAs must be set
// explicitly after opening; libsql ignores DSN parameters.
func Open(path string) (*Journal, error) {
	sqlDB, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := execPragma(sqlDB, "PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}
	if err := execPragma(sqlDB, "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting journal_mode: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: bun.NewDB(sqlDB, sqlitedialect.New())}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin records the start of a lifecycle run and returns its ID.
func (j *Journal) Begin(ctx context.Context, server, kind, dbspace string, dryRun bool) (string, error) {
	run := &RunModel{
		ID:        uuid.NewString(),
		Server:    server,
		Kind:      kind,
		DBspace:   dbspace,
		DryRun:    dryRun,
		Status:    StatusRunning,
		StartedAt: time.Now().Unix(),
	}
	err := util.Retry(ctx, func() error {
		_, err := j.db.NewInsert().Model(run).Exec(ctx)
		return err
	}, util.JournalRetryOptions(ctx)...)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return run.ID, nil
}

// Finish closes a run as succeeded or failed. failedStep and detail are
// empty on success; completed carries the partial progress either way.
func (j *Journal) Finish(ctx context.Context, id, status, failedStep, detail string, completed int) error {
	err := util.Retry(ctx, func() error {
		_, err := j.db.NewUpdate().
			Model((*RunModel)(nil)).
			Set("status = ?", status).
			Set("failed_step = ?", failedStep).
			Set("detail = ?", detail).
			Set("completed = ?", completed).
			Set("finished_at = ?", time.Now().Unix()).
			Where("id = ?", id).
			Exec(ctx)
		return err
	}, util.JournalRetryOptions(ctx)...)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 20
	}
	return util.RetryWithResult(ctx, func() ([]RunModel, error) {
		var runs []RunModel
		err := j.db.NewSelect().
			Model(&runs).
			Order("started_at DESC").
			Limit(limit).
			Scan(ctx)
		return runs, err
	}, util.JournalRetryOptions(ctx)...)
}
