// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package duckdb implements the dfc interfaces on top of an embedded
// DuckDB database. Every session gets its own in-memory database.
//
// Results and registered record batches go through the driver's Arrow
// interface, so the package must be built with the duckdb_arrow tag.
// Without it NewEngine fails with ErrorNotImplemented.
package duckdb

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/objectstore"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const (
	engineName = "dfc-duckdb"
	vendorName = "DuckDB"

	DefaultBatchSize = 8192
)

type Options struct {
	// BatchSize is the maximum number of rows per collected record
	// batch. Zero means DefaultBatchSize.
	BatchSize int
	// Threads and MemoryLimit are handed to each database; zero values
	// keep the engine defaults.
	Threads     int
	MemoryLimit string
	// StagingDir is the parent of the per-session folders the engine
	// spills to when a query exceeds MemoryLimit. Empty means
	// os.TempDir().
	StagingDir string
	// Store serves s3:// sources and targets. Nil disables them.
	Store  *objectstore.Store
	Logger *slog.Logger
}

// Engine creates DuckDB backed sessions.
type Engine struct {
	enginebase.EngineImplBase

	opts Options
}

var _ dfc.Engine = (*Engine)(nil)

// NewEngine returns an engine using alloc for all Arrow memory. A nil
// alloc means memory.DefaultAllocator.
func NewEngine(ctx context.Context, opts Options, alloc memory.Allocator) (*Engine, error) {
	if !arrowEnabled {
		return nil, dfc.Errorf(dfc.ErrorNotImplemented,
			"%s was built without the duckdb_arrow tag", engineName)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	base, err := enginebase.NewEngineImplBase(ctx, enginebase.NewEngineInfo(engineName, vendorName), alloc)
	if err != nil {
		return nil, err
	}
	base.SetLogger(opts.Logger)

	e := &Engine{EngineImplBase: base, opts: opts}
	e.detectVersion(ctx)
	return e, nil
}

// detectVersion replaces the binding version with the library version
// reported by the engine itself.
func (e *Engine) detectVersion(ctx context.Context) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT library_version FROM pragma_version()").Scan(&version); err != nil {
		e.Logger.Debug("engine version unavailable", "error", err)
		return
	}
	e.Info.VendorVersion = version
}

func (e *Engine) NewSessionContext(ctx context.Context) (dfc.SessionContext, error) {
	ctx, span := e.StartSpan(ctx, "Engine.NewSessionContext")
	db, err := openDatabase(ctx, &e.opts)
	if err != nil {
		err = e.translateError(err, "open database")
		enginebase.EndSpan(span, err)
		return nil, err
	}
	enginebase.EndSpan(span, nil)

	e.Logger.Debug("session created", "spill_dir", db.stagingDir)
	return &sessionContext{eng: e, db: db}, nil
}

// Close flushes and stops tracing. Sessions stay usable.
func (e *Engine) Close(ctx context.Context) error {
	return e.EngineImplBase.Close(ctx)
}
