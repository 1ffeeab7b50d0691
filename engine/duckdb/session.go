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

package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
	"github.com/apache/arrow-datafusion-c/go/dfc/utils"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	goduckdb "github.com/marcboeker/go-duckdb/v2"
	"go.opentelemetry.io/otel/attribute"
)

const catalogLookupSQL = `SELECT table_name, table_type FROM information_schema.tables
WHERE table_catalog = current_database() AND table_schema = 'main'
AND lower(table_name) = lower(?) LIMIT 1`

type sessionContext struct {
	eng *Engine
	db  *database

	// mu serializes catalog changes so that the existence check and the
	// CREATE statement cannot interleave.
	mu     sync.Mutex
	closed bool
}

var _ dfc.SessionContext = (*sessionContext)(nil)

type catalogEntry struct {
	name string
	view bool
}

func (s *sessionContext) lookup(ctx context.Context, name string) (entry catalogEntry, found bool, err error) {
	var tableType string
	err = s.db.sql.QueryRowContext(ctx, catalogLookupSQL, name).Scan(&entry.name, &tableType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return entry, false, nil
	case err != nil:
		return entry, false, s.eng.translateError(err, "catalog lookup")
	}
	entry.view = tableType == "VIEW"
	return entry, true, nil
}

func (s *sessionContext) checkOpen() error {
	if s.closed {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorInternal, "session context is closed")
	}
	return nil
}

// beginRegister validates name and makes sure no table is registered
// under it. The caller must hold s.mu.
func (s *sessionContext) beginRegister(ctx context.Context, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.eng.ErrorHelper.CheckUTF8("table name", name); err != nil {
		return err
	}
	if name == "" {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorPlan, "table name must not be empty")
	}
	_, found, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}
	if found {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorExecution, "The table '%s' already exists", name)
	}
	return nil
}

func (s *sessionContext) exec(ctx context.Context, op, statement string) error {
	s.eng.Logger.DebugContext(ctx, "exec", slog.String("op", op), slog.String("sql", statement))
	if _, err := s.db.sql.ExecContext(ctx, statement); err != nil {
		return s.eng.translateError(err, op)
	}
	return nil
}

func (s *sessionContext) SQL(ctx context.Context, query string) (df dfc.DataFrame, err error) {
	ctx, span := s.eng.StartSpan(ctx, "SessionContext.SQL")
	defer func() { enginebase.EndSpan(span, err) }()

	if err := s.eng.ErrorHelper.CheckUTF8("sql", query); err != nil {
		return nil, err
	}
	text := stripTrailingSemicolons(query)
	if text == "" {
		return nil, s.eng.ErrorHelper.Errorf(dfc.ErrorSQL, "no SQL statement was provided")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	conn, err := s.db.sql.Conn(ctx)
	if err != nil {
		return nil, s.eng.translateError(err, "sql")
	}
	lazy, err := s.prepare(ctx, conn, text)
	if err != nil || !lazy {
		if cerr := conn.Close(); cerr != nil {
			s.eng.Logger.Warn("closing connection", "error", cerr)
		}
		if err != nil {
			return nil, err
		}
		return s.newDataFrame(nil, ""), nil
	}
	return s.newDataFrame(conn, text), nil
}

// lazyStatements produce rows and run each time the DataFrame is
// collected. Every other statement runs once, when it is submitted.
var lazyStatements = map[goduckdb.StmtType]bool{
	goduckdb.STATEMENT_TYPE_SELECT:       true,
	goduckdb.STATEMENT_TYPE_EXPLAIN:      true,
	goduckdb.STATEMENT_TYPE_CALL:         true,
	goduckdb.STATEMENT_TYPE_RELATION:     true,
	goduckdb.STATEMENT_TYPE_LOGICAL_PLAN: true,
}

// prepare plans query on conn and decides how it runs. Queries leave
// conn inside a transaction whose snapshot the DataFrame reads from;
// other statements are executed right away.
func (s *sessionContext) prepare(ctx context.Context, conn *sql.Conn, query string) (lazy bool, err error) {
	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(*goduckdb.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		stmt, err := s.prepareStatement(dc, query)
		if err != nil {
			return err
		}
		typ, err := stmt.StatementType()
		if err != nil {
			return errors.Join(err, stmt.Close())
		}

		switch {
		case typ == goduckdb.STATEMENT_TYPE_TRANSACTION:
			return errors.Join(stmt.Close(), s.eng.ErrorHelper.Errorf(dfc.ErrorNotImplemented,
				"transaction statements are not supported; every DataFrame runs in its own transaction"))
		case lazyStatements[typ]:
			if err := stmt.Close(); err != nil {
				return err
			}
			lazy = true
			return beginSnapshot(ctx, dc, query)
		}

		s.eng.Logger.DebugContext(ctx, "exec", slog.String("op", "sql"), slog.String("sql", query))
		_, err = stmt.ExecContext(ctx, nil)
		return errors.Join(err, stmt.Close())
	})
	if err != nil {
		return false, s.eng.translateError(err, "sql")
	}
	return lazy, nil
}

// prepareStatement parses and binds a single statement.
func (s *sessionContext) prepareStatement(dc *goduckdb.Conn, query string) (*goduckdb.Stmt, error) {
	stmt, err := dc.Prepare(query)
	if err != nil {
		var duckErr *goduckdb.Error
		if errors.As(err, &duckErr) {
			return nil, err
		}
		return nil, s.eng.ErrorHelper.Errorf(dfc.ErrorSQL, "expected exactly one SQL statement: %s", err)
	}
	return stmt.(*goduckdb.Stmt), nil
}

// beginSnapshot opens the transaction a lazy DataFrame reads from.
// Preparing the query again inside it pins the snapshot to the current
// catalog and data.
func beginSnapshot(ctx context.Context, dc *goduckdb.Conn, query string) error {
	if _, err := dc.ExecContext(ctx, "BEGIN TRANSACTION", nil); err != nil {
		return err
	}
	stmt, err := dc.Prepare(query)
	if err == nil {
		err = stmt.Close()
	}
	if err == nil {
		return nil
	}
	if _, rbErr := dc.ExecContext(ctx, "ROLLBACK", nil); rbErr != nil {
		return errors.Join(err, rbErr, driver.ErrBadConn)
	}
	return err
}

func (s *sessionContext) Deregister(ctx context.Context, name string) (err error) {
	ctx, span := s.eng.StartSpan(ctx, "SessionContext.Deregister", attribute.String("dfc.table", name))
	defer func() { enginebase.EndSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.eng.ErrorHelper.CheckUTF8("table name", name); err != nil {
		return err
	}
	entry, found, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorPlan, "table '%s' not found", name)
	}
	return s.exec(ctx, "deregister", dropSQL(entry.name, entry.view))
}

func (s *sessionContext) RegisterRecordBatches(ctx context.Context, name string, schema *arrow.Schema, batches []arrow.Record) (err error) {
	ctx, span := s.eng.StartSpan(ctx, "SessionContext.RegisterRecordBatches",
		attribute.String("dfc.table", name), attribute.Int("dfc.batches", len(batches)))
	defer func() { enginebase.EndSpan(span, err) }()

	if schema == nil {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorSchema, "a schema is required")
	}
	if schema.NumFields() == 0 {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorSchema, "cannot register a table without columns")
	}
	for i, rec := range batches {
		if !rec.Schema().Equal(schema) {
			return s.eng.ErrorHelper.Errorf(dfc.ErrorSchema,
				"batch %d schema %s does not match table schema %s", i, rec.Schema(), schema)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRegister(ctx, name); err != nil {
		return err
	}

	// Metadata from foreign producers has no meaning to the engine.
	stripped := utils.StripSchemaMetadata(schema)
	records := make([]arrow.Record, len(batches))
	for i, rec := range batches {
		records[i] = array.NewRecord(stripped, rec.Columns(), rec.NumRows())
	}
	defer releaseRecords(records)

	reader, err := array.NewRecordReader(stripped, records)
	if err != nil {
		return s.eng.ErrorHelper.Wrap(dfc.ErrorSchema, err, "register record batches")
	}
	defer reader.Release()

	conn, err := s.db.sql.Conn(ctx)
	if err != nil {
		return s.eng.translateError(err, "register_record_batches")
	}
	defer conn.Close()

	s.eng.Logger.DebugContext(ctx, "register record batches",
		slog.String("table", name), slog.Int("batches", len(records)))
	err = conn.Raw(func(driverConn any) error {
		return registerRecords(ctx, driverConn, name, reader)
	})
	return s.eng.translateError(err, "register_record_batches")
}

func (s *sessionContext) RegisterCSV(ctx context.Context, name, url string, opts *dfc.CSVReadOptions) (err error) {
	ctx, span := s.eng.StartSpan(ctx, "SessionContext.RegisterCSV",
		attribute.String("dfc.table", name), attribute.String("dfc.url", url))
	defer func() { enginebase.EndSpan(span, err) }()

	if opts == nil {
		opts = dfc.NewCSVReadOptions()
	}
	if opts.Delimiter == 0 || opts.Delimiter > 0x7f {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorConfiguration,
			"delimiter must be an ASCII character, got 0x%02x", opts.Delimiter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRegister(ctx, name); err != nil {
		return err
	}
	if err := s.eng.ErrorHelper.CheckUTF8("url", url); err != nil {
		return err
	}
	src, err := s.resolveSource(ctx, url, opts.FileExtension)
	if err != nil {
		return err
	}

	fn := &tableFunction{name: "read_csv", args: []string{quoteStringList([]string{src.pattern})}}
	fn.arg("header", boolLiteral(opts.HasHeader))
	fn.arg("delim", quoteString(string(rune(opts.Delimiter))))
	fn.arg("sample_size", strconv.Itoa(max(opts.SchemaInferMaxRecords, 1)))
	if opts.Schema != nil && opts.Schema.NumFields() > 0 {
		columns, err := structLiteral(opts.Schema.Fields())
		if err != nil {
			return s.eng.ErrorHelper.Errorf(dfc.ErrorSchema, "csv schema: %s", err)
		}
		fn.arg("columns", columns)
		fn.arg("auto_detect", "false")
	}
	if err := s.addPartitioning(fn, opts.TablePartitionColumns()); err != nil {
		return err
	}

	return s.register(ctx, "register_csv", name, fn, src)
}

func (s *sessionContext) RegisterParquet(ctx context.Context, name, url string, opts *dfc.ParquetReadOptions) (err error) {
	ctx, span := s.eng.StartSpan(ctx, "SessionContext.RegisterParquet",
		attribute.String("dfc.table", name), attribute.String("dfc.url", url))
	defer func() { enginebase.EndSpan(span, err) }()

	if opts == nil {
		opts = dfc.NewParquetReadOptions()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginRegister(ctx, name); err != nil {
		return err
	}
	if err := s.eng.ErrorHelper.CheckUTF8("url", url); err != nil {
		return err
	}
	src, err := s.resolveSource(ctx, url, opts.FileExtension)
	if err != nil {
		return err
	}

	// The engine always prunes row groups using statistics; the flag is
	// accepted but cannot switch that off.
	if enabled, ok := opts.Pruning(); ok {
		s.eng.Logger.DebugContext(ctx, "parquet pruning flag has no effect",
			slog.String("table", name), slog.Bool("pruning", enabled))
	}

	fn := &tableFunction{name: "read_parquet", args: []string{quoteStringList([]string{src.pattern})}}
	if err := s.addPartitioning(fn, opts.TablePartitionColumns()); err != nil {
		return err
	}

	return s.register(ctx, "register_parquet", name, fn, src)
}

func (s *sessionContext) addPartitioning(fn *tableFunction, partitions *arrow.Schema) error {
	if partitions.NumFields() == 0 {
		fn.arg("hive_partitioning", "false")
		return nil
	}
	types, err := structLiteral(partitions.Fields())
	if err != nil {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorSchema, "partition columns: %s", err)
	}
	fn.arg("hive_partitioning", "true")
	fn.arg("hive_types", types)
	return nil
}

// register creates a view over local sources. Staged object store
// sources may be evicted from disk at any time, so they are copied into
// a table instead.
func (s *sessionContext) register(ctx context.Context, op, name string, fn *tableFunction, src source) error {
	if src.staged {
		return s.exec(ctx, op, createTableSQL(name, fn))
	}
	return s.exec(ctx, op, createViewSQL(name, fn))
}

func (s *sessionContext) newDataFrame(conn *sql.Conn, query string) *dataFrame {
	s.db.retain()
	s.eng.Logger.Debug("data frame created", slog.String("sql", query))
	return &dataFrame{eng: s.eng, db: s.db, conn: conn, query: query}
}

// Close releases the session's reference to the database. DataFrames
// created from the session keep it alive until they are closed too.
func (s *sessionContext) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.eng.ErrorHelper.Errorf(dfc.ErrorInternal, "session context already closed")
	}
	s.closed = true
	if err := s.db.release(); err != nil {
		return s.eng.ErrorHelper.Wrap(dfc.ErrorInternal, err, "close database")
	}
	return nil
}
