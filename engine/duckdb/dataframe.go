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
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
	"github.com/apache/arrow-datafusion-c/go/dfc/utils"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.opentelemetry.io/otel/attribute"
)

// dataFrame reads its query from the snapshot taken when it was
// created, so later catalog changes in the session do not affect it.
type dataFrame struct {
	eng *Engine
	db  *database

	// mu serializes use of conn, which holds the open transaction the
	// query runs in. A nil conn stands for a statement that already ran
	// and has no rows.
	mu     sync.Mutex
	conn   *sql.Conn
	query  string
	closed bool
}

var _ dfc.DataFrame = (*dataFrame)(nil)

func (df *dataFrame) Collect(ctx context.Context) (schema *arrow.Schema, records []arrow.Record, err error) {
	ctx, span := df.eng.StartSpan(ctx, "DataFrame.Collect")
	defer func() {
		span.SetAttributes(attribute.Int("dfc.batches", len(records)))
		enginebase.EndSpan(span, err)
	}()
	return df.collect(ctx)
}

func (df *dataFrame) collect(ctx context.Context) (*arrow.Schema, []arrow.Record, error) {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.closed {
		return nil, nil, df.eng.ErrorHelper.Errorf(dfc.ErrorInternal, "data frame is closed")
	}
	if df.conn == nil {
		return arrow.NewSchema(nil, nil), nil, nil
	}

	var (
		schema  *arrow.Schema
		records []arrow.Record
	)
	err := df.conn.Raw(func(driverConn any) (err error) {
		schema, records, err = queryRecords(ctx, driverConn, df.query, df.eng.Alloc, df.eng.opts.BatchSize)
		return err
	})
	if err != nil {
		return nil, nil, df.eng.translateError(err, "collect")
	}
	return schema, records, nil
}

// rebatch regroups chunks into records of at most batchSize rows.
// Buffers are copied into alloc; an empty result has no records.
func rebatch(alloc memory.Allocator, schema *arrow.Schema, chunks []arrow.Record, batchSize int) ([]arrow.Record, error) {
	var total int64
	for _, chunk := range chunks {
		total += chunk.NumRows()
	}
	if total == 0 {
		return nil, nil
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()
	parts := make([]arrow.Array, len(chunks))
	for i := range cols {
		for j, chunk := range chunks {
			parts[j] = chunk.Column(i)
		}
		col, err := array.Concatenate(parts, alloc)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	whole := array.NewRecord(schema, cols, total)
	defer whole.Release()

	size := int64(batchSize)
	records := make([]arrow.Record, 0, (total+size-1)/size)
	for offset := int64(0); offset < total; offset += size {
		records = append(records, whole.NewSlice(offset, min(offset+size, total)))
	}
	return records, nil
}

func releaseRecords(records []arrow.Record) {
	for _, rec := range records {
		rec.Release()
	}
}

func (df *dataFrame) Show(ctx context.Context, w io.Writer) (err error) {
	ctx, span := df.eng.StartSpan(ctx, "DataFrame.Show")
	defer func() { enginebase.EndSpan(span, err) }()

	schema, records, err := df.collect(ctx)
	if err != nil {
		return err
	}
	defer releaseRecords(records)

	if err := utils.FormatRecords(w, schema, records); err != nil {
		return df.eng.ErrorHelper.Wrap(dfc.ErrorIO, err, "show")
	}
	return nil
}

func (df *dataFrame) WriteParquet(ctx context.Context, path string, props *dfc.ParquetWriterProperties) (err error) {
	ctx, span := df.eng.StartSpan(ctx, "DataFrame.WriteParquet", attribute.String("dfc.path", path))
	defer func() { enginebase.EndSpan(span, err) }()

	target, upload, err := df.targetPath(path)
	if err != nil {
		return err
	}

	schema, records, err := df.collect(ctx)
	if err != nil {
		return err
	}
	defer releaseRecords(records)

	if err := writeParquetFile(target, schema, records, props); err != nil {
		var dfcErr dfc.Error
		if errors.As(err, &dfcErr) {
			return dfcErr
		}
		return df.eng.ErrorHelper.Wrap(dfc.ErrorParquet, err, "write parquet")
	}
	if upload != nil {
		return upload(ctx)
	}

	df.eng.Logger.DebugContext(ctx, "wrote parquet", slog.String("path", target), slog.Int("batches", len(records)))
	return nil
}

// writeParquetFile writes records as one Parquet file. A partially
// written file is removed again on failure.
func writeParquetFile(path string, schema *arrow.Schema, records []arrow.Record, props *dfc.ParquetWriterProperties) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return dfc.Errorf(dfc.ErrorIO, "create %s: %s", path, err)
	}
	defer func() {
		if err != nil {
			// f may already be closed by the file writer
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	writerProps := props.WriterProperties()
	fw, err := pqarrow.NewFileWriter(schema, f, writerProps, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return err
	}

	tbl := array.NewTableFromRecords(schema, records)
	defer tbl.Release()

	// closing the file writer closes f
	if err := fw.WriteTable(tbl, writerProps.MaxRowGroupLength()); err != nil {
		return errors.Join(err, fw.Close())
	}
	return fw.Close()
}

// endSnapshot rolls back the transaction held by conn. A connection
// that cannot be rolled back is dropped from the pool.
func (df *dataFrame) endSnapshot() error {
	err := df.conn.Raw(func(driverConn any) error {
		execer, ok := driverConn.(driver.ExecerContext)
		if !ok {
			return driver.ErrBadConn
		}
		if _, err := execer.ExecContext(context.Background(), "ROLLBACK", nil); err != nil {
			df.eng.Logger.Warn("dropping connection after failed rollback", "error", err)
			return driver.ErrBadConn
		}
		return nil
	})
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

// Close ends the snapshot and releases the reference to the session
// database.
func (df *dataFrame) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.closed {
		return nil
	}
	df.closed = true

	var err error
	if df.conn != nil {
		err = df.endSnapshot()
		if cerr := df.conn.Close(); cerr != nil && !errors.Is(cerr, sql.ErrConnDone) {
			err = errors.Join(err, cerr)
		}
	}
	err = errors.Join(err, df.db.release())
	if err != nil {
		return df.eng.ErrorHelper.Wrap(dfc.ErrorInternal, err, "close data frame")
	}
	return nil
}
