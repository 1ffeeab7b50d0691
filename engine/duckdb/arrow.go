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

//go:build duckdb_arrow

package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

const arrowEnabled = true

func arrowConn(driverConn any) (*goduckdb.Arrow, error) {
	conn, ok := driverConn.(driver.Conn)
	if !ok {
		return nil, fmt.Errorf("unexpected driver connection %T", driverConn)
	}
	return goduckdb.NewArrowFromConn(conn)
}

// queryRecords runs query on the driver connection and returns its
// result in records of at most batchSize rows, allocated from alloc.
func queryRecords(ctx context.Context, driverConn any, query string, alloc memory.Allocator, batchSize int) (*arrow.Schema, []arrow.Record, error) {
	a, err := arrowConn(driverConn)
	if err != nil {
		return nil, nil, err
	}
	reader, err := a.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Release()

	var chunks []arrow.Record
	defer func() { releaseRecords(chunks) }()
	for reader.Next() {
		rec := reader.RecordBatch()
		rec.Retain()
		chunks = append(chunks, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, nil, err
	}

	schema := reader.Schema()
	records, err := rebatch(alloc, schema, chunks, batchSize)
	if err != nil {
		return nil, nil, dfc.Errorf(dfc.ErrorArrow, "collect: %s", err)
	}
	return schema, records, nil
}

// registerRecords copies the stream into a new table called name. The
// stream is scanned through a connection-local view that is dropped
// again before returning.
func registerRecords(ctx context.Context, driverConn any, name string, reader array.RecordReader) error {
	a, err := arrowConn(driverConn)
	if err != nil {
		return err
	}
	execer, ok := driverConn.(driver.ExecerContext)
	if !ok {
		return fmt.Errorf("driver connection %T cannot execute statements", driverConn)
	}

	view := tempView("dfc_import_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	release, err := a.RegisterView(reader, string(view))
	if err != nil {
		return dfc.Errorf(dfc.ErrorArrow, "scan record batches: %s", err)
	}
	defer release()

	_, err = execer.ExecContext(ctx, createTableSQL(name, view), nil)
	_, dropErr := execer.ExecContext(ctx, dropTempViewSQL(view), nil)
	return errors.Join(err, dropErr)
}
