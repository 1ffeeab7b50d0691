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

package sqldriver

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/decimal256"
)

const (
	sourceCSV     = "csv"
	sourceParquet = "parquet"
)

// source is one table registered on every connection.
type source struct {
	kind  string
	table string
	url   string
}

func parseConnectStr(str string) (ret []source, err error) {
	for _, kv := range strings.Split(str, ";") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		parsed := strings.SplitN(kv, "=", 2)
		if len(parsed) != 2 {
			return nil, dfc.Errorf(dfc.ErrorConfiguration, "invalid format for connection string")
		}

		key, url := strings.TrimSpace(parsed[0]), strings.TrimSpace(parsed[1])
		kind, table, ok := strings.Cut(key, ".")
		if !ok || table == "" || (kind != sourceCSV && kind != sourceParquet) {
			return nil, dfc.Errorf(dfc.ErrorConfiguration, "unknown connection string key %q", key)
		}
		ret = append(ret, source{kind: kind, table: table, url: url})
	}
	return
}

type connector struct {
	engine  dfc.Engine
	sources []source
}

// Connect opens a new session context and registers the configured
// sources into it.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	sess, err := c.engine.NewSessionContext(ctx)
	if err != nil {
		return nil, err
	}

	for _, src := range c.sources {
		switch src.kind {
		case sourceCSV:
			err = sess.RegisterCSV(ctx, src.table, src.url, nil)
		case sourceParquet:
			err = sess.RegisterParquet(ctx, src.table, src.url, nil)
		}
		if err != nil {
			return nil, errors.Join(err, sess.Close())
		}
	}
	return &conn{sess: sess}, nil
}

// Driver hands back a Driver over the same engine.
func (c *connector) Driver() driver.Driver { return Driver{c.engine} }

type Driver struct {
	Engine dfc.Engine
}

// Open returns a new connection. See the package documentation for the
// format of name.
func (d Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector parses name once; every connection then registers the
// same sources.
func (d Driver) OpenConnector(name string) (driver.Connector, error) {
	sources, err := parseConnectStr(name)
	if err != nil {
		return nil, err
	}
	return &connector{engine: d.Engine, sources: sources}, nil
}

// conn is one session context. It is not used concurrently by multiple
// goroutines.
type conn struct {
	sess dfc.SessionContext
}

func (c *conn) Close() error {
	return c.sess.Close()
}

func noParameters(args []driver.NamedValue) error {
	if len(args) > 0 {
		return dfc.Errorf(dfc.ErrorNotImplemented, "query parameters are not supported")
	}
	return nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := noParameters(args); err != nil {
		return nil, err
	}
	df, err := c.sess.SQL(ctx, query)
	if err != nil {
		return nil, err
	}
	defer df.Close()

	schema, records, err := df.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return &rows{schema: schema, records: records}, nil
}

// ExecContext runs a statement. Statements without a result run as soon
// as the engine accepts them, so there is nothing left to collect.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := noParameters(args); err != nil {
		return nil, err
	}
	df, err := c.sess.SQL(ctx, query)
	if err != nil {
		return nil, err
	}
	return driver.ResultNoRows, df.Close()
}

// Deprecated: use BeginTx. Transactions are not supported either way.
func (c *conn) Begin() (driver.Tx, error) {
	return nil, dfc.Errorf(dfc.ErrorNotImplemented, "transactions are not supported")
}

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return c.Begin()
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext only remembers the query. It is planned again on every
// execution, so a prepared INSERT runs each time it is executed.
func (c *conn) PrepareContext(_ context.Context, query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error {
	return nil
}

func (s *stmt) NumInput() int {
	return 0
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, driver.ErrSkip
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

// rows walks collected record batches.
type rows struct {
	schema  *arrow.Schema
	records []arrow.Record

	curBatch int
	curRow   int
}

func (r *rows) Columns() (out []string) {
	out = make([]string, len(r.schema.Fields()))
	for i, f := range r.schema.Fields() {
		out[i] = f.Name
	}
	return
}

func (r *rows) Close() error {
	for _, rec := range r.records {
		rec.Release()
	}
	r.records = nil
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	for r.curBatch < len(r.records) && r.curRow >= int(r.records[r.curBatch].NumRows()) {
		r.curBatch++
		r.curRow = 0
	}
	if r.curBatch >= len(r.records) {
		return io.EOF
	}

	rec := r.records[r.curBatch]
	for i, col := range rec.Columns() {
		v, err := columnValue(col, r.curRow)
		if err != nil {
			return err
		}
		dest[i] = v
	}

	r.curRow++
	return nil
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
	scanTypes = map[arrow.Type]reflect.Type{
		arrow.BOOL:         reflect.TypeFor[bool](),
		arrow.INT8:         reflect.TypeFor[int8](),
		arrow.UINT8:        reflect.TypeFor[uint8](),
		arrow.INT16:        reflect.TypeFor[int16](),
		arrow.UINT16:       reflect.TypeFor[uint16](),
		arrow.INT32:        reflect.TypeFor[int32](),
		arrow.UINT32:       reflect.TypeFor[uint32](),
		arrow.INT64:        reflect.TypeFor[int64](),
		arrow.UINT64:       reflect.TypeFor[uint64](),
		arrow.FLOAT32:      reflect.TypeFor[float32](),
		arrow.FLOAT64:      reflect.TypeFor[float64](),
		arrow.DECIMAL128:   reflect.TypeFor[decimal128.Num](),
		arrow.DECIMAL256:   reflect.TypeFor[decimal256.Num](),
		arrow.STRING:       reflect.TypeFor[string](),
		arrow.LARGE_STRING: reflect.TypeFor[string](),
		arrow.BINARY:       bytesType,
		arrow.LARGE_BINARY: bytesType,
		arrow.DATE32:       timeType,
		arrow.DATE64:       timeType,
		arrow.TIME32:       timeType,
		arrow.TIME64:       timeType,
		arrow.TIMESTAMP:    timeType,
	}
)

func columnValue(col arrow.Array, row int) (driver.Value, error) {
	if col.IsNull(row) {
		return nil, nil
	}
	switch col := col.(type) {
	case *array.Boolean:
		return col.Value(row), nil
	case *array.Int8:
		return col.Value(row), nil
	case *array.Uint8:
		return col.Value(row), nil
	case *array.Int16:
		return col.Value(row), nil
	case *array.Uint16:
		return col.Value(row), nil
	case *array.Int32:
		return col.Value(row), nil
	case *array.Uint32:
		return col.Value(row), nil
	case *array.Int64:
		return col.Value(row), nil
	case *array.Uint64:
		return col.Value(row), nil
	case *array.Float32:
		return col.Value(row), nil
	case *array.Float64:
		return col.Value(row), nil
	case *array.String:
		return col.Value(row), nil
	case *array.LargeString:
		return col.Value(row), nil
	case *array.Binary:
		return col.Value(row), nil
	case *array.LargeBinary:
		return col.Value(row), nil
	case *array.Date32:
		return col.Value(row).ToTime(), nil
	case *array.Date64:
		return col.Value(row).ToTime(), nil
	case *array.Time32:
		return col.Value(row).ToTime(col.DataType().(*arrow.Time32Type).Unit), nil
	case *array.Time64:
		return col.Value(row).ToTime(col.DataType().(*arrow.Time64Type).Unit), nil
	case *array.Timestamp:
		return col.Value(row).ToTime(col.DataType().(*arrow.TimestampType).Unit), nil
	case *array.Decimal128:
		return col.Value(row), nil
	case *array.Decimal256:
		return col.Value(row), nil
	}
	return nil, dfc.Errorf(dfc.ErrorNotImplemented,
		"not yet implemented populating from columns of type %s", col.DataType())
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	return r.schema.Field(index).Type.String()
}

func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.schema.Field(index).Nullable, true
}

func (r *rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	switch dt := r.schema.Field(index).Type.(type) {
	case *arrow.Decimal128Type:
		return int64(dt.Precision), int64(dt.Scale), true
	case *arrow.Decimal256Type:
		return int64(dt.Precision), int64(dt.Scale), true
	}
	return 0, 0, false
}

// ColumnTypeScanType matches the Go types produced by columnValue.
func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	return scanTypes[r.schema.Field(index).Type.ID()]
}
