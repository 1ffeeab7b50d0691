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

// Package validation is a generic test suite for dfc engines. An engine
// package runs it by implementing EngineQuirks and calling suite.Run on
// each of the suites.
package validation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/utils"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/suite"
)

type EngineQuirks interface {
	// Called in SetupTest to initialize anything needed for testing
	SetupEngine(*testing.T) dfc.Engine
	// Called in TearDownTest to clean up anything necessary in between tests
	TearDownEngine(*testing.T, dfc.Engine)
	// Allocator the engine was created with
	Alloc() memory.Allocator
}

func collect(s *suite.Suite, ctx context.Context, sess dfc.SessionContext, query string) (*arrow.Schema, []arrow.Record) {
	df, err := sess.SQL(ctx, query)
	s.Require().NoError(err)
	defer df.Close()

	schema, records, err := df.Collect(ctx)
	s.Require().NoError(err)
	s.T().Cleanup(func() { releaseRecords(records) })
	return schema, records
}

func releaseRecords(records []arrow.Record) {
	for _, rec := range records {
		rec.Release()
	}
}

func requireCode(s *suite.Suite, err error, code dfc.ErrorCode) {
	var dfcErr dfc.Error
	s.Require().ErrorAs(err, &dfcErr)
	s.Equalf(code, dfcErr.Code, "unexpected error: %s", dfcErr)
}

func recordFromJSON(s *suite.Suite, alloc memory.Allocator, schema *arrow.Schema, data string) arrow.Record {
	rec, _, err := array.RecordFromJSON(alloc, schema, strings.NewReader(data))
	s.Require().NoError(err)
	s.T().Cleanup(rec.Release)
	return rec
}

type SessionTests struct {
	suite.Suite

	Quirks EngineQuirks

	Engine dfc.Engine
	Ctx    dfc.SessionContext
	ctx    context.Context
}

func (s *SessionTests) SetupTest() {
	s.ctx = context.Background()
	s.Engine = s.Quirks.SetupEngine(s.T())
	var err error
	s.Ctx, err = s.Engine.NewSessionContext(s.ctx)
	s.Require().NoError(err)
}

func (s *SessionTests) TearDownTest() {
	s.NoError(s.Ctx.Close())
	s.Quirks.TearDownEngine(s.T(), s.Engine)
	s.Ctx = nil
	s.Engine = nil
}

func (s *SessionTests) collect(query string) (*arrow.Schema, []arrow.Record) {
	return collect(&s.Suite, s.ctx, s.Ctx, query)
}

func (s *SessionTests) requireCode(err error, code dfc.ErrorCode) {
	requireCode(&s.Suite, err, code)
}

func (s *SessionTests) recordFromJSON(schema *arrow.Schema, data string) arrow.Record {
	return recordFromJSON(&s.Suite, s.Quirks.Alloc(), schema, data)
}

func (s *SessionTests) writeFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *SessionTests) TestSelectLiteral() {
	schema, records := s.collect("SELECT 1 AS x")

	s.Require().Len(records, 1)
	s.Equal([]string{"x"}, utils.FieldNames(schema))
	s.EqualValues(1, records[0].NumRows())
	s.Equal("1", records[0].Column(0).ValueStr(0))
}

func (s *SessionTests) TestSQLInvalid() {
	_, err := s.Ctx.SQL(s.ctx, "SELEC 1")
	s.requireCode(err, dfc.ErrorSQL)

	_, err = s.Ctx.SQL(s.ctx, "SELECT * FROM does_not_exist")
	s.requireCode(err, dfc.ErrorPlan)

	_, err = s.Ctx.SQL(s.ctx, "SELECT '\xff'")
	s.requireCode(err, dfc.ErrorExternal)
}

func (s *SessionTests) TestStatementRunsEagerly() {
	df, err := s.Ctx.SQL(s.ctx, "CREATE TABLE eager (a INTEGER)")
	s.Require().NoError(err)
	schema, records, err := df.Collect(s.ctx)
	s.Require().NoError(err)
	s.Zero(schema.NumFields())
	s.Empty(records)
	s.NoError(df.Close())

	// not collecting the insert must not matter
	df, err = s.Ctx.SQL(s.ctx, "INSERT INTO eager VALUES (1), (2)")
	s.Require().NoError(err)
	s.NoError(df.Close())

	_, records = s.collect("SELECT count(*) AS n FROM eager")
	s.Require().Len(records, 1)
	s.Equal("2", records[0].Column(0).ValueStr(0))
}

func (s *SessionTests) TestDeregisterUnknown() {
	err := s.Ctx.Deregister(s.ctx, "nonexistent")
	s.requireCode(err, dfc.ErrorPlan)

	// the session is still usable
	_, records := s.collect("SELECT 2 AS y")
	s.Len(records, 1)
}

func (s *SessionTests) TestRegisterRecordBatchesRoundTrip() {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	first := s.recordFromJSON(schema, `[{"id": 1, "name": "a"}, {"id": 2, "name": null}]`)
	second := s.recordFromJSON(schema, `[{"id": 3, "name": "c"}]`)

	s.Require().NoError(s.Ctx.RegisterRecordBatches(s.ctx, "t", schema, []arrow.Record{first, second}))

	got, records := s.collect("SELECT * FROM t ORDER BY id")
	s.True(schema.Equal(got), "expected: %s\ngot: %s", schema, got)

	tbl := array.NewTableFromRecords(got, records)
	defer tbl.Release()
	s.EqualValues(3, tbl.NumRows())

	var ids, names []string
	for _, rec := range records {
		for i := 0; i < int(rec.NumRows()); i++ {
			ids = append(ids, rec.Column(0).ValueStr(i))
			names = append(names, rec.Column(1).ValueStr(i))
		}
	}
	s.Equal([]string{"1", "2", "3"}, ids)
	s.Equal([]string{"a", array.NullValueStr, "c"}, names)
}

func (s *SessionTests) TestRegisterRecordBatchesDuplicate() {
	schema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	rec := s.recordFromJSON(schema, `[{"a": 1}]`)

	s.Require().NoError(s.Ctx.RegisterRecordBatches(s.ctx, "dup", schema, []arrow.Record{rec}))
	err := s.Ctx.RegisterRecordBatches(s.ctx, "dup", schema, []arrow.Record{rec})
	s.requireCode(err, dfc.ErrorExecution)

	s.NoError(s.Ctx.Deregister(s.ctx, "dup"))
	s.NoError(s.Ctx.RegisterRecordBatches(s.ctx, "dup", schema, []arrow.Record{rec}))
}

func (s *SessionTests) TestRegisterRecordBatchesSchemaMismatch() {
	schema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	other := arrow.NewSchema([]arrow.Field{{Name: "b", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	rec := s.recordFromJSON(other, `[{"b": 1}]`)

	err := s.Ctx.RegisterRecordBatches(s.ctx, "t", schema, []arrow.Record{rec})
	s.requireCode(err, dfc.ErrorSchema)

	_, err = s.Ctx.SQL(s.ctx, "SELECT * FROM t")
	s.requireCode(err, dfc.ErrorPlan)
}

func (s *SessionTests) TestRegisterRecordBatchesEmpty() {
	schema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Float64, Nullable: true}}, nil)
	s.Require().NoError(s.Ctx.RegisterRecordBatches(s.ctx, "empty", schema, nil))

	got, records := s.collect("SELECT * FROM empty")
	s.True(schema.Equal(got), "expected: %s\ngot: %s", schema, got)
	s.Empty(records)
}

func (s *SessionTests) TestRegisterCSVMissingFile() {
	err := s.Ctx.RegisterCSV(s.ctx, "t", filepath.Join(s.T().TempDir(), "missing.csv"), nil)
	s.requireCode(err, dfc.ErrorIO)
}

func (s *SessionTests) TestRegisterCSVDelimiter() {
	path := s.writeFile("data.csv", "a;b\n1;x\n2;y\n")
	opts := dfc.NewCSVReadOptions()
	opts.Delimiter = ';'
	s.Require().NoError(s.Ctx.RegisterCSV(s.ctx, "t", path, opts))

	schema, records := s.collect("SELECT a, b FROM t ORDER BY a")
	s.Equal([]string{"a", "b"}, utils.FieldNames(schema))
	s.Require().Len(records, 1)
	s.EqualValues(2, records[0].NumRows())
	s.Equal("x", records[0].Column(1).ValueStr(0))
	s.Equal("y", records[0].Column(1).ValueStr(1))
}

func (s *SessionTests) TestRegisterCSVExplicitSchema() {
	path := s.writeFile("data.csv", "1,2.5\n3,4.5\n")
	opts := dfc.NewCSVReadOptions()
	opts.HasHeader = false
	opts.Schema = arrow.NewSchema([]arrow.Field{
		{Name: "k", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "v", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
	s.Require().NoError(s.Ctx.RegisterCSV(s.ctx, "t", path, opts))

	schema, records := s.collect("SELECT * FROM t ORDER BY k")
	s.True(opts.Schema.Equal(schema), "expected: %s\ngot: %s", opts.Schema, schema)
	s.Require().Len(records, 1)
	s.Equal("4.5", records[0].Column(1).ValueStr(1))
}

func (s *SessionTests) TestRegisterCSVPartitionedDirectory() {
	root := s.T().TempDir()
	for _, part := range []string{"2023", "2024"} {
		dir := filepath.Join(root, "year="+part)
		s.Require().NoError(os.MkdirAll(dir, 0o755))
		s.Require().NoError(os.WriteFile(filepath.Join(dir, "part.csv"), []byte("v\n"+part+"1\n"), 0o644))
	}
	// ignored because of the extension
	s.Require().NoError(os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello\n"), 0o644))

	opts := dfc.NewCSVReadOptions()
	opts.SetTablePartitionColumns(arrow.NewSchema([]arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	}, nil))
	s.Require().NoError(s.Ctx.RegisterCSV(s.ctx, "t", root, opts))

	_, records := s.collect("SELECT year, count(*) AS n FROM t GROUP BY year ORDER BY year")
	s.Require().Len(records, 1)
	s.EqualValues(2, records[0].NumRows())
	s.Equal("2023", records[0].Column(0).ValueStr(0))
	s.Equal("2024", records[0].Column(0).ValueStr(1))
}

func (s *SessionTests) TestRegisterParquetRoundTrip() {
	df, err := s.Ctx.SQL(s.ctx, "SELECT range AS n FROM range(10)")
	s.Require().NoError(err)
	defer df.Close()

	path := filepath.Join(s.T().TempDir(), "out.parquet")
	s.Require().NoError(df.WriteParquet(s.ctx, path, nil))
	s.Require().NoError(s.Ctx.RegisterParquet(s.ctx, "p", "file://"+path, nil))

	_, records := s.collect("SELECT CAST(sum(n) AS BIGINT) AS total FROM p")
	s.Require().Len(records, 1)
	s.Equal("45", records[0].Column(0).ValueStr(0))

	s.NoError(s.Ctx.Deregister(s.ctx, "p"))
	_, err = s.Ctx.SQL(s.ctx, "SELECT * FROM p")
	s.requireCode(err, dfc.ErrorPlan)
}

func (s *SessionTests) TestRegisterParquetMissing() {
	opts := dfc.NewParquetReadOptions()
	opts.SetPruning(true)
	err := s.Ctx.RegisterParquet(s.ctx, "p", filepath.Join(s.T().TempDir(), "none.parquet"), opts)
	s.requireCode(err, dfc.ErrorIO)
}

func (s *SessionTests) TestSessionsAreIndependent() {
	other, err := s.Engine.NewSessionContext(s.ctx)
	s.Require().NoError(err)
	defer other.Close()

	df, err := other.SQL(s.ctx, "CREATE TABLE only_here (a INTEGER)")
	s.Require().NoError(err)
	s.NoError(df.Close())

	_, err = s.Ctx.SQL(s.ctx, "SELECT * FROM only_here")
	s.requireCode(err, dfc.ErrorPlan)
}

type DataFrameTests struct {
	suite.Suite

	Quirks EngineQuirks

	Engine dfc.Engine
	Ctx    dfc.SessionContext
	ctx    context.Context
}

func (s *DataFrameTests) SetupTest() {
	s.ctx = context.Background()
	s.Engine = s.Quirks.SetupEngine(s.T())
	var err error
	s.Ctx, err = s.Engine.NewSessionContext(s.ctx)
	s.Require().NoError(err)
}

func (s *DataFrameTests) TearDownTest() {
	s.NoError(s.Ctx.Close())
	s.Quirks.TearDownEngine(s.T(), s.Engine)
	s.Ctx = nil
	s.Engine = nil
}

func (s *DataFrameTests) collect(query string) (*arrow.Schema, []arrow.Record) {
	return collect(&s.Suite, s.ctx, s.Ctx, query)
}

func (s *DataFrameTests) requireCode(err error, code dfc.ErrorCode) {
	requireCode(&s.Suite, err, code)
}

func (s *DataFrameTests) recordFromJSON(schema *arrow.Schema, data string) arrow.Record {
	return recordFromJSON(&s.Suite, s.Quirks.Alloc(), schema, data)
}

func (s *DataFrameTests) TestCollectIsRepeatable() {
	df, err := s.Ctx.SQL(s.ctx, "SELECT * FROM (VALUES (1, 'a'), (2, 'b')) v(n, s) ORDER BY n")
	s.Require().NoError(err)
	defer df.Close()

	for range 2 {
		schema, records, err := df.Collect(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"n", "s"}, utils.FieldNames(schema))
		s.Require().Len(records, 1)
		s.EqualValues(2, records[0].NumRows())
		releaseRecords(records)
	}
}

func (s *DataFrameTests) TestOutlivesSession() {
	ctx, err := s.Engine.NewSessionContext(s.ctx)
	s.Require().NoError(err)
	df, err := ctx.SQL(s.ctx, "SELECT 7 AS seven")
	s.Require().NoError(err)
	s.Require().NoError(ctx.Close())
	defer df.Close()

	_, records, err := df.Collect(s.ctx)
	s.Require().NoError(err)
	defer releaseRecords(records)
	s.Require().Len(records, 1)
	s.Equal("7", records[0].Column(0).ValueStr(0))
}

func (s *DataFrameTests) TestShow() {
	df, err := s.Ctx.SQL(s.ctx, "SELECT 1 AS a, 'x' AS b")
	s.Require().NoError(err)
	defer df.Close()

	var buf bytes.Buffer
	s.Require().NoError(df.Show(s.ctx, &buf))
	s.Equal("+---+---+\n| a | b |\n+---+---+\n| 1 | x |\n+---+---+\n", buf.String())
}

func (s *DataFrameTests) TestWriteParquetBadPath() {
	df, err := s.Ctx.SQL(s.ctx, "SELECT 1 AS a")
	s.Require().NoError(err)
	defer df.Close()

	err = df.WriteParquet(s.ctx, filepath.Join(s.T().TempDir(), "no", "such", "dir", "x.parquet"), nil)
	s.requireCode(err, dfc.ErrorIO)
}

func (s *DataFrameTests) TestCollectAfterTableDropped() {
	schema := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	rec := s.recordFromJSON(schema, `[{"a": 1}]`)
	s.Require().NoError(s.Ctx.RegisterRecordBatches(s.ctx, "gone", schema, []arrow.Record{rec}))

	df, err := s.Ctx.SQL(s.ctx, "SELECT * FROM gone")
	s.Require().NoError(err)
	defer df.Close()
	s.Require().NoError(s.Ctx.Deregister(s.ctx, "gone"))

	// the DataFrame reads the catalog as it was when it was created
	_, records, err := df.Collect(s.ctx)
	s.Require().NoError(err)
	defer releaseRecords(records)
	s.Require().Len(records, 1)
	s.Equal("1", records[0].Column(0).ValueStr(0))

	_, err = s.Ctx.SQL(s.ctx, "SELECT * FROM gone")
	s.requireCode(err, dfc.ErrorPlan)

	replacement := s.recordFromJSON(schema, `[{"a": 42}]`)
	s.Require().NoError(s.Ctx.RegisterRecordBatches(s.ctx, "gone", schema, []arrow.Record{replacement}))

	_, records, err = df.Collect(s.ctx)
	s.Require().NoError(err)
	defer releaseRecords(records)
	s.Require().Len(records, 1)
	s.Equal("1", records[0].Column(0).ValueStr(0))

	_, current := s.collect("SELECT * FROM gone")
	s.Require().Len(current, 1)
	s.Equal("42", current[0].Column(0).ValueStr(0))
}
