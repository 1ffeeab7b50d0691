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

//go:build driverlib && cgo && test && duckdb_arrow

package main

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CABITests struct {
	suite.Suite

	session *testSession
	dir     string
}

func (s *CABITests) SetupTest() {
	s.session = sessionNew()
	s.Require().NotNil(s.session)
	s.dir = s.T().TempDir()
}

func (s *CABITests) TearDownTest() {
	s.session.free()
}

func (s *CABITests) requireError(terr *testError, code dfc.ErrorCode) {
	s.Require().NotNil(terr)
	s.Equal(code, terr.Code, terr.Message)
	s.NotEmpty(terr.Message)
}

func (s *CABITests) writeFile(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

// exec runs a statement and frees its empty result.
func (s *CABITests) exec(query string) {
	df, terr := s.session.sql(query)
	s.Require().Nil(terr)
	df.free()
}

func (s *CABITests) export(query string) (*arrow.Schema, []arrow.Record) {
	df, terr := s.session.sql(query)
	s.Require().Nil(terr)
	defer df.free()

	sc, records, n, _, terr := df.export()
	s.Require().Nil(terr)
	s.Require().EqualValues(len(records), n)
	s.T().Cleanup(func() {
		for _, rec := range records {
			rec.Release()
		}
	})
	return sc, records
}

func (s *CABITests) newRecord(sc *arrow.Schema, data string) arrow.Record {
	rec, _, err := array.RecordFromJSON(mallocator.NewMallocator(), sc, strings.NewReader(data))
	s.Require().NoError(err)
	s.T().Cleanup(rec.Release)
	return rec
}

func columnStrings(records []arrow.Record, col int) []string {
	var out []string
	for _, rec := range records {
		for i := 0; i < int(rec.NumRows()); i++ {
			out = append(out, rec.Column(col).ValueStr(i))
		}
	}
	return out
}

func (s *CABITests) TestSelectLiteral() {
	sc, records := s.export("SELECT 1 AS x")

	s.Require().Len(records, 1)
	s.Equal("x", sc.Field(0).Name)
	s.Equal(1, sc.NumFields())
	s.EqualValues(1, records[0].NumRows())
	s.Equal("1", records[0].Column(0).ValueStr(0))
}

func (s *CABITests) TestRegisterCSVMissingFile() {
	ok, terr := s.session.registerCSV("t", filepath.Join(s.dir, "missing.csv"), nil)
	s.False(ok)
	s.requireError(terr, dfc.ErrorIO)

	_, terr = s.session.sql("SELECT * FROM t")
	s.requireError(terr, dfc.ErrorPlan)
}

func (s *CABITests) TestRegisterCSVCustomDelimiter() {
	path := s.writeFile("data.csv", "a;b\n1;x\n2;y\n")
	opts := csvOptionsNew()
	defer opts.free()
	opts.setDelimiter(';')

	ok, terr := s.session.registerCSV("t", path, opts)
	s.Require().Nil(terr)
	s.True(ok)

	sc, records := s.export("SELECT a, b FROM t ORDER BY a")
	s.Equal("a", sc.Field(0).Name)
	s.Equal("b", sc.Field(1).Name)
	s.Equal([]string{"1", "2"}, columnStrings(records, 0))
	s.Equal([]string{"x", "y"}, columnStrings(records, 1))
}

func (s *CABITests) TestDeregisterUnknown() {
	ok, terr := s.session.deregister("nonexistent")
	s.False(ok)
	s.requireError(terr, dfc.ErrorPlan)

	_, records := s.export("SELECT 2 AS y")
	s.Len(records, 1)
}

func (s *CABITests) TestRecordBatchRoundTrip() {
	sc := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	first := s.newRecord(sc, `[{"id": 1, "name": "a"}, {"id": 2, "name": null}]`)
	second := s.newRecord(sc, `[{"id": 3, "name": "c"}]`)

	ok, released, terr := s.session.registerRecordBatches("t", sc, []arrow.Record{first, second})
	s.Require().Nil(terr)
	s.True(ok)
	s.True(released)

	got, records := s.export("SELECT * FROM t")
	s.True(sc.Equal(got), "expected: %s\ngot: %s", sc, got)
	s.Equal([]string{"1", "2", "3"}, columnStrings(records, 0))
	s.Equal([]string{"a", array.NullValueStr, "c"}, columnStrings(records, 1))
}

func (s *CABITests) TestRegisterRecordBatchesReleasesOnFailure() {
	sc := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	rec := s.newRecord(sc, `[{"a": 1}]`)

	ok, released, terr := s.session.registerRecordBatches("t", sc, []arrow.Record{rec, nil, rec})
	s.False(ok)
	s.True(released)
	s.requireError(terr, dfc.ErrorArrow)

	_, terr = s.session.sql("SELECT * FROM t")
	s.requireError(terr, dfc.ErrorPlan)
}

func (s *CABITests) TestRegisterRecordBatchesDuplicate() {
	sc := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)
	rec := s.newRecord(sc, `[{"a": 1}]`)

	ok, _, terr := s.session.registerRecordBatches("dup", sc, []arrow.Record{rec})
	s.Require().Nil(terr)
	s.True(ok)

	ok, released, terr := s.session.registerRecordBatches("dup", sc, []arrow.Record{rec})
	s.False(ok)
	s.True(released)
	s.requireError(terr, dfc.ErrorExecution)
}

func (s *CABITests) TestNullErrorSlot() {
	s.Nil(s.session.sqlNoErrorSlot("SELEC 1"))
	s.False(s.session.deregisterNoErrorSlot("nonexistent"))

	opts := csvOptionsNew()
	defer opts.free()
	s.True(opts.setFileExtension(".tsv"))
	s.True(opts.setTablePartitionColumns(nil))

	df := s.session.sqlNoErrorSlot("SELECT 1")
	s.Require().NotNil(df)
	df.free()
}

func (s *CABITests) TestSuccessLeavesErrorSlot() {
	s.True(s.session.sqlKeepsErrorSlot("SELECT 1"))
	s.False(s.session.sqlKeepsErrorSlot("SELEC 1"))
}

func (s *CABITests) TestInvalidUTF8() {
	_, terr := s.session.sqlBytes([]byte("SELECT '\xff'"))
	s.requireError(terr, dfc.ErrorExternal)

	opts := csvOptionsNew()
	defer opts.free()
	ok, terr := opts.setFileExtensionBytes([]byte{'.', 0xfe})
	s.False(ok)
	s.requireError(terr, dfc.ErrorExternal)
	s.Equal(".csv", opts.fileExtension())
}

func (s *CABITests) TestRepeatedExportAndShow() {
	s.exec("CREATE TABLE t AS SELECT * FROM range(5) r(n)")

	df, terr := s.session.sql("SELECT n FROM t ORDER BY n")
	s.Require().Nil(terr)
	defer df.free()

	var runs [][]string
	for range 2 {
		_, records, n, _, terr := df.export()
		s.Require().Nil(terr)
		s.EqualValues(len(records), n)
		runs = append(runs, columnStrings(records, 0))
		for _, rec := range records {
			rec.Release()
		}
	}
	s.Equal([]string{"0", "1", "2", "3", "4"}, runs[0])
	s.Equal(runs[0], runs[1])

	first := s.captureStdout(func() { s.Nil(df.show()) })
	second := s.captureStdout(func() { s.Nil(df.show()) })
	s.Equal(first, second)
	s.Contains(first, "| n |")
}

func (s *CABITests) captureStdout(fn func()) string {
	r, w, err := os.Pipe()
	s.Require().NoError(err)
	stdout := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		out, _ := io.ReadAll(r)
		done <- string(out)
	}()

	fn()

	os.Stdout = stdout
	s.Require().NoError(w.Close())
	return <-done
}

func (s *CABITests) TestExportFailureClearsOutputs() {
	s.exec("CREATE TABLE words AS SELECT 'abc' AS w")
	df, terr := s.session.sql("SELECT CAST(w AS INTEGER) AS n FROM words")
	s.Require().Nil(terr)
	defer df.free()

	_, records, n, cleared, terr := df.export()
	s.EqualValues(-1, n)
	s.Nil(records)
	s.True(cleared)
	s.requireError(terr, dfc.ErrorArrow)
}

func (s *CABITests) TestExportAfterTableDropped() {
	s.exec("CREATE TABLE gone AS SELECT 1 AS a")
	df, terr := s.session.sql("SELECT * FROM gone")
	s.Require().Nil(terr)
	defer df.free()
	s.exec("DROP TABLE gone")

	_, records, n, _, terr := df.export()
	s.Require().Nil(terr)
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	s.Require().EqualValues(1, n)
	s.Equal("1", records[0].Column(0).ValueStr(0))
}

func (s *CABITests) TestExportEmptyResult() {
	s.exec("CREATE TABLE empty (a DOUBLE)")

	sc, records := s.export("SELECT * FROM empty")
	s.Empty(records)
	s.Equal("a", sc.Field(0).Name)
}

func (s *CABITests) TestWriteParquetAndRegister() {
	df, terr := s.session.sql("SELECT n, n * 2 AS twice FROM range(10) r(n)")
	s.Require().Nil(terr)
	defer df.free()

	props := writerPropertiesNew()
	defer props.free()
	props.setMaxRowGroupSize(4)

	path := filepath.Join(s.dir, "out.parquet")
	ok, terr := df.writeParquet(path, props)
	s.Require().Nil(terr)
	s.True(ok)

	opts := parquetOptionsNew()
	defer opts.free()
	opts.setPruning(true)
	ok, terr = s.session.registerParquet("p", path, opts)
	s.Require().Nil(terr)
	s.True(ok)

	_, records := s.export("SELECT CAST(sum(twice) AS BIGINT) AS total FROM p")
	s.Equal([]string{"90"}, columnStrings(records, 0))
}

func (s *CABITests) TestWriteParquetBadPath() {
	df, terr := s.session.sql("SELECT 1 AS a")
	s.Require().Nil(terr)
	defer df.free()

	ok, terr := df.writeParquet(filepath.Join(s.dir, "missing", "dir", "out.parquet"), nil)
	s.False(ok)
	s.requireError(terr, dfc.ErrorIO)
}

func (s *CABITests) TestDataFrameOutlivesSession() {
	other := sessionNew()
	s.Require().NotNil(other)
	created, terr := other.sql("CREATE TABLE t AS SELECT 7 AS v")
	s.Require().Nil(terr)
	created.free()
	df, terr := other.sql("SELECT v FROM t")
	s.Require().Nil(terr)
	other.free()
	defer df.free()

	_, records, _, _, terr := df.export()
	s.Require().Nil(terr)
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	s.Equal([]string{"7"}, columnStrings(records, 0))
}

func TestCABI(t *testing.T) {
	suite.Run(t, new(CABITests))
}

func TestCSVOptionsAccessors(t *testing.T) {
	opts := csvOptionsNew()
	defer opts.free()

	assert.True(t, opts.hasHeader())
	assert.Equal(t, byte(','), opts.delimiter())
	assert.Equal(t, 1000, opts.schemaInferMaxRecords())
	assert.Equal(t, ".csv", opts.fileExtension())

	sc, err := opts.schema()
	require.NoError(t, err)
	assert.Nil(t, sc)

	parts, err := opts.tablePartitionColumns()
	require.NoError(t, err)
	assert.Zero(t, parts.NumFields())

	opts.setHasHeader(false)
	opts.setDelimiter('|')
	opts.setSchemaInferMaxRecords(10)
	assert.True(t, opts.setFileExtension(".txt"))
	assert.False(t, opts.hasHeader())
	assert.Equal(t, byte('|'), opts.delimiter())
	assert.Equal(t, 10, opts.schemaInferMaxRecords())
	opts.setSchemaInferMaxRecordsSize(math.MaxUint64)
	assert.Equal(t, math.MaxInt, opts.schemaInferMaxRecords())
	assert.Equal(t, ".txt", opts.fileExtension())

	want := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	ok, terr := opts.setSchema(want)
	require.Nil(t, terr)
	assert.True(t, ok)
	sc, err = opts.schema()
	require.NoError(t, err)
	assert.True(t, want.Equal(sc), "expected: %s\ngot: %s", want, sc)

	ok, terr = opts.setSchema(nil)
	require.Nil(t, terr)
	assert.True(t, ok)
	sc, err = opts.schema()
	require.NoError(t, err)
	assert.Nil(t, sc)

	partSchema := arrow.NewSchema([]arrow.Field{{Name: "year", Type: arrow.PrimitiveTypes.Int32}}, nil)
	assert.True(t, opts.setTablePartitionColumns(partSchema))
	parts, err = opts.tablePartitionColumns()
	require.NoError(t, err)
	assert.Equal(t, "year", parts.Field(0).Name)
}

func TestParquetOptionsAccessors(t *testing.T) {
	opts := parquetOptionsNew()
	defer opts.free()

	assert.Equal(t, ".parquet", opts.fileExtension())
	assert.True(t, opts.setFileExtension(".pq"))
	assert.Equal(t, ".pq", opts.fileExtension())

	parts, err := opts.tablePartitionColumns()
	require.NoError(t, err)
	assert.Zero(t, parts.NumFields())

	partSchema := arrow.NewSchema([]arrow.Field{{Name: "region", Type: arrow.BinaryTypes.String}}, nil)
	assert.True(t, opts.setTablePartitionColumns(partSchema))
	parts, err = opts.tablePartitionColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, []string{parts.Field(0).Name})
}

func TestParquetPruningTriState(t *testing.T) {
	opts := parquetOptionsNew()
	defer opts.free()

	assert.False(t, opts.isSetPruning())
	assert.False(t, opts.pruning())

	opts.setPruning(true)
	assert.True(t, opts.isSetPruning())
	assert.True(t, opts.pruning())

	opts.setPruning(false)
	assert.True(t, opts.isSetPruning())
	assert.False(t, opts.pruning())

	opts.unsetPruning()
	assert.False(t, opts.isSetPruning())
}

func TestErrorMessageWithNUL(t *testing.T) {
	assert.True(t, errorRecordWritten("plain message"))
	assert.False(t, errorRecordWritten("bad\x00message"))
}

func TestMetricsGather(t *testing.T) {
	s := sessionNew()
	require.NotNil(t, s)
	df, terr := s.sql("SELECT 1")
	require.Nil(t, terr)
	df.free()
	s.free()

	text, terr := metricsGather()
	require.Nil(t, terr)
	assert.Contains(t, text, "dfc_operations_total")
	assert.Contains(t, text, `op="session_context_sql"`)
	assert.Contains(t, text, "dfc_live_handles")
}

func TestVersion(t *testing.T) {
	v := libraryVersion()
	assert.True(t, strings.HasPrefix(v, "dfc "), v)
	assert.Contains(t, v, "DuckDB")
	// the same static string every time
	assert.Equal(t, v, libraryVersion())
}
