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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteParquetFile(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rec, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(
		`[{"id": 1, "name": "a"}, {"id": 2, "name": null}, {"id": 3, "name": "c"}]`))
	require.NoError(t, err)
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, writeParquetFile(path, schema, []arrow.Record{rec}, &dfc.ParquetWriterProperties{MaxRowGroupSize: 2}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	pf, err := parquet.OpenFile(f, info.Size())
	require.NoError(t, err)
	assert.EqualValues(t, 3, pf.NumRows())
	assert.Len(t, pf.RowGroups(), 2)
}

func TestWriteParquetFileRemovedOnFailure(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.Null, Nullable: false}}, nil)

	path := filepath.Join(t.TempDir(), "bad.parquet")
	assert.Error(t, writeParquetFile(path, schema, nil, nil))
	assert.NoFileExists(t, path)

	err := writeParquetFile(filepath.Join(t.TempDir(), "missing", "x.parquet"), schema, nil, nil)
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorIO, dfcErr.Code)
}
