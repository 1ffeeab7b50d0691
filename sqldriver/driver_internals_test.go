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
	"database/sql/driver"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectStr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []source
	}{
		{"empty", "", nil},
		{"trailing separator", "csv.a=/tmp/a.csv;", []source{{sourceCSV, "a", "/tmp/a.csv"}}},
		{"two sources", " csv.a = /tmp/a.csv ; parquet.b=s3://bucket/b/ ",
			[]source{{sourceCSV, "a", "/tmp/a.csv"}, {sourceParquet, "b", "s3://bucket/b/"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConnectStr(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"novalue", "json.a=/x", "csv.=/x", "csv=/x"} {
		_, err := parseConnectStr(bad)
		var dfcErr dfc.Error
		require.ErrorAs(t, err, &dfcErr, bad)
		assert.Equal(t, dfc.ErrorConfiguration, dfcErr.Code)
	}
}

func TestRowsNext(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
	}, nil)
	first, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(`[{"id": 1, "name": "a", "day": "2024-01-02"}]`))
	require.NoError(t, err)
	empty, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(`[]`))
	require.NoError(t, err)
	second, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(`[{"id": 2, "name": null, "day": null}]`))
	require.NoError(t, err)

	r := &rows{schema: schema, records: []arrow.Record{first, empty, second}}
	assert.Equal(t, []string{"id", "name", "day"}, r.Columns())

	dest := make([]driver.Value, 3)
	require.NoError(t, r.Next(dest))
	assert.Equal(t, []driver.Value{int64(1), "a", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, dest)
	require.NoError(t, r.Next(dest))
	assert.Equal(t, []driver.Value{int64(2), nil, nil}, dest)
	assert.ErrorIs(t, r.Next(dest), io.EOF)

	require.NoError(t, r.Close())
}

func TestRowsUnsupportedType(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "l", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
	}, nil)
	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, schema, strings.NewReader(`[{"l": [1, 2]}]`))
	require.NoError(t, err)

	r := &rows{schema: schema, records: []arrow.Record{rec}}
	defer r.Close()

	err = r.Next(make([]driver.Value, 1))
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorNotImplemented, dfcErr.Code)
}
