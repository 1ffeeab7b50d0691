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
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	goduckdb "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSession(t *testing.T) (*sessionContext, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &sessionContext{eng: testEngine(), db: &database{sql: db}}, mock
}

var catalogQuery = regexp.QuoteMeta("SELECT table_name, table_type FROM information_schema.tables")

func TestCatalogLookup(t *testing.T) {
	ctx := context.Background()
	s, mock := mockSession(t)

	mock.ExpectQuery(catalogQuery).WithArgs("Sales").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).AddRow("sales", "VIEW"))
	entry, found, err := s.lookup(ctx, "Sales")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, catalogEntry{name: "sales", view: true}, entry)

	mock.ExpectQuery(catalogQuery).WithArgs("t").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).AddRow("t", "BASE TABLE"))
	entry, found, err = s.lookup(ctx, "t")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, entry.view)

	mock.ExpectQuery(catalogQuery).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}))
	_, found, err = s.lookup(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectQuery(catalogQuery).WithArgs("broken").
		WillReturnError(&goduckdb.Error{Type: goduckdb.ErrorTypeIO, Msg: "IO Error: disk full"})
	_, _, err = s.lookup(ctx, "broken")
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorIO, dfcErr.Code)
	assert.Equal(t, "catalog lookup", dfcErr.Details["operation"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginRegister(t *testing.T) {
	ctx := context.Background()
	s, mock := mockSession(t)

	mock.ExpectQuery(catalogQuery).WithArgs("taken").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).AddRow("taken", "BASE TABLE"))
	var dfcErr dfc.Error
	require.ErrorAs(t, s.beginRegister(ctx, "taken"), &dfcErr)
	assert.Equal(t, dfc.ErrorExecution, dfcErr.Code)
	assert.Equal(t, "The table 'taken' already exists", dfcErr.Msg)

	require.ErrorAs(t, s.beginRegister(ctx, ""), &dfcErr)
	assert.Equal(t, dfc.ErrorPlan, dfcErr.Code)
	require.ErrorAs(t, s.beginRegister(ctx, "\xff"), &dfcErr)
	assert.Equal(t, dfc.ErrorExternal, dfcErr.Code)

	mock.ExpectQuery(catalogQuery).WithArgs("free").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}))
	assert.NoError(t, s.beginRegister(ctx, "free"))

	s.closed = true
	require.ErrorAs(t, s.beginRegister(ctx, "free"), &dfcErr)
	assert.Equal(t, dfc.ErrorInternal, dfcErr.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeregisterUnknownTable(t *testing.T) {
	s, mock := mockSession(t)
	mock.ExpectQuery(catalogQuery).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}))

	var dfcErr dfc.Error
	require.ErrorAs(t, s.Deregister(context.Background(), "nope"), &dfcErr)
	assert.Equal(t, dfc.ErrorPlan, dfcErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRebatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "l", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32), Nullable: true},
	}, nil)
	chunk := func(data string) arrow.Record {
		rec, _, err := array.RecordFromJSON(mem, schema, strings.NewReader(data))
		require.NoError(t, err)
		return rec
	}
	chunks := []arrow.Record{
		chunk(`[{"n": 1, "l": [1]}, {"n": 2, "l": null}]`),
		chunk(`[]`),
		chunk(`[{"n": 3, "l": [3, 3]}, {"n": 4, "l": []}, {"n": null, "l": [5]}]`),
	}
	defer releaseRecords(chunks)

	records, err := rebatch(mem, schema, chunks, 2)
	require.NoError(t, err)
	defer releaseRecords(records)

	var sizes []int64
	var values []string
	for _, rec := range records {
		assert.True(t, schema.Equal(rec.Schema()))
		sizes = append(sizes, rec.NumRows())
		for i := 0; i < int(rec.NumRows()); i++ {
			values = append(values, rec.Column(0).ValueStr(i)+"/"+rec.Column(1).ValueStr(i))
		}
	}
	assert.Equal(t, []int64{2, 2, 1}, sizes)
	assert.Equal(t, []string{"1/[1]", "2/(null)", "3/[3,3]", "4/[]", "(null)/[5]"}, values)

	empty, err := rebatch(mem, schema, []arrow.Record{chunks[1]}, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
