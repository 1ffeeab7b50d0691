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

package sqldriver

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/engine/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, dsn string) *sql.DB {
	eng, err := duckdb.NewEngine(context.Background(), duckdb.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close(context.Background()) })

	c, err := Driver{Engine: eng}.OpenConnector(dsn)
	require.NoError(t, err)
	db := sql.OpenDB(c)
	// one session, so statements see each other's tables
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestExecThenQuery(t *testing.T) {
	db := openDB(t, "")

	_, err := db.Exec("CREATE TABLE t (a INTEGER, b VARCHAR)")
	require.NoError(t, err)

	insert, err := db.Prepare("INSERT INTO t VALUES (1, 'x')")
	require.NoError(t, err)
	for range 2 {
		_, err = insert.Exec()
		require.NoError(t, err)
	}
	require.NoError(t, insert.Close())

	var n int64
	require.NoError(t, db.QueryRow("SELECT count(*) FROM t").Scan(&n))
	assert.EqualValues(t, 2, n)

	_, err = db.Query("SELECT ?", 1)
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorNotImplemented, dfcErr.Code)

	_, err = db.Begin()
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorNotImplemented, dfcErr.Code)
}

func TestConnectRegistersSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,age\nann,31\nbob,42\n"), 0o644))

	db := openDB(t, "csv.people="+path)

	rows, err := db.Query("SELECT name FROM people ORDER BY age DESC")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"bob", "ann"}, names)
}

func TestConnectMissingSource(t *testing.T) {
	db := openDB(t, "parquet.gone="+filepath.Join(t.TempDir(), "gone.parquet"))

	err := db.Ping()
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorIO, dfcErr.Code)
}
