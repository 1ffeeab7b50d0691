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

package sqldriver_test

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apache/arrow-datafusion-c/go/dfc/engine/duckdb"
	"github.com/apache/arrow-datafusion-c/go/dfc/sqldriver"
)

func Example() {
	eng, err := duckdb.NewEngine(context.Background(), duckdb.Options{}, nil)
	if err != nil {
		panic(err)
	}
	defer eng.Close(context.Background())

	sql.Register("dfc", sqldriver.Driver{Engine: eng})

	db, err := sql.Open("dfc", "")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT 1 AS one")
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			panic(err)
		}
	}()

	colNames, err := rows.Columns()
	if err != nil {
		panic(err)
	}

	fmt.Println(colNames)
	cols, err := rows.ColumnTypes()
	if err != nil {
		panic(err)
	}
	fmt.Println(cols[0].Name())
	fmt.Println(cols[0].Nullable())

	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			panic(err)
		}
		fmt.Println(v)
	}

	// Output:
	// [one]
	// one
	// true true
	// 1
}
