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

//go:build !duckdb_arrow

package duckdb

import (
	"context"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// The engine exchanges every result and registered table through the
// driver's Arrow interface, which only exists with the duckdb_arrow tag.
const arrowEnabled = false

var errArrowDisabled = dfc.Errorf(dfc.ErrorNotImplemented, "built without the duckdb_arrow tag")

func queryRecords(context.Context, any, string, memory.Allocator, int) (*arrow.Schema, []arrow.Record, error) {
	return nil, nil, errArrowDisabled
}

func registerRecords(context.Context, any, string, array.RecordReader) error {
	return errArrowDisabled
}
