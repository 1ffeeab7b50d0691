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

//go:build driverlib

package main

// #include "utils.h"
import "C"

import (
	"math"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
)

//export DataFusionCSVReadOptionsNew
func DataFusionCSVReadOptionsNew() (out *C.DFCSVReadOptions) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_csv_read_options_new", e)
			out = nil
		}
	}()
	return newHandle[C.DFCSVReadOptions](kindCSVOptions, dfc.NewCSVReadOptions())
}

//export DataFusionCSVReadOptionsFree
func DataFusionCSVReadOptionsFree(options *C.DFCSVReadOptions) {
	freeHandle(kindCSVOptions, options)
}

func csvOptions(options *C.DFCSVReadOptions) *dfc.CSVReadOptions {
	o := getFromHandle[dfc.CSVReadOptions](options)
	if o == nil {
		// setters on a NULL handle are no-ops and getters see defaults
		return dfc.NewCSVReadOptions()
	}
	return o
}

//export DataFusionCSVReadOptionsSetHasHeader
func DataFusionCSVReadOptionsSetHasHeader(options *C.DFCSVReadOptions, hasHeader C.bool) {
	csvOptions(options).HasHeader = bool(hasHeader)
}

//export DataFusionCSVReadOptionsGetHasHeader
func DataFusionCSVReadOptionsGetHasHeader(options *C.DFCSVReadOptions) C.bool {
	return C.bool(csvOptions(options).HasHeader)
}

//export DataFusionCSVReadOptionsSetDelimiter
func DataFusionCSVReadOptionsSetDelimiter(options *C.DFCSVReadOptions, delimiter C.char) {
	csvOptions(options).Delimiter = byte(delimiter)
}

//export DataFusionCSVReadOptionsGetDelimiter
func DataFusionCSVReadOptionsGetDelimiter(options *C.DFCSVReadOptions) C.char {
	return C.char(csvOptions(options).Delimiter)
}

//export DataFusionCSVReadOptionsSetSchema
func DataFusionCSVReadOptionsSetSchema(options *C.DFCSVReadOptions, schema *C.struct_ArrowSchema, err **C.DFError) (ok C.bool) {
	const fname = "df_csv_read_options_set_schema"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		releaseSchema(schema)
		return false
	}

	o := csvOptions(options)
	if schema == nil {
		o.Schema = nil
		return true
	}
	sc, e := importSchema(schema)
	if e != nil {
		setErr(err, e)
		return false
	}
	o.Schema = sc
	return true
}

//export DataFusionCSVReadOptionsGetSchema
func DataFusionCSVReadOptionsGetSchema(options *C.DFCSVReadOptions, err **C.DFError) (out *C.struct_ArrowSchema) {
	const fname = "df_csv_read_options_get_schema"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			out = nil
		}
	}()
	if checkPoison(err, fname) {
		return nil
	}

	sc := csvOptions(options).Schema
	if sc == nil {
		return nil
	}
	out, e := exportSchema(sc)
	if e != nil {
		setErr(err, e)
		return nil
	}
	return out
}

//export DataFusionCSVReadOptionsSetSchemaInferMaxRecords
func DataFusionCSVReadOptionsSetSchemaInferMaxRecords(options *C.DFCSVReadOptions, n C.size_t) {
	if uint64(n) > math.MaxInt {
		n = C.size_t(math.MaxInt)
	}
	csvOptions(options).SchemaInferMaxRecords = int(n)
}

//export DataFusionCSVReadOptionsGetSchemaInferMaxRecords
func DataFusionCSVReadOptionsGetSchemaInferMaxRecords(options *C.DFCSVReadOptions) C.size_t {
	return C.size_t(csvOptions(options).SchemaInferMaxRecords)
}

//export DataFusionCSVReadOptionsSetFileExtension
func DataFusionCSVReadOptionsSetFileExtension(options *C.DFCSVReadOptions, ext *C.char, err **C.DFError) (ok C.bool) {
	v, e := goString(ext, "file_extension")
	if e != nil {
		setErr(err, e)
		return false
	}
	csvOptions(options).FileExtension = v
	return true
}

//export DataFusionCSVReadOptionsGetFileExtension
func DataFusionCSVReadOptionsGetFileExtension(options *C.DFCSVReadOptions) *C.char {
	return C.CString(csvOptions(options).FileExtension)
}

//export DataFusionCSVReadOptionsSetTablePartitionColumns
func DataFusionCSVReadOptionsSetTablePartitionColumns(options *C.DFCSVReadOptions, schema *C.struct_ArrowSchema, err **C.DFError) (ok C.bool) {
	const fname = "df_csv_read_options_set_table_partition_columns"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		releaseSchema(schema)
		return false
	}
	return setPartitionColumns(csvOptions(options), schema, err)
}

//export DataFusionCSVReadOptionsGetTablePartitionColumns
func DataFusionCSVReadOptionsGetTablePartitionColumns(options *C.DFCSVReadOptions, err **C.DFError) (out *C.struct_ArrowSchema) {
	const fname = "df_csv_read_options_get_table_partition_columns"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			out = nil
		}
	}()
	if checkPoison(err, fname) {
		return nil
	}
	return getPartitionColumns(csvOptions(options), err)
}

// partitioned is the partition column accessor pair shared by both read
// options kinds.
type partitioned interface {
	SetTablePartitionColumns(*arrow.Schema)
	TablePartitionColumns() *arrow.Schema
}

// setPartitionColumns consumes schema; NULL clears the columns.
func setPartitionColumns(o partitioned, schema *C.struct_ArrowSchema, err **C.DFError) C.bool {
	if schema == nil {
		o.SetTablePartitionColumns(nil)
		return true
	}
	sc, e := importSchema(schema)
	if e != nil {
		setErr(err, e)
		return false
	}
	o.SetTablePartitionColumns(sc)
	return true
}

func getPartitionColumns(o partitioned, err **C.DFError) *C.struct_ArrowSchema {
	out, e := exportSchema(o.TablePartitionColumns())
	if e != nil {
		setErr(err, e)
		return nil
	}
	return out
}
