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
	"github.com/apache/arrow-datafusion-c/go/dfc"
)

//export DataFusionParquetReadOptionsNew
func DataFusionParquetReadOptionsNew() (out *C.DFParquetReadOptions) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_parquet_read_options_new", e)
			out = nil
		}
	}()
	return newHandle[C.DFParquetReadOptions](kindParquetOptions, dfc.NewParquetReadOptions())
}

//export DataFusionParquetReadOptionsFree
func DataFusionParquetReadOptionsFree(options *C.DFParquetReadOptions) {
	freeHandle(kindParquetOptions, options)
}

func parquetOptions(options *C.DFParquetReadOptions) *dfc.ParquetReadOptions {
	o := getFromHandle[dfc.ParquetReadOptions](options)
	if o == nil {
		return dfc.NewParquetReadOptions()
	}
	return o
}

//export DataFusionParquetReadOptionsSetFileExtension
func DataFusionParquetReadOptionsSetFileExtension(options *C.DFParquetReadOptions, ext *C.char, err **C.DFError) C.bool {
	v, e := goString(ext, "file_extension")
	if e != nil {
		setErr(err, e)
		return false
	}
	parquetOptions(options).FileExtension = v
	return true
}

//export DataFusionParquetReadOptionsGetFileExtension
func DataFusionParquetReadOptionsGetFileExtension(options *C.DFParquetReadOptions) *C.char {
	return C.CString(parquetOptions(options).FileExtension)
}

//export DataFusionParquetReadOptionsSetTablePartitionColumns
func DataFusionParquetReadOptionsSetTablePartitionColumns(options *C.DFParquetReadOptions, schema *C.struct_ArrowSchema, err **C.DFError) (ok C.bool) {
	const fname = "df_parquet_read_options_set_table_partition_columns"
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
	return setPartitionColumns(parquetOptions(options), schema, err)
}

//export DataFusionParquetReadOptionsGetTablePartitionColumns
func DataFusionParquetReadOptionsGetTablePartitionColumns(options *C.DFParquetReadOptions, err **C.DFError) (out *C.struct_ArrowSchema) {
	const fname = "df_parquet_read_options_get_table_partition_columns"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			out = nil
		}
	}()
	if checkPoison(err, fname) {
		return nil
	}
	return getPartitionColumns(parquetOptions(options), err)
}

//export DataFusionParquetReadOptionsSetPruning
func DataFusionParquetReadOptionsSetPruning(options *C.DFParquetReadOptions, pruning C.bool) {
	parquetOptions(options).SetPruning(bool(pruning))
}

//export DataFusionParquetReadOptionsGetPruning
func DataFusionParquetReadOptionsGetPruning(options *C.DFParquetReadOptions) C.bool {
	enabled, _ := parquetOptions(options).Pruning()
	return C.bool(enabled)
}

//export DataFusionParquetReadOptionsUnsetPruning
func DataFusionParquetReadOptionsUnsetPruning(options *C.DFParquetReadOptions) {
	parquetOptions(options).UnsetPruning()
}

//export DataFusionParquetReadOptionsIsSetPruning
func DataFusionParquetReadOptionsIsSetPruning(options *C.DFParquetReadOptions) C.bool {
	_, ok := parquetOptions(options).Pruning()
	return C.bool(ok)
}
