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

//export DataFusionParquetWriterPropertiesNew
func DataFusionParquetWriterPropertiesNew() (out *C.DFParquetWriterProperties) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_parquet_writer_properties_new", e)
			out = nil
		}
	}()
	return newHandle[C.DFParquetWriterProperties](kindWriterProps, &dfc.ParquetWriterProperties{})
}

//export DataFusionParquetWriterPropertiesFree
func DataFusionParquetWriterPropertiesFree(properties *C.DFParquetWriterProperties) {
	freeHandle(kindWriterProps, properties)
}

//export DataFusionParquetWriterPropertiesSetMaxRowGroupSize
func DataFusionParquetWriterPropertiesSetMaxRowGroupSize(properties *C.DFParquetWriterProperties, size C.size_t) {
	if p := getFromHandle[dfc.ParquetWriterProperties](properties); p != nil {
		p.MaxRowGroupSize = int64(size)
	}
}
