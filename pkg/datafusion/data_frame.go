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
	"context"
	"os"
	"unsafe"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
)

//export DataFusionDataFrameFree
func DataFusionDataFrameFree(frame *C.DFDataFrame) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_data_frame_free", e)
		}
	}()
	if frame == nil {
		return
	}
	if d := getFromHandle[dataFrame](frame); d != nil {
		if err := d.df.Close(); err != nil {
			getLibrary().logger.Warn("closing data frame", "error", err)
		}
	}
	freeHandle(kindDataFrame, frame)
}

func getDataFrame(frame *C.DFDataFrame) (*dataFrame, error) {
	d := getFromHandle[dataFrame](frame)
	if d == nil {
		return nil, invalidHandle("data frame")
	}
	return d, nil
}

//export DataFusionDataFrameShow
func DataFusionDataFrameShow(frame *C.DFDataFrame, err **C.DFError) {
	const fname = "df_data_frame_show"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
		}
	}()
	if checkPoison(err, fname) {
		return
	}

	d, e := getDataFrame(frame)
	if e != nil {
		setErr(err, e)
		return
	}
	e = getLibrary().run("data_frame_show", func(ctx context.Context) error {
		return d.df.Show(ctx, os.Stdout)
	})
	setErr(err, e)
}

//export DataFusionDataFrameExport
func DataFusionDataFrameExport(frame *C.DFDataFrame, schemaOut **C.struct_ArrowSchema, batchesOut ***C.struct_ArrowArray, err **C.DFError) (n C.int64_t) {
	const fname = "df_data_frame_export"
	var (
		cSchema  *C.struct_ArrowSchema
		cBatches **C.struct_ArrowArray
	)
	succeeded := false
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			n = -1
		}
		if succeeded {
			return
		}
		// nothing partially produced survives a failure
		if cSchema != nil {
			releaseSchema(cSchema)
			C.free(unsafe.Pointer(cSchema))
		}
		if cBatches != nil {
			C.free(unsafe.Pointer(cBatches))
		}
		if schemaOut != nil {
			*schemaOut = nil
		}
		if batchesOut != nil {
			*batchesOut = nil
		}
	}()
	if checkPoison(err, fname) {
		return -1
	}
	if schemaOut == nil || batchesOut == nil {
		setErr(err, boundary.Errorf(dfc.ErrorInternal, "%sschema and record_batches must not be NULL", errPrefix))
		return -1
	}

	d, e := getDataFrame(frame)
	if e != nil {
		setErr(err, e)
		return -1
	}

	lib := getLibrary()
	var (
		schema  *arrow.Schema
		records []arrow.Record
	)
	e = lib.run("data_frame_export", func(ctx context.Context) (err error) {
		schema, records, err = d.df.Collect(ctx)
		return
	})
	if e != nil {
		setErr(err, e)
		return -1
	}
	// exported arrays hold their own references
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	if cSchema, e = exportSchema(schema); e != nil {
		setErr(err, e)
		return -1
	}
	if cBatches, e = exportRecordBatches(records); e != nil {
		setErr(err, e)
		return -1
	}

	*schemaOut = cSchema
	*batchesOut = cBatches
	succeeded = true
	lib.metrics.AddExportedBatches(len(records))
	return C.int64_t(len(records))
}

//export DataFusionDataFrameWriteParquet
func DataFusionDataFrameWriteParquet(frame *C.DFDataFrame, path *C.char, properties *C.DFParquetWriterProperties, err **C.DFError) (ok C.bool) {
	const fname = "df_data_frame_write_parquet"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		return false
	}

	d, e := getDataFrame(frame)
	if e != nil {
		setErr(err, e)
		return false
	}
	target, e := goString(path, "path")
	if e != nil {
		setErr(err, e)
		return false
	}
	var props *dfc.ParquetWriterProperties
	if p := getFromHandle[dfc.ParquetWriterProperties](properties); p != nil {
		copied := *p
		props = &copied
	}

	e = getLibrary().run("data_frame_write_parquet", func(ctx context.Context) error {
		return d.df.WriteParquet(ctx, target, props)
	})
	if e != nil {
		setErr(err, e)
		return false
	}
	return true
}
