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
	"unsafe"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
)

// importSchema moves a caller schema into Go. The C struct is released
// whether or not the import succeeds.
func importSchema(s *C.struct_ArrowSchema) (*arrow.Schema, error) {
	if s == nil {
		return nil, boundary.Errorf(dfc.ErrorArrow, "%sschema is NULL", errPrefix)
	}
	sc, err := cdata.ImportCArrowSchema((*cdata.CArrowSchema)(unsafe.Pointer(s)))
	if err != nil {
		return nil, boundary.Wrap(dfc.ErrorArrow, err, "import schema")
	}
	return sc, nil
}

// releaseSchema calls the release callback of a caller schema that was
// not imported.
func releaseSchema(s *C.struct_ArrowSchema) {
	if s != nil && s.release != nil {
		cdata.ReleaseCArrowSchema((*cdata.CArrowSchema)(unsafe.Pointer(s)))
	}
}

func releaseArrays(arrays []*C.struct_ArrowArray) {
	for _, arr := range arrays {
		if arr != nil && arr.release != nil {
			cdata.ReleaseCArrowArray((*cdata.CArrowArray)(unsafe.Pointer(arr)))
		}
	}
}

// exportSchema returns a malloc'ed schema struct the caller releases and
// frees.
func exportSchema(sc *arrow.Schema) (*C.struct_ArrowSchema, error) {
	out := (*C.struct_ArrowSchema)(C.calloc(1, C.sizeof_struct_ArrowSchema))
	if out == nil {
		return nil, boundary.Errorf(dfc.ErrorResourcesExhausted, "%sout of memory", errPrefix)
	}
	cdata.ExportArrowSchema(sc, (*cdata.CArrowSchema)(unsafe.Pointer(out)))
	return out, nil
}

// importRecordBatches moves every array into Go against one shared
// schema. Arrays are consumed on every path: those that were not
// imported are released before returning an error.
func importRecordBatches(sc *arrow.Schema, arrays []*C.struct_ArrowArray) (records []arrow.Record, err error) {
	next := 0
	defer func() {
		releaseArrays(arrays[next:])
		if err != nil {
			for _, rec := range records {
				rec.Release()
			}
			records = nil
		}
	}()

	records = make([]arrow.Record, 0, len(arrays))
	for i, arr := range arrays {
		next = i + 1
		if arr == nil {
			return records, boundary.Errorf(dfc.ErrorArrow, "%srecord batch %d is NULL", errPrefix, i)
		}
		rec, err := cdata.ImportCRecordBatchWithSchema((*cdata.CArrowArray)(unsafe.Pointer(arr)), sc)
		if err != nil {
			// a failed import leaves the array with the caller
			releaseArrays(arrays[i : i+1])
			return records, boundary.Wrap(dfc.ErrorArrow, err, "import record batch")
		}
		records = append(records, rec)
	}
	return records, nil
}

// exportRecordBatches hands records to C as one allocation holding the
// pointer array and the structs.
func exportRecordBatches(records []arrow.Record) (**C.struct_ArrowArray, error) {
	block := C.DataFusionAllocRecordBatches(C.int64_t(len(records)))
	if block == nil {
		return nil, boundary.Errorf(dfc.ErrorResourcesExhausted, "%sout of memory", errPrefix)
	}
	arrays := unsafe.Slice(block, len(records))
	exported := 0
	defer func() {
		if exported == len(records) {
			return
		}
		// a panic while exporting; undo what was handed out so far
		for _, arr := range arrays[:exported] {
			cdata.ReleaseCArrowArray((*cdata.CArrowArray)(unsafe.Pointer(arr)))
		}
		C.free(unsafe.Pointer(block))
	}()
	for i, rec := range records {
		cdata.ExportArrowRecordBatch(rec, (*cdata.CArrowArray)(unsafe.Pointer(arrays[i])), nil)
		exported++
	}
	return block, nil
}
