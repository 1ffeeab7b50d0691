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

//go:build driverlib && test

package main

// #include <stdlib.h>
// #include "utils.h"
import "C"

import (
	"unsafe"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
)

// Go test files cannot use cgo, so the tests drive the public C API
// through the wrappers below.

type testError struct {
	Code    dfc.ErrorCode
	Message string
}

// takeError copies and frees an error record.
func takeError(e *C.DFError) *testError {
	if e == nil {
		return nil
	}
	defer C.df_error_free(e)
	return &testError{
		Code:    dfc.ErrorCode(C.df_error_get_code(e)),
		Message: C.GoString(C.df_error_get_message(e)),
	}
}

func withCString(s string, fn func(*C.char)) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	fn(cs)
}

// withCBytes passes raw bytes as a NUL terminated string, which allows
// invalid UTF-8.
func withCBytes(b []byte, fn func(*C.char)) {
	cs := (*C.char)(C.CBytes(append(append([]byte{}, b...), 0)))
	defer C.free(unsafe.Pointer(cs))
	fn(cs)
}

// errorOut allocates a DFError* slot in C memory, runs fn with it and
// returns what was stored there.
func errorOut(fn func(**C.DFError)) *testError {
	slot := (**C.DFError)(C.calloc(1, C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(slot))
	fn(slot)
	return takeError(*slot)
}

// errorSentinel runs fn with a slot pre-filled with a marker pointer and
// reports whether fn left it alone.
func errorSentinel(fn func(**C.DFError)) (untouched bool) {
	slot := (**C.DFError)(C.calloc(1, C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(slot))
	marker := (*C.DFError)(C.malloc(C.sizeof_DFError))
	defer C.free(unsafe.Pointer(marker))
	*slot = marker
	fn(slot)
	if *slot != marker {
		takeError(*slot)
		return false
	}
	return true
}

func exportCSchema(sc *arrow.Schema) *C.struct_ArrowSchema {
	out := (*C.struct_ArrowSchema)(C.calloc(1, C.sizeof_struct_ArrowSchema))
	cdata.ExportArrowSchema(sc, (*cdata.CArrowSchema)(unsafe.Pointer(out)))
	return out
}

// importCSchema takes ownership of a schema returned by the library.
func importCSchema(s *C.struct_ArrowSchema) (*arrow.Schema, error) {
	if s == nil {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(s))
	return cdata.ImportCArrowSchema((*cdata.CArrowSchema)(unsafe.Pointer(s)))
}

type testSession struct {
	ptr *C.DFSessionContext
}

func sessionNew() *testSession {
	p := C.df_session_context_new()
	if p == nil {
		return nil
	}
	return &testSession{ptr: p}
}

func (s *testSession) free() {
	C.df_session_context_free(s.ptr)
}

func (s *testSession) sql(query string) (df *testDataFrame, terr *testError) {
	withCString(query, func(q *C.char) {
		terr = errorOut(func(e **C.DFError) {
			if p := C.df_session_context_sql(s.ptr, q, e); p != nil {
				df = &testDataFrame{ptr: p}
			}
		})
	})
	return
}

func (s *testSession) sqlBytes(query []byte) (df *testDataFrame, terr *testError) {
	withCBytes(query, func(q *C.char) {
		terr = errorOut(func(e **C.DFError) {
			if p := C.df_session_context_sql(s.ptr, q, e); p != nil {
				df = &testDataFrame{ptr: p}
			}
		})
	})
	return
}

// sqlNoErrorSlot runs a query passing NULL for the error slot.
func (s *testSession) sqlNoErrorSlot(query string) (df *testDataFrame) {
	withCString(query, func(q *C.char) {
		if p := C.df_session_context_sql(s.ptr, q, nil); p != nil {
			df = &testDataFrame{ptr: p}
		}
	})
	return
}

// sqlKeepsErrorSlot reports whether a successful query left a non-NULL
// error slot untouched.
func (s *testSession) sqlKeepsErrorSlot(query string) (untouched bool) {
	withCString(query, func(q *C.char) {
		untouched = errorSentinel(func(e **C.DFError) {
			if p := C.df_session_context_sql(s.ptr, q, e); p != nil {
				C.df_data_frame_free(p)
			}
		})
	})
	return
}

func (s *testSession) deregister(name string) (ok bool, terr *testError) {
	withCString(name, func(n *C.char) {
		terr = errorOut(func(e **C.DFError) {
			ok = bool(C.df_session_context_deregister(s.ptr, n, e))
		})
	})
	return
}

func (s *testSession) deregisterNoErrorSlot(name string) (ok bool) {
	withCString(name, func(n *C.char) {
		ok = bool(C.df_session_context_deregister(s.ptr, n, nil))
	})
	return
}

// registerRecordBatches exports sc and records the way a C producer
// would. A nil entry in records is passed as a NULL array. released
// reports whether the library released the schema and every array.
func (s *testSession) registerRecordBatches(name string, sc *arrow.Schema, records []arrow.Record) (ok bool, released bool, terr *testError) {
	cSchema := exportCSchema(sc)
	defer C.free(unsafe.Pointer(cSchema))

	n := len(records)
	ptrs := (**C.struct_ArrowArray)(C.calloc(C.size_t(max(n, 1)), C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(ptrs))
	arrays := unsafe.Slice(ptrs, max(n, 1))[:n]
	for i, rec := range records {
		if rec == nil {
			continue
		}
		arrays[i] = (*C.struct_ArrowArray)(C.calloc(1, C.sizeof_struct_ArrowArray))
		cdata.ExportArrowRecordBatch(rec, (*cdata.CArrowArray)(unsafe.Pointer(arrays[i])), nil)
	}

	withCString(name, func(cn *C.char) {
		terr = errorOut(func(e **C.DFError) {
			ok = bool(C.df_session_context_register_record_batches(s.ptr, cn, cSchema, ptrs, C.size_t(n), e))
		})
	})

	released = cSchema.release == nil
	for _, arr := range arrays {
		if arr == nil {
			continue
		}
		if arr.release != nil {
			released = false
			cdata.ReleaseCArrowArray((*cdata.CArrowArray)(unsafe.Pointer(arr)))
		}
		C.free(unsafe.Pointer(arr))
	}
	return
}

func (s *testSession) registerCSV(name, url string, opts *testCSVOptions) (ok bool, terr *testError) {
	var o *C.DFCSVReadOptions
	if opts != nil {
		o = opts.ptr
	}
	withCString(name, func(cn *C.char) {
		withCString(url, func(cu *C.char) {
			terr = errorOut(func(e **C.DFError) {
				ok = bool(C.df_session_context_register_csv(s.ptr, cn, cu, o, e))
			})
		})
	})
	return
}

func (s *testSession) registerParquet(name, url string, opts *testParquetOptions) (ok bool, terr *testError) {
	var o *C.DFParquetReadOptions
	if opts != nil {
		o = opts.ptr
	}
	withCString(name, func(cn *C.char) {
		withCString(url, func(cu *C.char) {
			terr = errorOut(func(e **C.DFError) {
				ok = bool(C.df_session_context_register_parquet(s.ptr, cn, cu, o, e))
			})
		})
	})
	return
}

type testDataFrame struct {
	ptr *C.DFDataFrame
}

func (d *testDataFrame) free() {
	C.df_data_frame_free(d.ptr)
}

func (d *testDataFrame) show() *testError {
	return errorOut(func(e **C.DFError) {
		C.df_data_frame_show(d.ptr, e)
	})
}

// export imports everything the library exported and frees the C
// allocations. outCleared reports whether both out pointers were NULL
// after a failure.
func (d *testDataFrame) export() (sc *arrow.Schema, records []arrow.Record, n int64, outCleared bool, terr *testError) {
	schemaOut := (**C.struct_ArrowSchema)(C.calloc(1, C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(schemaOut))
	batchesOut := (***C.struct_ArrowArray)(C.calloc(1, C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(batchesOut))

	terr = errorOut(func(e **C.DFError) {
		n = int64(C.df_data_frame_export(d.ptr, schemaOut, batchesOut, e))
	})
	if n < 0 {
		outCleared = *schemaOut == nil && *batchesOut == nil
		return
	}

	var err error
	if sc, err = importCSchema(*schemaOut); err != nil {
		panic(err)
	}
	batches := *batchesOut
	arrays := unsafe.Slice(batches, max(n, 1))[:n]
	for _, arr := range arrays {
		rec, err := cdata.ImportCRecordBatchWithSchema((*cdata.CArrowArray)(unsafe.Pointer(arr)), sc)
		if err != nil {
			panic(err)
		}
		records = append(records, rec)
	}
	// the imports moved every struct, so only the block is left
	C.df_record_batches_free(batches, C.int64_t(n))
	return
}

func (d *testDataFrame) writeParquet(path string, props *testWriterProperties) (ok bool, terr *testError) {
	var p *C.DFParquetWriterProperties
	if props != nil {
		p = props.ptr
	}
	withCString(path, func(cp *C.char) {
		terr = errorOut(func(e **C.DFError) {
			ok = bool(C.df_data_frame_write_parquet(d.ptr, cp, p, e))
		})
	})
	return
}

type testCSVOptions struct {
	ptr *C.DFCSVReadOptions
}

func csvOptionsNew() *testCSVOptions {
	return &testCSVOptions{ptr: C.df_csv_read_options_new()}
}

func (o *testCSVOptions) free() { C.df_csv_read_options_free(o.ptr) }

func (o *testCSVOptions) setHasHeader(v bool) {
	C.df_csv_read_options_set_has_header(o.ptr, C.bool(v))
}

func (o *testCSVOptions) hasHeader() bool {
	return bool(C.df_csv_read_options_get_has_header(o.ptr))
}

func (o *testCSVOptions) setDelimiter(c byte) {
	C.df_csv_read_options_set_delimiter(o.ptr, C.char(c))
}

func (o *testCSVOptions) delimiter() byte {
	return byte(C.df_csv_read_options_get_delimiter(o.ptr))
}

// setSchema passes sc, or NULL when sc is nil.
func (o *testCSVOptions) setSchema(sc *arrow.Schema) (ok bool, terr *testError) {
	var cs *C.struct_ArrowSchema
	if sc != nil {
		cs = exportCSchema(sc)
		defer C.free(unsafe.Pointer(cs))
	}
	terr = errorOut(func(e **C.DFError) {
		ok = bool(C.df_csv_read_options_set_schema(o.ptr, cs, e))
	})
	return
}

func (o *testCSVOptions) schema() (*arrow.Schema, error) {
	var out *C.struct_ArrowSchema
	if terr := errorOut(func(e **C.DFError) {
		out = C.df_csv_read_options_get_schema(o.ptr, e)
	}); terr != nil {
		return nil, dfc.Error{Code: terr.Code, Msg: terr.Message}
	}
	return importCSchema(out)
}

func (o *testCSVOptions) setSchemaInferMaxRecords(n int) {
	C.df_csv_read_options_set_schema_infer_max_records(o.ptr, C.size_t(n))
}

func (o *testCSVOptions) setSchemaInferMaxRecordsSize(n uint64) {
	C.df_csv_read_options_set_schema_infer_max_records(o.ptr, C.size_t(n))
}

func (o *testCSVOptions) schemaInferMaxRecords() int {
	return int(C.df_csv_read_options_get_schema_infer_max_records(o.ptr))
}

func (o *testCSVOptions) setFileExtension(ext string) (ok bool) {
	withCString(ext, func(ce *C.char) {
		ok = bool(C.df_csv_read_options_set_file_extension(o.ptr, ce, nil))
	})
	return
}

func (o *testCSVOptions) setFileExtensionBytes(ext []byte) (ok bool, terr *testError) {
	withCBytes(ext, func(ce *C.char) {
		terr = errorOut(func(e **C.DFError) {
			ok = bool(C.df_csv_read_options_set_file_extension(o.ptr, ce, e))
		})
	})
	return
}

func (o *testCSVOptions) fileExtension() string {
	cs := C.df_csv_read_options_get_file_extension(o.ptr)
	defer C.df_string_free(cs)
	return C.GoString(cs)
}

func (o *testCSVOptions) setTablePartitionColumns(sc *arrow.Schema) bool {
	var cs *C.struct_ArrowSchema
	if sc != nil {
		cs = exportCSchema(sc)
		defer C.free(unsafe.Pointer(cs))
	}
	return bool(C.df_csv_read_options_set_table_partition_columns(o.ptr, cs, nil))
}

func (o *testCSVOptions) tablePartitionColumns() (*arrow.Schema, error) {
	return importCSchema(C.df_csv_read_options_get_table_partition_columns(o.ptr, nil))
}

type testParquetOptions struct {
	ptr *C.DFParquetReadOptions
}

func parquetOptionsNew() *testParquetOptions {
	return &testParquetOptions{ptr: C.df_parquet_read_options_new()}
}

func (o *testParquetOptions) free() { C.df_parquet_read_options_free(o.ptr) }

func (o *testParquetOptions) setFileExtension(ext string) (ok bool) {
	withCString(ext, func(ce *C.char) {
		ok = bool(C.df_parquet_read_options_set_file_extension(o.ptr, ce, nil))
	})
	return
}

func (o *testParquetOptions) fileExtension() string {
	cs := C.df_parquet_read_options_get_file_extension(o.ptr)
	defer C.df_string_free(cs)
	return C.GoString(cs)
}

func (o *testParquetOptions) setTablePartitionColumns(sc *arrow.Schema) bool {
	var cs *C.struct_ArrowSchema
	if sc != nil {
		cs = exportCSchema(sc)
		defer C.free(unsafe.Pointer(cs))
	}
	return bool(C.df_parquet_read_options_set_table_partition_columns(o.ptr, cs, nil))
}

func (o *testParquetOptions) tablePartitionColumns() (*arrow.Schema, error) {
	return importCSchema(C.df_parquet_read_options_get_table_partition_columns(o.ptr, nil))
}

func (o *testParquetOptions) setPruning(v bool) {
	C.df_parquet_read_options_set_pruning(o.ptr, C.bool(v))
}

func (o *testParquetOptions) pruning() bool {
	return bool(C.df_parquet_read_options_get_pruning(o.ptr))
}

func (o *testParquetOptions) unsetPruning() {
	C.df_parquet_read_options_unset_pruning(o.ptr)
}

func (o *testParquetOptions) isSetPruning() bool {
	return bool(C.df_parquet_read_options_is_set_pruning(o.ptr))
}

type testWriterProperties struct {
	ptr *C.DFParquetWriterProperties
}

func writerPropertiesNew() *testWriterProperties {
	return &testWriterProperties{ptr: C.df_parquet_writer_properties_new()}
}

func (p *testWriterProperties) free() { C.df_parquet_writer_properties_free(p.ptr) }

func (p *testWriterProperties) setMaxRowGroupSize(n int) {
	C.df_parquet_writer_properties_set_max_row_group_size(p.ptr, C.size_t(n))
}

func metricsGather() (string, *testError) {
	var cs *C.char
	terr := errorOut(func(e **C.DFError) {
		cs = C.df_metrics_gather(e)
	})
	if cs == nil {
		return "", terr
	}
	defer C.df_string_free(cs)
	return C.GoString(cs), terr
}

func libraryVersion() string {
	return C.GoString(C.df_version())
}

// errorRecordWritten reports whether an error with msg reaches the slot.
func errorRecordWritten(msg string) bool {
	terr := errorOut(func(e **C.DFError) {
		setErr(e, dfc.Errorf(dfc.ErrorExecution, "%s", msg))
	})
	return terr != nil
}
