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
	"runtime/cgo"
	"unsafe"

	"github.com/apache/arrow-datafusion-c/go/dfc"
)

const (
	kindSession        = "session_context"
	kindDataFrame      = "data_frame"
	kindCSVOptions     = "csv_read_options"
	kindParquetOptions = "parquet_read_options"
	kindWriterProps    = "parquet_writer_properties"
)

// handleStruct lists the opaque C handle types. Each is a struct with a
// single uintptr_t field holding a cgo.Handle.
type handleStruct interface {
	C.DFSessionContext | C.DFDataFrame | C.DFCSVReadOptions |
		C.DFParquetReadOptions | C.DFParquetWriterProperties
}

type sessionContext struct {
	ctx dfc.SessionContext
}

type dataFrame struct {
	df dfc.DataFrame
}

func newHandle[H handleStruct](kind string, v any) *H {
	p := (*H)(C.calloc(1, C.size_t(unsafe.Sizeof(C.uintptr_t(0)))))
	if p == nil {
		return nil
	}
	*(*C.uintptr_t)(unsafe.Pointer(p)) = C.uintptr_t(cgo.NewHandle(v))
	getLibrary().metrics.HandleCreated(kind)
	return p
}

// getFromHandle returns the Go value behind p, or nil for a NULL or
// already freed handle.
func getFromHandle[T any, H handleStruct](p *H) *T {
	if p == nil {
		return nil
	}
	h := *(*C.uintptr_t)(unsafe.Pointer(p))
	if h == 0 {
		return nil
	}
	return cgo.Handle(h).Value().(*T)
}

func freeHandle[H handleStruct](kind string, p *H) {
	if p == nil {
		return
	}
	hp := (*C.uintptr_t)(unsafe.Pointer(p))
	if *hp != 0 {
		cgo.Handle(*hp).Delete()
		*hp = 0
	}
	C.free(unsafe.Pointer(p))
	getLibrary().metrics.HandleFreed(kind)
}

func invalidHandle(what string) error {
	return boundary.Errorf(dfc.ErrorInternal, "%s%s handle is NULL or freed", errPrefix, what)
}
