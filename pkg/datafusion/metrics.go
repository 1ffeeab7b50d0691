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
	"sync"

	"github.com/apache/arrow-datafusion-c/go/dfc"
)

//export DataFusionMetricsGather
func DataFusionMetricsGather(err **C.DFError) (out *C.char) {
	const fname = "df_metrics_gather"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			out = nil
		}
	}()
	if checkPoison(err, fname) {
		return nil
	}

	text, e := getLibrary().metrics.Gather()
	if e != nil {
		setErr(err, boundary.Wrap(dfc.ErrorInternal, e, "gather metrics"))
		return nil
	}
	return C.CString(text)
}

// version is allocated once and never freed.
var version = sync.OnceValue(func() *C.char {
	lib := getLibrary()
	if lib.engine == nil {
		return C.CString("dfc (engine unavailable)")
	}
	return C.CString(lib.engine.Info.String())
})

//export DataFusionVersion
func DataFusionVersion() *C.char {
	return version()
}
