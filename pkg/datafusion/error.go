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
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
)

// boundary builds errors for failures detected before the engine is
// involved, such as bad strings or handles.
var boundary enginebase.ErrorHelper

// globalPoison is set once a panic was recovered at the boundary. The
// state behind the handles is unknown afterwards, so every later call
// fails.
var globalPoison atomic.Bool

const errPrefix = "[libdfc] "

// setErr stores err into *out as a new DFError. Errors that are not a
// dfc.Error are reported as external. A message containing a NUL byte
// cannot be represented and leaves *out untouched.
func setErr(out **C.DFError, err error) {
	if out == nil || err == nil {
		return
	}
	code := dfc.ErrorExternal
	var dfcErr dfc.Error
	if errors.As(err, &dfcErr) {
		code = dfcErr.Code
	}
	msg := err.Error()
	if strings.IndexByte(msg, 0) >= 0 {
		return
	}

	rec := (*C.DFError)(C.malloc(C.sizeof_DFError))
	if rec == nil {
		return
	}
	rec.code = C.DFErrorCode(code)
	rec.message = C.CString(msg)
	*out = rec
}

func poison(out **C.DFError, fname string, e any) {
	if globalPoison.CompareAndSwap(false, true) {
		fmt.Fprintf(os.Stderr, "%sGo panic in %s: %v\nGo stack trace:\n%s", errPrefix, fname, e, debug.Stack())
	}
	setErr(out, dfc.Errorf(dfc.ErrorInternal, "%s%s: Go panicked, the library is in an unknown state: %v", errPrefix, fname, e))
}

func checkPoison(out **C.DFError, fname string) bool {
	if globalPoison.Load() {
		setErr(out, dfc.Errorf(dfc.ErrorInternal, "%s%s: the library is unusable after an earlier Go panic", errPrefix, fname))
		return true
	}
	return false
}

// unavailable is the error every engine call reports when the engine
// could not be started.
func (lib *library) unavailable() error {
	var dfcErr dfc.Error
	if errors.As(lib.err, &dfcErr) {
		return dfcErr
	}
	return dfc.Errorf(dfc.ErrorInternal, "%sengine unavailable: %s", errPrefix, lib.err)
}
