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
	"unsafe"

	"github.com/apache/arrow-datafusion-c/go/dfc"
)

//export DataFusionSessionContextNew
func DataFusionSessionContextNew() (out *C.DFSessionContext) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_session_context_new", e)
			out = nil
		}
	}()
	if checkPoison(nil, "df_session_context_new") {
		return nil
	}

	lib := getLibrary()
	var sess dfc.SessionContext
	err := lib.run("session_context_new", func(ctx context.Context) (err error) {
		sess, err = lib.engine.NewSessionContext(ctx)
		return
	})
	if err != nil {
		lib.logger.Error("cannot create session context", "error", err)
		return nil
	}
	return newHandle[C.DFSessionContext](kindSession, &sessionContext{ctx: sess})
}

//export DataFusionSessionContextFree
func DataFusionSessionContextFree(session *C.DFSessionContext) {
	defer func() {
		if e := recover(); e != nil {
			poison(nil, "df_session_context_free", e)
		}
	}()
	if session == nil {
		return
	}
	if s := getFromHandle[sessionContext](session); s != nil {
		if err := s.ctx.Close(); err != nil {
			getLibrary().logger.Warn("closing session context", "error", err)
		}
	}
	freeHandle(kindSession, session)
}

func getSession(session *C.DFSessionContext) (*sessionContext, error) {
	s := getFromHandle[sessionContext](session)
	if s == nil {
		return nil, invalidHandle("session context")
	}
	return s, nil
}

//export DataFusionSessionContextSQL
func DataFusionSessionContextSQL(session *C.DFSessionContext, sql *C.char, err **C.DFError) (out *C.DFDataFrame) {
	const fname = "df_session_context_sql"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			out = nil
		}
	}()
	if checkPoison(err, fname) {
		return nil
	}

	s, e := getSession(session)
	if e != nil {
		setErr(err, e)
		return nil
	}
	query, e := goString(sql, "sql")
	if e != nil {
		setErr(err, e)
		return nil
	}

	var df dfc.DataFrame
	e = getLibrary().run("session_context_sql", func(ctx context.Context) (err error) {
		df, err = s.ctx.SQL(ctx, query)
		return
	})
	if e != nil {
		setErr(err, e)
		return nil
	}
	return newHandle[C.DFDataFrame](kindDataFrame, &dataFrame{df: df})
}

//export DataFusionSessionContextDeregister
func DataFusionSessionContextDeregister(session *C.DFSessionContext, name *C.char, err **C.DFError) (ok C.bool) {
	const fname = "df_session_context_deregister"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		return false
	}

	s, e := getSession(session)
	if e != nil {
		setErr(err, e)
		return false
	}
	table, e := goString(name, "name")
	if e != nil {
		setErr(err, e)
		return false
	}
	e = getLibrary().run("session_context_deregister", func(ctx context.Context) error {
		return s.ctx.Deregister(ctx, table)
	})
	if e != nil {
		setErr(err, e)
		return false
	}
	return true
}

//export DataFusionSessionContextRegisterRecordBatches
func DataFusionSessionContextRegisterRecordBatches(session *C.DFSessionContext, name *C.char, schema *C.struct_ArrowSchema, batches **C.struct_ArrowArray, n C.size_t, err **C.DFError) (ok C.bool) {
	const fname = "df_session_context_register_record_batches"
	var arrays []*C.struct_ArrowArray
	if batches != nil && n > 0 {
		arrays = unsafe.Slice(batches, int(n))
	}
	// schema and arrays belong to us from here on, whatever happens
	consumed := false
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
		if !consumed {
			releaseSchema(schema)
			releaseArrays(arrays)
		}
	}()
	if checkPoison(err, fname) {
		return false
	}

	sc, e := importSchema(schema)
	schema = nil
	if e != nil {
		setErr(err, e)
		return false
	}
	records, e := importRecordBatches(sc, arrays)
	consumed = true
	if e != nil {
		setErr(err, e)
		return false
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	s, e := getSession(session)
	if e != nil {
		setErr(err, e)
		return false
	}
	table, e := goString(name, "name")
	if e != nil {
		setErr(err, e)
		return false
	}
	e = getLibrary().run("session_context_register_record_batches", func(ctx context.Context) error {
		return s.ctx.RegisterRecordBatches(ctx, table, sc, records)
	})
	if e != nil {
		setErr(err, e)
		return false
	}
	return true
}

//export DataFusionSessionContextRegisterCSV
func DataFusionSessionContextRegisterCSV(session *C.DFSessionContext, name, url *C.char, options *C.DFCSVReadOptions, err **C.DFError) (ok C.bool) {
	const fname = "df_session_context_register_csv"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		return false
	}

	s, table, location, e := registerArgs(session, name, url)
	if e != nil {
		setErr(err, e)
		return false
	}
	var opts *dfc.CSVReadOptions
	if o := getFromHandle[dfc.CSVReadOptions](options); o != nil {
		opts = o.Clone()
	}
	e = getLibrary().run("session_context_register_csv", func(ctx context.Context) error {
		return s.ctx.RegisterCSV(ctx, table, location, opts)
	})
	if e != nil {
		setErr(err, e)
		return false
	}
	return true
}

//export DataFusionSessionContextRegisterParquet
func DataFusionSessionContextRegisterParquet(session *C.DFSessionContext, name, url *C.char, options *C.DFParquetReadOptions, err **C.DFError) (ok C.bool) {
	const fname = "df_session_context_register_parquet"
	defer func() {
		if e := recover(); e != nil {
			poison(err, fname, e)
			ok = false
		}
	}()
	if checkPoison(err, fname) {
		return false
	}

	s, table, location, e := registerArgs(session, name, url)
	if e != nil {
		setErr(err, e)
		return false
	}
	var opts *dfc.ParquetReadOptions
	if o := getFromHandle[dfc.ParquetReadOptions](options); o != nil {
		opts = o.Clone()
	}
	e = getLibrary().run("session_context_register_parquet", func(ctx context.Context) error {
		return s.ctx.RegisterParquet(ctx, table, location, opts)
	})
	if e != nil {
		setErr(err, e)
		return false
	}
	return true
}

func registerArgs(session *C.DFSessionContext, name, url *C.char) (*sessionContext, string, string, error) {
	s, err := getSession(session)
	if err != nil {
		return nil, "", "", err
	}
	table, err := goString(name, "name")
	if err != nil {
		return nil, "", "", err
	}
	location, err := goString(url, "url")
	if err != nil {
		return nil, "", "", err
	}
	return s, table, location, nil
}
