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

// Package dfc defines the Go side of a DataFusion compatible C API.
//
// A SessionContext owns one query engine context. Tables are registered
// into it from in-memory Arrow record batches, CSV files or Parquet
// files, and SQL text run against it produces DataFrames. A DataFrame
// is lazy: every call to Collect, Show or WriteParquet runs the query
// again from scratch.
//
// The C shared library in pkg/datafusion wraps these interfaces in
// opaque handles, and exchanges columnar data through the Arrow C Data
// Interface.
//
// Implementations are expected to allow serialized access from
// multiple goroutines, but not necessarily concurrent access.
package dfc

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
)

//go:generate stringer -type ErrorCode -linecomment

// Error is the error type returned by every operation in this module.
//
// The C API turns it into a DFError record carrying Code and the
// string form of the error.
type Error struct {
	// Msg is a human readable error message
	Msg string
	// Code is the category of the failure
	Code ErrorCode
	// Details carries any additional context attached by the engine,
	// such as the statement that failed.
	Details map[string]string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Errorf is a shorthand for constructing an Error.
func Errorf(code ErrorCode, format string, args ...any) Error {
	return Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrorCode is the category of a failure. The numeric values are part
// of the C ABI (DFErrorCode), so new codes are only ever appended.
type ErrorCode uint8

const (
	// An error from the Arrow columnar format or its compute kernels
	ErrorArrow ErrorCode = iota // Arrow error
	// An error reading or writing Parquet
	ErrorParquet // Parquet error
	// An error reading Avro. Reserved, no source produces it yet.
	ErrorAvro // Avro error
	// An error talking to an object store
	ErrorObjectStore // Object Store error
	// An error from the file system
	ErrorIO // IO error
	// The SQL text could not be parsed
	ErrorSQL // SQL error
	// The operation is not implemented or supported
	ErrorNotImplemented // This feature is not implemented
	// An invariant was violated, most likely a bug
	ErrorInternal // Internal error
	// The query could not be planned, for instance because a table or
	// column does not exist
	ErrorPlan // Error during planning
	// A schema was invalid or two schemas did not match
	ErrorSchema // Schema error
	// The query failed while running
	ErrorExecution // Execution error
	// A memory or concurrency limit was hit
	ErrorResourcesExhausted // Resources exhausted
	// An error that came from outside the engine, including invalid
	// UTF-8 input from the caller
	ErrorExternal // External error
	// Reserved for compatibility with the C enumeration
	ErrorJIT // JIT error
	// An error with an attached description of what was being done
	ErrorContext // Context error
	// Reserved for compatibility with the C enumeration
	ErrorSubstrait // Substrait error
	// The engine rejected a setting
	ErrorConfiguration // Invalid or Unsupported Configuration
)

// Engine creates independent sessions.
type Engine interface {
	NewSessionContext(ctx context.Context) (SessionContext, error)
}

// SessionContext is one engine context with its own catalog of tables.
//
// Close releases the context. DataFrames created from it stay usable
// after Close; they hold their own reference to the engine state.
type SessionContext interface {
	// SQL validates the query and returns a DataFrame for it. The
	// DataFrame sees the catalog and data as they are at this call.
	// Statements that produce no rows (DDL, INSERT, ...) are run
	// immediately and yield an empty DataFrame.
	SQL(ctx context.Context, query string) (DataFrame, error)
	// Deregister removes a table or view. It fails with ErrorPlan if
	// the name is not registered.
	Deregister(ctx context.Context, name string) error
	// RegisterRecordBatches creates an in-memory table from batches,
	// all of which must have the given schema. The batches are not
	// retained or released.
	RegisterRecordBatches(ctx context.Context, name string, schema *arrow.Schema, batches []arrow.Record) error
	// RegisterCSV registers a table backed by CSV files. opts may be nil.
	RegisterCSV(ctx context.Context, name, url string, opts *CSVReadOptions) error
	// RegisterParquet registers a table backed by Parquet files. opts may
	// be nil.
	RegisterParquet(ctx context.Context, name, url string, opts *ParquetReadOptions) error

	Close() error
}

// DataFrame is a lazily executed query result. Every run reads the same
// snapshot, taken when the DataFrame was created.
type DataFrame interface {
	// Collect runs the query and returns its schema and record batches.
	// The caller owns the returned records and must release them.
	Collect(ctx context.Context) (*arrow.Schema, []arrow.Record, error)
	// Show runs the query and renders the result as a table to w.
	Show(ctx context.Context, w io.Writer) error
	// WriteParquet runs the query and writes the result as a single
	// Parquet file. props may be nil.
	WriteParquet(ctx context.Context, path string, props *ParquetWriterProperties) error

	Close() error
}
