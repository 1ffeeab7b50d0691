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

package dfc

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
)

const (
	DefaultCSVDelimiter             = ','
	DefaultCSVSchemaInferMaxRecords = 1000
	DefaultCSVFileExtension         = ".csv"
	DefaultParquetFileExtension     = ".parquet"
)

// PartitionColumn is one hive style partition column, derived from the
// partition schema of a read options value.
type PartitionColumn struct {
	Name string
	Type arrow.DataType
}

// partitioning holds the table partition columns of a listing source.
// The schema is the only stored form; the flat column list is always
// derived from it.
type partitioning struct {
	schema *arrow.Schema
}

// SetTablePartitionColumns replaces the partition columns. A nil schema
// clears them.
func (p *partitioning) SetTablePartitionColumns(schema *arrow.Schema) {
	p.schema = schema
}

// TablePartitionColumns returns the partition columns as a schema. It
// never returns nil.
func (p *partitioning) TablePartitionColumns() *arrow.Schema {
	if p.schema == nil {
		return arrow.NewSchema(nil, nil)
	}
	return p.schema
}

// PartitionColumns returns the name/type list handed to the engine.
func (p *partitioning) PartitionColumns() []PartitionColumn {
	if p.schema == nil {
		return nil
	}
	cols := make([]PartitionColumn, 0, p.schema.NumFields())
	for _, f := range p.schema.Fields() {
		cols = append(cols, PartitionColumn{Name: f.Name, Type: f.Type})
	}
	return cols
}

// CSVReadOptions configures how CSV files are registered.
type CSVReadOptions struct {
	partitioning

	HasHeader bool
	Delimiter byte
	// Schema, when set, is used instead of inferring one.
	Schema *arrow.Schema
	// SchemaInferMaxRecords is how many rows are sampled to infer a schema.
	SchemaInferMaxRecords int
	// FileExtension selects files when the source is a directory.
	FileExtension string
}

// NewCSVReadOptions returns CSVReadOptions with the engine defaults.
func NewCSVReadOptions() *CSVReadOptions {
	return &CSVReadOptions{
		HasHeader:             true,
		Delimiter:             DefaultCSVDelimiter,
		SchemaInferMaxRecords: DefaultCSVSchemaInferMaxRecords,
		FileExtension:         DefaultCSVFileExtension,
	}
}

// Clone returns a copy that shares no mutable state with o. Schemas are
// immutable and are shared.
func (o *CSVReadOptions) Clone() *CSVReadOptions {
	out := *o
	return &out
}

// ParquetReadOptions configures how Parquet files are registered.
type ParquetReadOptions struct {
	partitioning

	FileExtension string

	pruning *bool
}

// NewParquetReadOptions returns ParquetReadOptions with the engine
// defaults and pruning unset.
func NewParquetReadOptions() *ParquetReadOptions {
	return &ParquetReadOptions{FileExtension: DefaultParquetFileExtension}
}

func (o *ParquetReadOptions) Clone() *ParquetReadOptions {
	out := *o
	if o.pruning != nil {
		v := *o.pruning
		out.pruning = &v
	}
	return &out
}

func (o *ParquetReadOptions) SetPruning(enabled bool) {
	o.pruning = &enabled
}

// UnsetPruning returns pruning to the engine default.
func (o *ParquetReadOptions) UnsetPruning() {
	o.pruning = nil
}

// Pruning reports the configured pruning flag and whether it is set at
// all. An unset flag reports false.
func (o *ParquetReadOptions) Pruning() (enabled, ok bool) {
	if o.pruning == nil {
		return false, false
	}
	return *o.pruning, true
}

// ParquetWriterProperties configures Parquet output.
type ParquetWriterProperties struct {
	// MaxRowGroupSize is the maximum number of rows per row group. Zero
	// means the writer default.
	MaxRowGroupSize int64
}

// WriterProperties builds the Parquet writer properties, falling back to
// the library defaults for anything unset. A nil receiver is allowed.
func (p *ParquetWriterProperties) WriterProperties() *parquet.WriterProperties {
	opts := []parquet.WriterProperty{}
	if p != nil && p.MaxRowGroupSize > 0 {
		opts = append(opts, parquet.WithMaxRowGroupLength(p.MaxRowGroupSize))
	}
	return parquet.NewWriterProperties(opts...)
}
