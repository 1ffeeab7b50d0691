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

package dfc_test

import (
	"errors"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReadOptionsDefaults(t *testing.T) {
	o := dfc.NewCSVReadOptions()
	assert.True(t, o.HasHeader)
	assert.Equal(t, byte(','), o.Delimiter)
	assert.Nil(t, o.Schema)
	assert.Equal(t, 1000, o.SchemaInferMaxRecords)
	assert.Equal(t, ".csv", o.FileExtension)
	assert.Zero(t, o.TablePartitionColumns().NumFields())
	assert.Empty(t, o.PartitionColumns())
}

func TestCSVReadOptionsClone(t *testing.T) {
	o := dfc.NewCSVReadOptions()
	o.Delimiter = '|'
	o.SetTablePartitionColumns(arrow.NewSchema([]arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	}, nil))

	c := o.Clone()
	c.Delimiter = ';'
	c.HasHeader = false
	c.SetTablePartitionColumns(nil)

	assert.Equal(t, byte('|'), o.Delimiter)
	assert.True(t, o.HasHeader)
	assert.Equal(t, 1, o.TablePartitionColumns().NumFields())
	assert.Zero(t, c.TablePartitionColumns().NumFields())
}

func TestPartitionColumns(t *testing.T) {
	o := dfc.NewParquetReadOptions()
	o.SetTablePartitionColumns(arrow.NewSchema([]arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int32},
		{Name: "region", Type: arrow.BinaryTypes.String},
	}, nil))

	cols := o.PartitionColumns()
	require.Len(t, cols, 2)
	assert.Equal(t, "year", cols[0].Name)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int32, cols[0].Type))
	assert.Equal(t, "region", cols[1].Name)
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, cols[1].Type))
}

func TestParquetPruning(t *testing.T) {
	o := dfc.NewParquetReadOptions()
	assert.Equal(t, ".parquet", o.FileExtension)

	enabled, ok := o.Pruning()
	assert.False(t, enabled)
	assert.False(t, ok)

	o.SetPruning(true)
	c := o.Clone()
	o.SetPruning(false)

	enabled, ok = o.Pruning()
	assert.False(t, enabled)
	assert.True(t, ok)

	enabled, ok = c.Pruning()
	assert.True(t, enabled)
	assert.True(t, ok)

	c.UnsetPruning()
	_, ok = c.Pruning()
	assert.False(t, ok)
	_, ok = o.Pruning()
	assert.True(t, ok)
}

func TestWriterProperties(t *testing.T) {
	var nilProps *dfc.ParquetWriterProperties
	assert.Equal(t, parquet.DefaultMaxRowGroupLen, nilProps.WriterProperties().MaxRowGroupLength())

	p := &dfc.ParquetWriterProperties{}
	assert.Equal(t, parquet.DefaultMaxRowGroupLen, p.WriterProperties().MaxRowGroupLength())

	p.MaxRowGroupSize = 4
	assert.EqualValues(t, 4, p.WriterProperties().MaxRowGroupLength())
}

func TestError(t *testing.T) {
	err := dfc.Errorf(dfc.ErrorPlan, "table %q not found", "t")
	assert.Equal(t, `Error during planning: table "t" not found`, err.Error())

	var wrapped error = err
	var de dfc.Error
	require.True(t, errors.As(wrapped, &de))
	assert.Equal(t, dfc.ErrorPlan, de.Code)

	assert.Equal(t, "Invalid or Unsupported Configuration", dfc.ErrorConfiguration.String())
	assert.Equal(t, "ErrorCode(17)", dfc.ErrorCode(17).String())
}
