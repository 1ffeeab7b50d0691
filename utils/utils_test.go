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

package utils_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc/utils"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripSchemaMetadata(t *testing.T) {
	md := arrow.NewMetadata([]string{"k"}, []string{"v"})
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: true, Metadata: md},
		{Name: "s", Type: arrow.StructOf(
			arrow.Field{Name: "inner", Type: arrow.BinaryTypes.String, Metadata: md},
		)},
		{Name: "l", Type: arrow.ListOfField(arrow.Field{Name: "item", Type: arrow.PrimitiveTypes.Int32, Nullable: true, Metadata: md})},
		{Name: "m", Type: arrow.MapOf(arrow.BinaryTypes.String, arrow.PrimitiveTypes.Float64)},
	}, &md)

	out := utils.StripSchemaMetadata(schema)
	assert.False(t, out.HasMetadata())
	require.Equal(t, 4, out.NumFields())
	for _, f := range out.Fields() {
		assert.False(t, f.HasMetadata(), f.Name)
	}
	assert.True(t, out.Field(0).Nullable)

	inner := out.Field(1).Type.(*arrow.StructType).Field(0)
	assert.False(t, inner.HasMetadata())
	item := out.Field(2).Type.(*arrow.ListType).ElemField()
	assert.False(t, item.HasMetadata())
	assert.True(t, arrow.TypeEqual(schema.Field(3).Type, out.Field(3).Type))

	assert.Equal(t, []string{"a", "s", "l", "m"}, utils.FieldNames(out))
}

func TestFormatRecords(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 22}, nil)
	bldr.Field(1).(*array.StringBuilder).AppendValues([]string{"alice", ""}, []bool{true, false})
	rec := bldr.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, utils.FormatRecords(&buf, schema, []arrow.Record{rec}))
	assert.Equal(t,
		"+----+-------+\n"+
			"| id | name  |\n"+
			"+----+-------+\n"+
			"| 1  | alice |\n"+
			"| 22 |       |\n"+
			"+----+-------+\n",
		buf.String())
}

func TestFormatRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Int32}}, nil)
	require.NoError(t, utils.FormatRecords(&buf, schema, nil))
	assert.Equal(t, "+---+\n| x |\n+---+\n+---+\n", buf.String())

	buf.Reset()
	require.NoError(t, utils.FormatRecords(&buf, arrow.NewSchema(nil, nil), nil))
	assert.Equal(t, "++\n++\n", buf.String())
}

func TestFormatRecordsEscapesLineBreaks(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.StringBuilder).Append("a\nb")
	rec := bldr.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	require.NoError(t, utils.FormatRecords(&buf, schema, []arrow.Record{rec}))
	assert.Equal(t, "+------+\n| s    |\n+------+\n| a\\nb |\n+------+\n", buf.String())
}
