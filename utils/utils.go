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

// Package utils holds Arrow helpers shared by the engine and the C
// library.
package utils

import "github.com/apache/arrow-go/v18/arrow"

// StripSchemaMetadata returns a copy of schema with the schema level and
// every field level metadata removed, including nested fields. Types
// that cannot be rebuilt from their children (maps lose custom child
// names) are rebuilt from their key and item types.
func StripSchemaMetadata(schema *arrow.Schema) *arrow.Schema {
	fields := make([]arrow.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		fields[i] = stripField(f)
	}
	return arrow.NewSchema(fields, nil)
}

func stripField(f arrow.Field) arrow.Field {
	return arrow.Field{Name: f.Name, Type: stripType(f.Type), Nullable: f.Nullable}
}

func stripType(dt arrow.DataType) arrow.DataType {
	nested, ok := dt.(arrow.NestedType)
	if !ok {
		return dt
	}
	children := make([]arrow.Field, len(nested.Fields()))
	for i, f := range nested.Fields() {
		children[i] = stripField(f)
	}

	switch t := dt.(type) {
	case *arrow.StructType:
		return arrow.StructOf(children...)
	case *arrow.ListType:
		return arrow.ListOfField(children[0])
	case *arrow.LargeListType:
		return arrow.LargeListOfField(children[0])
	case *arrow.FixedSizeListType:
		return arrow.FixedSizeListOfField(t.Len(), children[0])
	case *arrow.MapType:
		entries := children[0].Type.(*arrow.StructType)
		m := arrow.MapOf(entries.Field(0).Type, entries.Field(1).Type)
		m.KeysSorted = t.KeysSorted
		return m
	case *arrow.SparseUnionType:
		return arrow.SparseUnionOf(children, t.TypeCodes())
	case *arrow.DenseUnionType:
		return arrow.DenseUnionOf(children, t.TypeCodes())
	}
	return dt
}

// FieldNames lists the top level field names of schema.
func FieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}
	return names
}
