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

package duckdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func quoteStringList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteString(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// duckdbType renders the DuckDB column type for an Arrow type. Only the
// types accepted for CSV schemas and partition columns are supported.
func duckdbType(dt arrow.DataType) (string, error) {
	switch dt := dt.(type) {
	case *arrow.BooleanType:
		return "BOOLEAN", nil
	case *arrow.Int8Type:
		return "TINYINT", nil
	case *arrow.Int16Type:
		return "SMALLINT", nil
	case *arrow.Int32Type:
		return "INTEGER", nil
	case *arrow.Int64Type:
		return "BIGINT", nil
	case *arrow.Uint8Type:
		return "UTINYINT", nil
	case *arrow.Uint16Type:
		return "USMALLINT", nil
	case *arrow.Uint32Type:
		return "UINTEGER", nil
	case *arrow.Uint64Type:
		return "UBIGINT", nil
	case *arrow.Float16Type, *arrow.Float32Type:
		return "FLOAT", nil
	case *arrow.Float64Type:
		return "DOUBLE", nil
	case *arrow.StringType, *arrow.LargeStringType, *arrow.StringViewType:
		return "VARCHAR", nil
	case *arrow.BinaryType, *arrow.LargeBinaryType, *arrow.BinaryViewType, *arrow.FixedSizeBinaryType:
		return "BLOB", nil
	case *arrow.Date32Type, *arrow.Date64Type:
		return "DATE", nil
	case *arrow.Time32Type, *arrow.Time64Type:
		return "TIME", nil
	case *arrow.TimestampType:
		if dt.TimeZone != "" {
			return "TIMESTAMPTZ", nil
		}
		switch dt.Unit {
		case arrow.Second:
			return "TIMESTAMP_S", nil
		case arrow.Millisecond:
			return "TIMESTAMP_MS", nil
		case arrow.Nanosecond:
			return "TIMESTAMP_NS", nil
		}
		return "TIMESTAMP", nil
	case *arrow.Decimal128Type:
		return "DECIMAL(" + strconv.Itoa(int(dt.Precision)) + "," + strconv.Itoa(int(dt.Scale)) + ")", nil
	case *arrow.DictionaryType:
		return duckdbType(dt.ValueType)
	}
	return "", fmt.Errorf("unsupported column type %s", dt)
}

// structLiteral renders fields as a DuckDB struct literal mapping column
// names to type names, as taken by read_csv(columns=...) and the
// hive_types option.
func structLiteral(fields []arrow.Field) (string, error) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		typ, err := duckdbType(f.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", f.Name, err)
		}
		parts[i] = quoteString(f.Name) + ": " + quoteString(typ)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

type tableFunction struct {
	name string
	args []string
}

func (t *tableFunction) arg(name, value string) {
	t.args = append(t.args, name+"="+value)
}

func (t *tableFunction) String() string {
	return t.name + "(" + strings.Join(t.args, ", ") + ")"
}

func boolLiteral(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// tempView names a connection-local view.
type tempView string

func (v tempView) String() string {
	return "temp.main." + quoteIdent(string(v))
}

func createViewSQL(name string, source fmt.Stringer) string {
	return "CREATE VIEW " + quoteIdent(name) + " AS SELECT * FROM " + source.String()
}

func createTableSQL(name string, source fmt.Stringer) string {
	return "CREATE TABLE " + quoteIdent(name) + " AS SELECT * FROM " + source.String()
}

func dropTempViewSQL(v tempView) string {
	return "DROP VIEW IF EXISTS " + v.String()
}

func dropSQL(name string, view bool) string {
	if view {
		return "DROP VIEW " + quoteIdent(name)
	}
	return "DROP TABLE " + quoteIdent(name)
}
