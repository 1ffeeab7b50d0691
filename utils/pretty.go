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

package utils

import (
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// emptyTable is what a result without columns renders as.
const emptyTable = "++\n++\n"

var cellEscaper = strings.NewReplacer("\n", "\\n", "\r", "\\r")

// FormatRecords writes the records as a bordered text table:
//
//	+----+-------+
//	| id | name  |
//	+----+-------+
//	| 1  | alice |
//	+----+-------+
//
// Cells are left aligned and nulls render as empty cells.
func FormatRecords(w io.Writer, schema *arrow.Schema, records []arrow.Record) error {
	ncols := schema.NumFields()
	if ncols == 0 {
		_, err := io.WriteString(w, emptyTable)
		return err
	}

	tw := table.NewWriter()
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, ncols)
	configs := make([]table.ColumnConfig, ncols)
	for i, f := range schema.Fields() {
		header[i] = f.Name
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, rec := range records {
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make(table.Row, ncols)
			for c := 0; c < ncols; c++ {
				row[c] = cellString(rec.Column(c), r)
			}
			tw.AppendRow(row)
		}
	}

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

func cellString(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return ""
	}
	// keep each row on one line
	return cellEscaper.Replace(arr.ValueStr(i))
}
