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

//go:build !duckdb_arrow

package duckdb_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/engine/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineRequiresArrow(t *testing.T) {
	eng, err := duckdb.NewEngine(context.Background(), duckdb.Options{StagingDir: t.TempDir()}, nil)
	assert.Nil(t, eng)

	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorNotImplemented, dfcErr.Code)
	assert.Contains(t, dfcErr.Msg, "duckdb_arrow")
}
