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

package enginebase_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFileWriterRotates(t *testing.T) {
	dir := t.TempDir()
	fw, err := enginebase.NewRotatingFileWriter(
		enginebase.WithFolderPath(dir),
		enginebase.WithFileSizeMaxKb(1),
		enginebase.WithFileCountMax(3),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, fw.Clear()) }()

	const value = "my string\n"
	for range 1000 {
		n, err := fw.Write([]byte(value))
		require.NoError(t, err)
		require.Equal(t, len(value), n)
	}
	require.NoError(t, fw.Close())

	files, err := filepath.Glob(filepath.Join(dir, "dfc-*.jsonl"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(files), 3)
	assert.NotEmpty(t, files)
}

func TestRotatingFileWriterReusesFile(t *testing.T) {
	dir := t.TempDir()
	opts := []enginebase.RotatingFileOption{
		enginebase.WithFolderPath(dir),
		enginebase.WithFilePrefix("dfc.test"),
		enginebase.WithFileExt("log"),
	}

	fw1, err := enginebase.NewRotatingFileWriter(opts...)
	require.NoError(t, err)
	_, err = fw1.Write([]byte("first\n"))
	require.NoError(t, err)
	info1, err := fw1.Stat()
	require.NoError(t, err)
	require.NoError(t, fw1.Close())

	fw2, err := enginebase.NewRotatingFileWriter(opts...)
	require.NoError(t, err)
	defer func() { require.NoError(t, fw2.Clear()) }()
	_, err = fw2.Write([]byte("second\n"))
	require.NoError(t, err)
	info2, err := fw2.Stat()
	require.NoError(t, err)

	assert.Equal(t, info1.Name(), info2.Name())
	assert.Equal(t, ".log", filepath.Ext(info2.Name()))

	data, err := os.ReadFile(filepath.Join(dir, info2.Name()))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRotatingFileWriterStatBeforeWrite(t *testing.T) {
	fw, err := enginebase.NewRotatingFileWriter(enginebase.WithFolderPath(t.TempDir()))
	require.NoError(t, err)
	_, err = fw.Stat()
	assert.Error(t, err)
	assert.NoError(t, fw.Close())
}
