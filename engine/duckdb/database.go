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
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"

	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

// database is one in-memory engine instance. A session and every
// DataFrame created from it hold a reference; the instance and its
// spill folder go away with the last one.
type database struct {
	connector  *goduckdb.Connector
	sql        *sql.DB
	stagingDir string
	refs       atomic.Int32
}

func dsn(threads int, memoryLimit, tempDir string) string {
	params := url.Values{}
	if tempDir != "" {
		params.Set("temp_directory", tempDir)
	}
	if threads > 0 {
		params.Set("threads", strconv.Itoa(threads))
	}
	if memoryLimit != "" {
		params.Set("memory_limit", memoryLimit)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func openDatabase(ctx context.Context, opts *Options) (*database, error) {
	stagingDir, err := os.MkdirTemp(opts.StagingDir, "dfc-session-")
	if err != nil {
		return nil, err
	}

	connector, err := goduckdb.NewConnector(dsn(opts.Threads, opts.MemoryLimit, stagingDir), nil)
	if err != nil {
		_ = os.RemoveAll(stagingDir)
		return nil, err
	}

	db := &database{
		connector:  connector,
		sql:        sql.OpenDB(connector),
		stagingDir: stagingDir,
	}
	db.refs.Store(1)

	if err := db.sql.PingContext(ctx); err != nil {
		return nil, errors.Join(err, db.close())
	}
	return db, nil
}

func (db *database) retain() {
	db.refs.Add(1)
}

func (db *database) release() error {
	if db.refs.Add(-1) > 0 {
		return nil
	}
	return db.close()
}

func (db *database) close() error {
	return errors.Join(
		db.sql.Close(),
		db.connector.Close(),
		os.RemoveAll(db.stagingDir),
	)
}
