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
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/objectstore"
)

const fileScheme = "file://"

// source is the resolved form of a registration URL.
type source struct {
	// pattern is a file path or glob handed to the reader function.
	pattern string
	// staged sources live in the object store cache and must be copied
	// into the database instead of being referenced by a view.
	staged bool
}

// resolveSource turns a registration URL into something the engine can
// read. Directories select every file with the given extension below
// them, partition folders included.
func (s *sessionContext) resolveSource(ctx context.Context, rawURL, ext string) (source, error) {
	if objectstore.IsURL(rawURL) {
		if s.eng.opts.Store == nil {
			return source{}, s.eng.ErrorHelper.Errorf(dfc.ErrorConfiguration,
				"cannot read %s: no object store is configured", rawURL)
		}
		local, err := s.eng.opts.Store.Fetch(ctx, rawURL, ext)
		if err != nil {
			return source{}, err
		}
		src, err := s.localSource(local, ext)
		src.staged = true
		return src, err
	}

	path := strings.TrimPrefix(rawURL, fileScheme)
	if scheme, _, found := strings.Cut(path, "://"); found {
		return source{}, s.eng.ErrorHelper.Errorf(dfc.ErrorNotImplemented,
			"unsupported URL scheme %q", scheme)
	}
	return s.localSource(path, ext)
}

func (s *sessionContext) localSource(path, ext string) (source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return source{}, s.eng.ErrorHelper.IOError(err, "cannot read "+path)
	}
	if !info.IsDir() {
		return source{pattern: path}, nil
	}
	return source{pattern: filepath.Join(path, "**", "*"+ext)}, nil
}

// targetPath resolves a write destination. For object store targets the
// returned path is a staging file that upload sends on.
func (df *dataFrame) targetPath(rawURL string) (path string, upload func(context.Context) error, err error) {
	if objectstore.IsURL(rawURL) {
		store := df.eng.opts.Store
		if store == nil {
			return "", nil, df.eng.ErrorHelper.Errorf(dfc.ErrorConfiguration,
				"cannot write %s: no object store is configured", rawURL)
		}
		if _, _, err := objectstore.ParseURL(rawURL); err != nil {
			return "", nil, err
		}
		path = store.TempFile(".parquet")
		upload = func(ctx context.Context) error {
			defer os.Remove(path)
			return store.Upload(ctx, path, rawURL, "application/vnd.apache.parquet")
		}
		return path, upload, nil
	}

	path = strings.TrimPrefix(rawURL, fileScheme)
	if scheme, _, found := strings.Cut(path, "://"); found {
		return "", nil, df.eng.ErrorHelper.Errorf(dfc.ErrorNotImplemented,
			"unsupported URL scheme %q", scheme)
	}
	return path, nil, nil
}
