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

// Package objectstore stages s3:// sources on local disk so the engine
// can read them, and uploads local files to s3:// destinations.
package objectstore

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const Scheme = "s3"

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	// CacheEntries bounds how many staged sources stay on disk.
	CacheEntries int
	// Concurrency bounds parallel downloads of one prefix.
	Concurrency int
	// StagingDir is the parent of the store's private staging folder.
	StagingDir string
}

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

type client interface {
	Download(ctx context.Context, bucket, key, filePath string) error
	Upload(ctx context.Context, bucket, key, filePath, contentType string) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// Store downloads objects into a staging folder and keeps the most
// recently used ones around in an LRU cache. Evicted entries are deleted
// from disk, so callers must copy what they need out of a staged path
// before the next Fetch.
type Store struct {
	client      client
	stagingDir  string
	concurrency int
	cache       gcache.Cache
	logger      *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, dfc.Errorf(dfc.ErrorConfiguration, "s3 endpoint is required")
	}
	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(mc, cfg, logger)
}

func NewWithClient(c client, cfg Config, logger *slog.Logger) (*Store, error) {
	if c == nil {
		return nil, dfc.Errorf(dfc.ErrorInternal, "object store client is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir, err := os.MkdirTemp(cfg.StagingDir, "dfc-s3-")
	if err != nil {
		return nil, dfc.Errorf(dfc.ErrorIO, "create staging folder: %s", err)
	}
	s := &Store{
		client:      c,
		stagingDir:  dir,
		concurrency: max(1, cfg.Concurrency),
		logger:      logger,
	}
	remove := func(key, value any) {
		p := value.(string)
		if err := os.RemoveAll(p); err != nil {
			s.logger.Warn("remove staged object", "url", key, "path", p, "error", err)
		}
	}
	s.cache = gcache.New(max(1, cfg.CacheEntries)).LRU().
		EvictedFunc(remove).
		PurgeVisitorFunc(remove).
		Build()
	return s, nil
}

// IsURL reports whether raw names an object in the store.
func IsURL(raw string) bool {
	return strings.HasPrefix(strings.ToLower(raw), Scheme+"://")
}

// ParseURL splits s3://bucket/key into its parts. The key may be empty
// or end in "/" to name a prefix.
func ParseURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", dfc.Errorf(dfc.ErrorObjectStore, "invalid object store URL %q: %s", raw, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", dfc.Errorf(dfc.ErrorObjectStore, "unsupported object store scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", dfc.Errorf(dfc.ErrorObjectStore, "object store URL %q has no bucket", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", "", dfc.Errorf(dfc.ErrorObjectStore, "invalid object key %q", key)
		}
	}
	return u.Host, key, nil
}

func isPrefix(key string) bool {
	return key == "" || strings.HasSuffix(key, "/")
}

// Fetch stages the object, or every object under the prefix whose name
// ends in ext, and returns the local file or folder.
func (s *Store) Fetch(ctx context.Context, raw, ext string) (string, error) {
	cacheKey := raw + "|" + ext
	if v, err := s.cache.Get(cacheKey); err == nil {
		local := v.(string)
		if _, statErr := os.Stat(local); statErr == nil {
			s.logger.DebugContext(ctx, "object store cache hit", "url", raw, "path", local)
			return local, nil
		}
		s.cache.Remove(cacheKey)
	}

	bucket, key, err := ParseURL(raw)
	if err != nil {
		return "", err
	}

	var local string
	if isPrefix(key) {
		local, err = s.fetchPrefix(ctx, bucket, key, ext)
	} else {
		local = filepath.Join(s.stagingDir, uuid.NewString()+path.Ext(key))
		err = s.client.Download(ctx, bucket, key, local)
		if err != nil {
			_ = os.Remove(local)
		}
	}
	if err != nil {
		return "", wrapErr(err, "fetch "+raw)
	}

	if err := s.cache.Set(cacheKey, local); err != nil {
		return "", dfc.Errorf(dfc.ErrorInternal, "cache staged object: %s", err)
	}
	s.logger.DebugContext(ctx, "staged object store source", "url", raw, "path", local)
	return local, nil
}

func (s *Store) fetchPrefix(ctx context.Context, bucket, prefix, ext string) (string, error) {
	objects, err := s.client.List(ctx, bucket, prefix)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.stagingDir, uuid.NewString())
	matched := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, obj := range objects {
		if ext != "" && !strings.HasSuffix(obj.Key, ext) {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		matched++
		// keep the relative layout so hive partition folders survive
		target := filepath.Join(dir, filepath.FromSlash(rel))
		key := obj.Key
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return s.client.Download(gctx, bucket, key, target)
		})
	}
	if err := g.Wait(); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	if matched == 0 {
		return "", dfc.Errorf(dfc.ErrorObjectStore, "no objects matching *%s under s3://%s/%s", ext, bucket, prefix)
	}
	return dir, nil
}

// Upload copies a local file to the object named by raw.
func (s *Store) Upload(ctx context.Context, localPath, raw, contentType string) error {
	bucket, key, err := ParseURL(raw)
	if err != nil {
		return err
	}
	if isPrefix(key) {
		return dfc.Errorf(dfc.ErrorObjectStore, "object store URL %q names a prefix, not an object", raw)
	}
	if err := s.client.Upload(ctx, bucket, key, localPath, contentType); err != nil {
		return wrapErr(err, "upload "+raw)
	}
	// a cached copy of the old object is stale now
	s.cache.Remove(raw + "|" + path.Ext(key))
	return nil
}

// TempFile returns a fresh path inside the staging folder.
func (s *Store) TempFile(ext string) string {
	return filepath.Join(s.stagingDir, uuid.NewString()+ext)
}

// Close deletes everything staged.
func (s *Store) Close() error {
	s.cache.Purge()
	return os.RemoveAll(s.stagingDir)
}

func wrapErr(err error, op string) error {
	var dfcErr dfc.Error
	if errors.As(err, &dfcErr) {
		return dfcErr
	}
	if errors.Is(err, context.Canceled) {
		return dfc.Errorf(dfc.ErrorExecution, "%s: cancelled", op)
	}
	return dfc.Errorf(dfc.ErrorObjectStore, "%s: %s", op, err)
}
