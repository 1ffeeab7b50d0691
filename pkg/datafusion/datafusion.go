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

//go:build driverlib

// Command datafusion builds libdfc, a C shared library exposing the
// df_* API declared in datafusion.h:
//
//	go build -tags driverlib,duckdb_arrow -buildmode=c-shared -o libdfc.so ./pkg/datafusion
//
// All state shared between handles (configuration, logging, the engine,
// the worker pool running engine calls and the metrics registry) is
// created on first use and lives as long as the process.
package main

// #cgo CFLAGS: -DDF_EXPORTING
// #include "utils.h"
import "C"

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc/engine/duckdb"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/bridge"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/config"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/enginebase"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/metrics"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/objectstore"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
)

type library struct {
	cfg     config.Config
	logger  *slog.Logger
	logFile io.Closer
	metrics *metrics.Metrics
	bridge  *bridge.Bridge
	store   *objectstore.Store
	engine  *duckdb.Engine
	// alloc backs every buffer handed to C, so exported batches stay
	// valid after the Go handles are gone.
	alloc memory.Allocator

	// err is set when the engine could not be started.
	err error
}

var getLibrary = sync.OnceValue(openLibrary)

func openLibrary() *library {
	lib := &library{
		metrics: metrics.New(),
		alloc:   mallocator.NewMallocator(),
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Default()
	}
	lib.cfg = cfg

	var err error
	lib.logger, lib.logFile, err = newLogger(cfg.Log)
	if err != nil {
		lib.logger = enginebase.NewLogger(os.Stderr, slog.LevelWarn, cfg.Log.JSONLogs())
		lib.logger.Warn("falling back to stderr logging", "error", err)
	}
	if cfgErr != nil {
		lib.logger.Warn("invalid configuration, using defaults", "error", cfgErr)
	}

	if lib.bridge, err = bridge.New(cfg.Bridge.PoolSize, lib.logger); err != nil {
		lib.err = err
		lib.logger.Error("cannot start engine bridge", "error", err)
		return lib
	}

	if cfg.S3.Enabled() {
		lib.store, err = objectstore.New(objectstore.Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			CacheEntries:    cfg.S3.CacheEntries,
			Concurrency:     cfg.S3.Concurrency,
			StagingDir:      cfg.Engine.StagingDir,
		}, lib.logger)
		if err != nil {
			// s3:// URLs then fail with a configuration error
			lib.logger.Warn("object store disabled", "error", err)
			lib.store = nil
		}
	}

	lib.engine, err = duckdb.NewEngine(context.Background(), duckdb.Options{
		BatchSize:   cfg.Engine.BatchSize,
		Threads:     cfg.Engine.Threads,
		MemoryLimit: cfg.Engine.MemoryLimit,
		StagingDir:  cfg.Engine.StagingDir,
		Store:       lib.store,
		Logger:      lib.logger,
	}, lib.alloc)
	if err != nil {
		lib.err = err
		lib.logger.Error("cannot start engine", "error", err)
		return lib
	}
	lib.logger.Info("library loaded", "version", lib.engine.Info.String(),
		"pool_size", lib.bridge.Cap(), "s3", lib.store != nil)
	return lib
}

// newLogger honours the log settings. Without a level or a folder
// nothing is logged.
func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	if cfg.Level == "" && cfg.Dir == "" {
		return enginebase.NilLogger(), nil, nil
	}
	level := enginebase.ParseLevel(cfg.Level)
	if cfg.Dir == "" {
		return enginebase.NewLogger(os.Stderr, level, cfg.JSONLogs()), nil, nil
	}

	ext := ".log"
	if cfg.JSONLogs() {
		ext = ".jsonl"
	}
	w, err := enginebase.NewRotatingFileWriter(
		enginebase.WithFolderPath(cfg.Dir),
		enginebase.WithFilePrefix("dfc"),
		enginebase.WithFileExt(ext))
	if err != nil {
		return nil, nil, err
	}
	return enginebase.NewLogger(w, level, cfg.JSONLogs()), w, nil
}

// run executes task on the bridge and records it under op.
func (lib *library) run(op string, task func(ctx context.Context) error) error {
	start := time.Now()
	ctx := context.Background()

	var err error
	if lib.err != nil {
		err = lib.unavailable()
	} else {
		err = lib.bridge.Run(ctx, task)
	}
	lib.metrics.Observe(op, start, err)
	if err != nil {
		lib.logger.DebugContext(ctx, "operation failed", "op", op, "error", err)
	}
	return err
}

func main() {}
