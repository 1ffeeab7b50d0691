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

// Package enginebase holds the pieces every engine implementation in
// this module shares: the allocator, error construction, logging and
// tracing.
package enginebase

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// EngineImplBase is meant to be embedded in an engine implementation.
type EngineImplBase struct {
	Tracing

	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	Info        *EngineInfo
	Logger      *slog.Logger
}

// NewEngineImplBase instantiates EngineImplBase.
//
//   - info carries the engine name used in error messages and spans.
//   - alloc is the allocator for every Arrow buffer the engine creates;
//     nil means memory.DefaultAllocator.
func NewEngineImplBase(ctx context.Context, info *EngineInfo, alloc memory.Allocator) (EngineImplBase, error) {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	base := EngineImplBase{
		Alloc:       alloc,
		ErrorHelper: ErrorHelper{EngineName: info.Name},
		Info:        info,
		Logger:      NilLogger(),
	}
	err := base.InitTracing(ctx, &base.ErrorHelper, info.Name, info.Version)
	return base, err
}

// SetLogger replaces the logger; nil restores the discarding logger.
func (base *EngineImplBase) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = NilLogger()
	}
	base.Logger = logger
}

func (base *EngineImplBase) Close(ctx context.Context) error {
	return base.Shutdown(ctx)
}
