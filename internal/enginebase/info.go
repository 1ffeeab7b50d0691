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

package enginebase

import (
	"runtime/debug"
	"strings"
)

const unknownVersion = "unknown"

var (
	infoModuleVersion = unknownVersion
	infoArrowVersion  = unknownVersion
	infoEngineVersion = unknownVersion
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Version != "" {
		infoModuleVersion = info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.modified" && s.Value == "true" {
			infoModuleVersion += "-dev"
		}
	}
	for _, dep := range info.Deps {
		switch {
		case strings.HasPrefix(dep.Path, "github.com/apache/arrow-go/"):
			infoArrowVersion = dep.Version
		case strings.HasPrefix(dep.Path, "github.com/marcboeker/go-duckdb/"):
			infoEngineVersion = dep.Version
		}
	}
}

// EngineInfo describes an engine implementation and the versions it was
// built with.
type EngineInfo struct {
	Name          string
	Version       string
	ArrowVersion  string
	VendorName    string
	VendorVersion string
}

// NewEngineInfo fills the version fields from the build information.
// VendorVersion starts as the version of the Go binding for the vendor
// library and may be replaced once the engine can report its own.
func NewEngineInfo(name, vendorName string) *EngineInfo {
	return &EngineInfo{
		Name:          name,
		Version:       infoModuleVersion,
		ArrowVersion:  infoArrowVersion,
		VendorName:    vendorName,
		VendorVersion: infoEngineVersion,
	}
}

// String is the version line reported through df_version.
func (info *EngineInfo) String() string {
	return "dfc " + info.Version + " (arrow-go " + info.ArrowVersion + ", " +
		info.VendorName + " " + info.VendorVersion + ")"
}
