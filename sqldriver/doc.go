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

// Package sqldriver exposes a dfc.Engine through the standard
// database/sql package, described here: https://go.dev/src/database/sql/doc.txt
//
// Every database/sql connection is its own session context with its own
// catalog, so tables created on one pooled connection are not visible
// on another. Use sql.DB.Conn, or SetMaxOpenConns(1), when statements
// depend on each other.
//
// The data source name is a semicolon separated list of key=value pairs
// registering sources on every new connection:
//
//	csv.trips=/data/trips.csv;parquet.zones=/data/zones
//
// An empty name registers nothing.
//
// Query parameters and transactions are not supported.
package sqldriver
