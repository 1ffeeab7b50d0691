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

// Package metrics counts boundary operations with Prometheus collectors
// on a private registry.
package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "dfc"

const (
	statusOK    = "ok"
	statusError = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	errors          *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	exportedBatches prometheus.Counter
	liveHandles     *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Boundary operations by name and outcome.",
		}, []string{"op", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed boundary operations by error category.",
		}, []string{"code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of boundary operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"op"}),
		exportedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_batches_total",
			Help:      "Record batches exported through the C data interface.",
		}),
		liveHandles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_handles",
			Help:      "Handles created and not yet freed, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.operations, m.errors, m.duration, m.exportedBatches, m.liveHandles)
	return m
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		m.operations.WithLabelValues(op, statusOK).Inc()
		return
	}
	m.operations.WithLabelValues(op, statusError).Inc()

	code := dfc.ErrorExternal
	var dfcErr dfc.Error
	if errors.As(err, &dfcErr) {
		code = dfcErr.Code
	}
	m.errors.WithLabelValues(code.String()).Inc()
}

func (m *Metrics) AddExportedBatches(n int) {
	m.exportedBatches.Add(float64(n))
}

func (m *Metrics) HandleCreated(kind string) { m.liveHandles.WithLabelValues(kind).Inc() }
func (m *Metrics) HandleFreed(kind string)   { m.liveHandles.WithLabelValues(kind).Dec() }

// Gather renders every collector in the Prometheus text format.
func (m *Metrics) Gather() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&sb, mf); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
