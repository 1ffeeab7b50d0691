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
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	engineNamespace    = "apache.arrow.datafusion"
	otelTracesExporter = "OTEL_TRACES_EXPORTER"
)

type traceExporterType int

const (
	TraceExporterNone traceExporterType = iota
	TraceExporterOtlp
	TraceExporterConsole
	TraceExporterFile
)

var traceExporterNames = map[string]traceExporterType{
	"none":    TraceExporterNone,
	"otlp":    TraceExporterOtlp,
	"console": TraceExporterConsole,
	"dfcfile": TraceExporterFile,
}

func (te traceExporterType) String() string {
	return [...]string{"none", "otlp", "console", "dfcfile"}[te]
}

var getExporterName = sync.OnceValue(func() string {
	return os.Getenv(otelTracesExporter)
})

// Tracing owns the tracer of an engine and the provider behind it.
type Tracing struct {
	Tracer trace.Tracer

	shutdown func(context.Context) error
}

// InitTracing configures the tracer from OTEL_TRACES_EXPORTER. An empty
// value uses the global tracer provider, so a host process that already
// set one up sees our spans.
func (t *Tracing) InitTracing(ctx context.Context, helper *ErrorHelper, engineName, version string) error {
	name := engineNamespace + "." + engineName

	exporterName := getExporterName()
	if exporterName == "" {
		t.Tracer = otel.Tracer(name)
		return nil
	}

	exporterType, ok := traceExporterNames[strings.ToLower(exporterName)]
	if !ok {
		return helper.Errorf(dfc.ErrorConfiguration, "unknown %s option '%s'", otelTracesExporter, exporterName)
	}

	var exporters []sdktrace.SpanExporter
	switch exporterType {
	case TraceExporterNone:
		t.Tracer = otel.Tracer(name)
		return nil
	case TraceExporterConsole:
		exporter, err := stdouttrace.New()
		if err != nil {
			return helper.Wrap(dfc.ErrorConfiguration, err, "console trace exporter")
		}
		exporters = append(exporters, exporter)
	case TraceExporterOtlp:
		otlp, err := newOtlpTraceExporters(ctx)
		if err != nil {
			return helper.Wrap(dfc.ErrorConfiguration, err, "otlp trace exporter")
		}
		exporters = append(exporters, otlp...)
	case TraceExporterFile:
		exporter, err := newFileTraceExporter(engineName)
		if err != nil {
			return helper.IOError(err, "file trace exporter")
		}
		exporters = append(exporters, exporter)
	}

	provider, err := newTracerProvider(exporters...)
	if err != nil {
		return helper.Wrap(dfc.ErrorConfiguration, err, "tracer provider")
	}
	t.shutdown = provider.Shutdown
	t.Tracer = provider.Tracer(
		name,
		trace.WithInstrumentationVersion(version),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

// StartSpan starts a span on the engine tracer, falling back to a no-op
// tracer when InitTracing was never called.
func (t *Tracing) StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := t.Tracer
	if tracer == nil {
		tracer = otel.Tracer(engineNamespace)
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		var dfcErr dfc.Error
		if errors.As(err, &dfcErr) {
			span.SetAttributes(attribute.String("dfc.error.code", dfcErr.Code.String()))
		}
	}
	span.End()
}

// Shutdown flushes and stops the tracer provider, if this engine owns one.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	err := t.shutdown(ctx)
	t.shutdown = nil
	return err
}

func newOtlpTraceExporters(ctx context.Context) ([]sdktrace.SpanExporter, error) {
	// endpoints and headers come from the standard OTEL_EXPORTER_OTLP_*
	// environment variables
	grpcExporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
		}),
	)
	if err != nil {
		return nil, err
	}
	httpExporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
		}),
	)
	if err != nil {
		return nil, err
	}
	return []sdktrace.SpanExporter{grpcExporter, httpExporter}, nil
}

func newFileTraceExporter(engineName string) (*stdouttrace.Exporter, error) {
	fileWriter, err := NewRotatingFileWriter(
		WithFilePrefix(strings.ToLower(engineNamespace + "." + engineName)),
	)
	if err != nil {
		return nil, err
	}
	return stdouttrace.New(stdouttrace.WithWriter(fileWriter))
}

func newTracerProvider(exporters ...sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	own := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(engineNamespace),
	)
	tracerResource, err := resource.Merge(resource.Default(), own)
	if err != nil {
		if !errors.Is(err, resource.ErrSchemaURLConflict) {
			return nil, err
		}
		tracerResource = own
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(tracerResource)}
	for _, exporter := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}
