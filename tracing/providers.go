// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace/noop"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func (t *Tracer) initializeProvider(ctx context.Context) error {
	if t.customTracerProvider {
		t.logger.Debug("Using custom tracer provider")
		t.setGlobal()

		return nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch t.provider {
	case NoopProvider:
		t.tracerProvider = noop.NewTracerProvider()
		return nil
	case StdoutProvider:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(t.output), stdouttrace.WithPrettyPrint())
	case OTLPProvider:
		exporter, err = t.newOTLPExporter(ctx)
	case OTLPHTTPProvider:
		exporter, err = t.newOTLPHTTPExporter(ctx)
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
	)
	t.sdkProvider = tp
	t.tracerProvider = tp
	t.setGlobal()

	t.logger.Info("Tracing initialized",
		"provider", t.provider,
		"endpoint", t.otlpEndpoint,
		"sample_rate", t.sampleRate,
	)

	return nil
}

func (t *Tracer) setGlobal() {
	if !t.registerGlobal {
		return
	}
	t.logger.Debug("Setting global OpenTelemetry tracer provider", "provider", t.provider)
	otel.SetTracerProvider(t.tracerProvider)
}

func (t *Tracer) newOTLPExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	var opts []otlptracegrpc.Option
	if t.otlpEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(t.otlpEndpoint))
	}
	if t.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	return exporter, nil
}

func (t *Tracer) newOTLPHTTPExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	var opts []otlptracehttp.Option
	if t.otlpEndpoint != "" {
		u, err := url.Parse(t.otlpEndpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid OTLP endpoint %q", t.otlpEndpoint)
		}
		opts = append(opts, otlptracehttp.WithEndpoint(u.Host))
		if u.Scheme == "http" {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if u.Path != "" && u.Path != "/" {
			opts = append(opts, otlptracehttp.WithURLPath(u.Path))
		}
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	return exporter, nil
}

func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
