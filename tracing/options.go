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
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Tracer].
type Option func(*Tracer)

// OTLPOption configures the OTLP gRPC exporter.
type OTLPOption func(*Tracer)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithSampleRate samples root spans at rate (0 to 1). Child spans follow
// their parent. Default: 1.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		t.sampleRate = rate
	}
}

// WithTracerProvider uses provider instead of building one. [Tracer.Shutdown]
// does not shut it down.
//
// Example:
//
//	sr := tracetest.NewSpanRecorder()
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
//	t, _ := tracing.New(tracing.WithTracerProvider(tp))
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customTracerProvider = true
	}
}

// WithGlobalTracerProvider also registers the provider with otel.SetTracerProvider.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithLogger logs provider lifecycle events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// OTLPInsecure disables TLS for the gRPC exporter.
func OTLPInsecure() OTLPOption {
	return func(t *Tracer) {
		t.otlpInsecure = true
	}
}

// WithOTLP exports over OTLP gRPC to endpoint, a host:port such as
// "localhost:4317".
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(t *Tracer) {
		t.provider = OTLPProvider
		t.providerSetCount++
		t.otlpEndpoint = endpoint
		for _, opt := range opts {
			opt(t)
		}
	}
}

// WithOTLPHTTP exports over OTLP HTTP to endpoint, a URL such as
// "http://localhost:4318". Plain http disables TLS.
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPHTTPProvider
		t.providerSetCount++
		t.otlpEndpoint = endpoint
	}
}

// WithStdout pretty-prints spans to stdout.
func WithStdout() Option {
	return func(t *Tracer) {
		t.provider = StdoutProvider
		t.providerSetCount++
	}
}

// WithNoop discards all spans. This is the default.
func WithNoop() Option {
	return func(t *Tracer) {
		t.provider = NoopProvider
		t.providerSetCount++
	}
}
