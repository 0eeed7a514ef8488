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

// Package tracing builds the OpenTelemetry tracer provider handed to the
// router, exporting spans to stdout or an OTLP collector.
//
//	t, err := tracing.New(
//	    tracing.WithServiceName("catalogue"),
//	    tracing.WithOTLPHTTP("http://collector:4318"),
//	    tracing.WithSampleRate(0.1),
//	)
//	if err != nil {
//	    return err
//	}
//	defer t.Shutdown(context.Background())
//	r := router.MustNew(router.WithTracerProvider(t.TracerProvider()))
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider names a span exporter.
type Provider string

const (
	// NoopProvider records nothing.
	NoopProvider Provider = "noop"
	// StdoutProvider pretty-prints spans (development).
	StdoutProvider Provider = "stdout"
	// OTLPProvider exports over OTLP gRPC.
	OTLPProvider Provider = "otlp"
	// OTLPHTTPProvider exports over OTLP HTTP.
	OTLPHTTPProvider Provider = "otlp-http"
)

var (
	// ErrConflictingProviders is returned when more than one provider option is given.
	ErrConflictingProviders = errors.New("multiple tracing providers configured; choose one")
	// ErrEmptyServiceName is returned for an empty service name.
	ErrEmptyServiceName = errors.New("service name cannot be empty")
	// ErrInvalidSampleRate is returned for a sample rate outside [0, 1].
	ErrInvalidSampleRate = errors.New("sample rate must be between 0 and 1")
)

// Tracer owns a tracer provider and its exporter.
// All methods are safe for concurrent use.
type Tracer struct {
	serviceName    string
	serviceVersion string
	sampleRate     float64

	provider         Provider
	providerSetCount int
	otlpEndpoint     string
	otlpInsecure     bool
	output           io.Writer

	tracerProvider       trace.TracerProvider
	sdkProvider          *sdktrace.TracerProvider
	customTracerProvider bool
	registerGlobal       bool

	logger         *slog.Logger
	isShuttingDown atomic.Bool
}

// New creates a [Tracer]. Without a provider option spans are discarded.
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		serviceName:    "restkit",
		serviceVersion: "dev",
		sampleRate:     1.0,
		provider:       NoopProvider,
		output:         os.Stdout,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing configuration: %w", err)
	}
	if err := t.initializeProvider(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("tracing.MustNew: %v", err))
	}

	return t
}

func (t *Tracer) validate() error {
	var errs []error
	if t.providerSetCount > 1 {
		errs = append(errs, ErrConflictingProviders)
	}
	if t.serviceName == "" {
		errs = append(errs, ErrEmptyServiceName)
	}
	if t.sampleRate < 0 || t.sampleRate > 1 {
		errs = append(errs, fmt.Errorf("%w, got %v", ErrInvalidSampleRate, t.sampleRate))
	}

	return errors.Join(errs...)
}

// TracerProvider returns the provider to pass to router.WithTracerProvider.
func (t *Tracer) TracerProvider() trace.TracerProvider {
	if t.tracerProvider == nil {
		return noop.NewTracerProvider()
	}

	return t.tracerProvider
}

// Provider returns the configured exporter.
func (t *Tracer) Provider() Provider { return t.provider }

// ServiceName returns the service name recorded on every span.
func (t *Tracer) ServiceName() string { return t.serviceName }

// ForceFlush exports all finished spans.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.sdkProvider == nil {
		return nil
	}

	return t.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter. Custom providers are left to
// their owner. Calls after the first are no-ops.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if t.sdkProvider == nil {
		return nil
	}
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		t.logger.Error("Failed to shut down tracer provider", "error", err)
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	t.logger.Debug("Tracer provider shut down", "provider", t.provider)

	return nil
}
