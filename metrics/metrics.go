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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName is the instrumentation scope of every instrument created here.
const meterName = "rivaas.dev/restkit/metrics"

// DefaultDurationBuckets are histogram boundaries for request duration in seconds.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Static errors.
var (
	ErrConflictingProviders = errors.New("only one of WithPrometheus, WithOTLP or WithStdout can be used")
	ErrEmptyServiceName     = errors.New("service name cannot be empty")
	ErrNotPrometheus        = errors.New("handler only available with the Prometheus provider")
	ErrLimitReached         = errors.New("custom metrics limit reached")
	ErrInvalidMetricName    = errors.New("invalid metric name")
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g. failed to flush metrics).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event.
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event is an internal operational event of the metrics package.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to logger.
// A nil logger discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Provider names a metrics exporter.
type Provider string

const (
	// PrometheusProvider exposes metrics for scraping through [Recorder.Handler] (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"
	// StdoutProvider writes metrics to stdout (development).
	StdoutProvider Provider = "stdout"
)

// Recorder records HTTP, resource and engine metrics on OpenTelemetry
// instruments. It satisfies router.MetricsRecorder and engine.TaskRecorder.
// All methods are safe for concurrent use.
type Recorder struct {
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	prometheusHandler  http.Handler
	prometheusRegistry *promclient.Registry
	eventHandler       EventHandler

	requestCount   metric.Int64Counter
	requestTime    metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
	decodeFailures metric.Int64Counter
	tasks          metric.Int64Counter
	activeTasks    metric.Int64UpDownCounter

	customMu       sync.Mutex
	customCounters map[string]metric.Int64Counter

	durationBuckets []float64
	exportInterval  time.Duration

	serviceName    string
	serviceVersion string
	otlpEndpoint   string

	serviceAttrs []attribute.KeyValue

	provider            Provider
	providerSetCount    int
	customMeterProvider bool
	registerGlobal      bool
	isShuttingDown      atomic.Bool
}

// New creates a [Recorder]. The Prometheus provider is used unless another
// provider or a custom meter provider is configured.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		serviceName:     "restkit",
		serviceVersion:  "dev",
		provider:        PrometheusProvider,
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		customCounters:  make(map[string]metric.Int64Counter),
		eventHandler:    func(Event) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics configuration: %w", err)
	}

	r.serviceAttrs = []attribute.KeyValue{
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	}

	if err := r.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics.MustNew: %v", err))
	}

	return r
}

func (r *Recorder) validate() error {
	var errs []error
	if r.providerSetCount > 1 {
		errs = append(errs, ErrConflictingProviders)
	}
	if r.serviceName == "" {
		errs = append(errs, ErrEmptyServiceName)
	}
	if r.exportInterval < time.Second {
		r.emitWarning("Export interval is very low", "interval", r.exportInterval)
	}
	if r.provider == OTLPProvider && r.otlpEndpoint == "" {
		r.otlpEndpoint = "http://localhost:4318"
		r.emitWarning("OTLP endpoint not specified, using default", "endpoint", r.otlpEndpoint)
	}

	return errors.Join(errs...)
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.prometheusHandler == nil {
		return nil, fmt.Errorf("%w: current provider is %s", ErrNotPrometheus, r.Provider())
	}

	return r.prometheusHandler, nil
}

// Provider returns the configured provider, or "" for a custom meter provider.
func (r *Recorder) Provider() Provider {
	if r.customMeterProvider {
		return ""
	}

	return r.provider
}

// ServiceName returns the service name attached to every measurement.
func (r *Recorder) ServiceName() string { return r.serviceName }

// Shutdown flushes pending measurements and shuts the meter provider down.
// It is idempotent. Custom meter providers are left to their owner.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if r.customMeterProvider {
		return nil
	}

	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush failed", "error", err)
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	r.emitDebug("Meter provider shut down")

	return nil
}

// ForceFlush exports pending measurements without shutting down.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.isShuttingDown.Load() {
		return nil
	}
	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}

	return nil
}

func (r *Recorder) emitError(msg string, args ...any) {
	r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
}

func (r *Recorder) emitWarning(msg string, args ...any) {
	r.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
}

func (r *Recorder) emitDebug(msg string, args ...any) {
	r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
}
