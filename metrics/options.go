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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithMeterProvider records on a caller-owned meter provider. Provider
// options are ignored and [Recorder.Shutdown] leaves the provider running.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customMeterProvider = true
	}
}

// WithGlobalMeterProvider registers the built-in meter provider with
// otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}

// WithServiceName sets the service.name attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
	}
}

// WithServiceVersion sets the service.version attribute.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
	}
}

// WithExportInterval sets the push interval of the OTLP and stdout providers.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		r.exportInterval = interval
	}
}

// WithDurationBuckets sets the request duration histogram boundaries, in seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.durationBuckets = buckets
	}
}

// WithEventHandler receives internal operational events.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) {
		r.eventHandler = handler
	}
}

// WithLogger logs internal operational events to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}

// WithPrometheus selects the Prometheus provider. Metrics are served by
// [Recorder.Handler] on a private registry.
func WithPrometheus() Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
		r.providerSetCount++
	}
}

// WithOTLP selects the OTLP HTTP provider. endpoint is a URL such as
// "http://localhost:4318"; plain http disables TLS.
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.providerSetCount++
		r.otlpEndpoint = endpoint
	}
}

// WithStdout selects the stdout provider.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
		r.providerSetCount++
	}
}
