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

package app

import (
	"io"
	"log/slog"
	"time"

	"rivaas.dev/restkit/logging"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/middleware/accesslog"
	"rivaas.dev/restkit/middleware/bodylimit"
	"rivaas.dev/restkit/middleware/compression"
	"rivaas.dev/restkit/tracing"
)

// Environment modes accepted by [WithEnvironment].
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Option defines functional options for app configuration.
type Option func(*config)

type config struct {
	serviceName    string
	serviceVersion string
	environment    string

	server serverConfig

	logger      *slog.Logger
	loggingOpts []logging.Option

	metricsEnabled bool
	metricsOpts    []metrics.Option

	tracingEnabled bool
	tracingOpts    []tracing.Option

	compression     bool
	compressionOpts []compression.Option
	bodyLimit       int64

	accessLog     bool
	accessLogOpts []accesslog.Option

	banner    bool
	bannerOut io.Writer

	healthPath  string
	metricsPath string
}

type serverConfig struct {
	address       string
	grace         time.Duration
	timeout       time.Duration
	parentWorkers int
	childWorkers  int
	queueSize     int
	h2c           bool

	readHeaderTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
}

func defaultConfig() *config {
	return &config{
		serviceName:    "restkit",
		serviceVersion: "dev",
		environment:    EnvironmentDevelopment,
		server: serverConfig{
			address:           ":8080",
			grace:             2 * time.Second,
			timeout:           10 * time.Second,
			readHeaderTimeout: 5 * time.Second,
			readTimeout:       15 * time.Second,
			writeTimeout:      30 * time.Second,
			idleTimeout:       60 * time.Second,
		},
		accessLog:   true,
		compression: true,
		bodyLimit:   bodylimit.DefaultLimit,
		banner:      true,
		healthPath:  "/healthz",
		metricsPath: "/metrics",
	}
}

// WithServiceName sets the service name used in logs, metrics and the
// banner. An empty name causes validation to fail during [New].
//
// Example:
//
//	app.New(app.WithServiceName("catalogue"))
func WithServiceName(name string) Option {
	return func(c *config) {
		c.serviceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *config) {
		c.serviceVersion = version
	}
}

// WithEnvironment sets the environment mode, "development" or "production".
//
// Environment affects:
//   - The default log handler (console in development, JSON in production)
//   - Startup banner (development shows the route table)
//   - Terminal colors (production strips ANSI sequences)
func WithEnvironment(env string) Option {
	return func(c *config) {
		c.environment = env
	}
}

// WithLogger replaces the application logger. Without it a
// [logging.Logger] is built from the service metadata.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLogging passes options to the default [logging.Logger]. It has no
// effect together with [WithLogger].
//
// Example:
//
//	app.New(app.WithLogging(logging.WithDebugLevel()))
func WithLogging(opts ...logging.Option) Option {
	return func(c *config) {
		c.loggingOpts = append(c.loggingOpts, opts...)
	}
}

// WithMetrics enables request, decode and task metrics. With the Prometheus
// provider (the default) the scrape endpoint is mounted at /metrics.
//
// Example:
//
//	app.New(app.WithMetrics(metrics.WithOTLP("http://collector:4318")))
func WithMetrics(opts ...metrics.Option) Option {
	return func(c *config) {
		c.metricsEnabled = true
		c.metricsOpts = append(c.metricsOpts, opts...)
	}
}

// WithTracing enables request tracing. Every request gets a server span
// named after its route; without a provider option spans are discarded.
//
// Example:
//
//	app.New(app.WithTracing(tracing.WithOTLPHTTP("http://collector:4318")))
func WithTracing(opts ...tracing.Option) Option {
	return func(c *config) {
		c.tracingEnabled = true
		c.tracingOpts = append(c.tracingOpts, opts...)
	}
}

// WithCompression passes options to the response compression middleware,
// which is enabled by default.
func WithCompression(opts ...compression.Option) Option {
	return func(c *config) {
		c.compression = true
		c.compressionOpts = append(c.compressionOpts, opts...)
	}
}

// WithoutCompression disables response compression.
func WithoutCompression() Option {
	return func(c *config) {
		c.compression = false
	}
}

// WithBodyLimit caps request bodies at n bytes (2MB by default). Zero
// disables the limit.
func WithBodyLimit(n int64) Option {
	return func(c *config) {
		c.bodyLimit = n
	}
}

// WithMetricsPath changes the path of the Prometheus scrape endpoint.
func WithMetricsPath(path string) Option {
	return func(c *config) {
		c.metricsPath = path
	}
}

// WithHealthPath changes the liveness endpoint path. The readiness endpoint
// is mounted next to it at "/readyz".
func WithHealthPath(path string) Option {
	return func(c *config) {
		c.healthPath = path
	}
}

// WithAccessLog passes options to the access log middleware. Production
// apps log only errors and slow requests by default.
//
// Example:
//
//	app.New(app.WithAccessLog(accesslog.WithSlowThreshold(time.Second)))
func WithAccessLog(opts ...accesslog.Option) Option {
	return func(c *config) {
		c.accessLog = true
		c.accessLogOpts = append(c.accessLogOpts, opts...)
	}
}

// WithoutAccessLog disables the access log middleware.
func WithoutAccessLog() Option {
	return func(c *config) {
		c.accessLog = false
	}
}

// WithoutBanner disables the startup banner.
func WithoutBanner() Option {
	return func(c *config) {
		c.banner = false
	}
}

// WithBannerOutput writes the startup banner to w instead of stdout.
func WithBannerOutput(w io.Writer) Option {
	return func(c *config) {
		c.bannerOut = w
	}
}

// ServerOption configures the engine that serves the app.
type ServerOption func(*serverConfig)

// WithServerConfig applies server options.
//
// Example:
//
//	app.New(
//	    app.WithServerConfig(
//	        app.WithAddress(":9000"),
//	        app.WithShutdownGrace(5*time.Second),
//	        app.WithChildWorkers(64),
//	    ),
//	)
func WithServerConfig(opts ...ServerOption) Option {
	return func(c *config) {
		for _, opt := range opts {
			opt(&c.server)
		}
	}
}

// WithAddress sets the listen address used when [App.Run] gets none.
func WithAddress(addr string) ServerOption {
	return func(sc *serverConfig) {
		sc.address = addr
	}
}

// WithShutdownGrace sets how long in-flight requests may finish before
// their contexts are cancelled.
func WithShutdownGrace(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.grace = d
	}
}

// WithShutdownTimeout bounds the whole shutdown. Groups still running at
// the timeout are declared terminated with an error.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.timeout = d
	}
}

// WithParentWorkers sets the worker count of the group running the accept loop.
func WithParentWorkers(n int) ServerOption {
	return func(sc *serverConfig) {
		sc.parentWorkers = n
	}
}

// WithChildWorkers sets the worker count of the group running requests.
// Zero keeps the engine default.
func WithChildWorkers(n int) ServerOption {
	return func(sc *serverConfig) {
		sc.childWorkers = n
	}
}

// WithQueueSize sets the task queue size of both groups.
func WithQueueSize(n int) ServerOption {
	return func(sc *serverConfig) {
		sc.queueSize = n
	}
}

// WithH2C enables HTTP/2 over cleartext.
func WithH2C(enabled bool) ServerOption {
	return func(sc *serverConfig) {
		sc.h2c = enabled
	}
}

// WithReadHeaderTimeout sets how long the server waits to read request headers.
func WithReadHeaderTimeout(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.readHeaderTimeout = d
	}
}

// WithReadTimeout sets how long the server waits to read the entire request.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.readTimeout = d
	}
}

// WithWriteTimeout sets how long the server waits to write the response.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.writeTimeout = d
	}
}

// WithIdleTimeout sets how long keep-alive connections wait for the next request.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(sc *serverConfig) {
		sc.idleTimeout = d
	}
}
