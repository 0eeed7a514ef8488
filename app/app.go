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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"rivaas.dev/restkit/engine"
	"rivaas.dev/restkit/logging"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/middleware/accesslog"
	"rivaas.dev/restkit/middleware/bodylimit"
	"rivaas.dev/restkit/middleware/compression"
	"rivaas.dev/restkit/middleware/recovery"
	"rivaas.dev/restkit/middleware/requestid"
	"rivaas.dev/restkit/router"
	"rivaas.dev/restkit/tracing"
)

const (
	// waitSlack is added to the shutdown timeout when waiting for the engine.
	waitSlack = time.Second

	telemetryShutdownTimeout = 5 * time.Second
)

// ErrAlreadyRunning is returned by a second call to [App.Run].
var ErrAlreadyRunning = errors.New("app is already running")

// App wires configuration, logging, metrics, tracing, the router and the
// engine into one service.
//
// The router is populated through [App.Router] or the passthrough methods
// before [App.Run]; it is frozen when the engine starts.
type App struct {
	config  *config
	log     *logging.Logger
	logger  *slog.Logger
	router  *router.Router
	engine  *engine.Engine
	metrics *metrics.Recorder
	tracing *tracing.Tracer
	hooks   Hooks
	running atomic.Bool
}

// New creates an App. It returns all configuration errors joined.
//
// Example:
//
//	a, err := app.New(
//	    app.WithServiceName("catalogue"),
//	    app.WithServiceVersion("v1.2.0"),
//	    app.WithMetrics(),
//	)
//	if err != nil {
//	    return err
//	}
//	resource.MustHandle(a.Router().Root(), http.MethodGet, getArticle)
//	return a.Run(ctx, ":8080")
func New(opts ...Option) (*App, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{config: cfg}

	l, err := a.newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.log = l
	a.logger = l.Logger()
	logger := a.logger

	if cfg.metricsEnabled {
		metricsOpts := append([]metrics.Option{
			metrics.WithServiceName(cfg.serviceName),
			metrics.WithServiceVersion(cfg.serviceVersion),
			metrics.WithLogger(logger),
		}, cfg.metricsOpts...)
		rec, err := metrics.New(metricsOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		a.metrics = rec
	}

	if cfg.tracingEnabled {
		tracingOpts := append([]tracing.Option{
			tracing.WithServiceName(cfg.serviceName),
			tracing.WithServiceVersion(cfg.serviceVersion),
			tracing.WithLogger(logger),
		}, cfg.tracingOpts...)
		t, err := tracing.New(tracingOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tracing = t
	}

	routerOpts := []router.Option{router.WithLogger(logger)}
	if a.metrics != nil {
		routerOpts = append(routerOpts, router.WithMetricsRecorder(a.metrics))
	}
	if a.tracing != nil {
		routerOpts = append(routerOpts, router.WithTracerProvider(a.tracing.TracerProvider()))
	}
	r, err := router.New(routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	a.router = r

	r.Use(requestid.New())
	if cfg.accessLog {
		r.Use(accesslog.New(a.accessLogOptions()...))
	}
	r.Use(recovery.New(recovery.WithLogger(logger)))
	if a.metrics != nil {
		r.Use(a.metrics.Middleware(metrics.WithExcludePaths(cfg.healthPath, readyPath(cfg.healthPath), cfg.metricsPath)))
	}
	if cfg.bodyLimit > 0 {
		r.Use(bodylimit.New(bodylimit.WithLimit(cfg.bodyLimit)))
	}
	if cfg.compression {
		r.Use(compression.New(append([]compression.Option{
			compression.WithLogger(logger),
			compression.WithExcludePaths(cfg.metricsPath),
		}, cfg.compressionOpts...)...))
	}
	if err := a.registerBuiltinRoutes(); err != nil {
		return nil, err
	}

	e, err := engine.New(r, a.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	a.engine = e

	return a, nil
}

// MustNew creates an App or panics on error.
func MustNew(opts ...Option) *App {
	a, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("app.MustNew: %v", err))
	}

	return a
}

func (c *config) validate() error {
	var errs []error
	if c.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if c.serviceVersion == "" {
		errs = append(errs, errors.New("service version cannot be empty"))
	}
	if c.environment != EnvironmentDevelopment && c.environment != EnvironmentProduction {
		errs = append(errs, fmt.Errorf("invalid environment %q: must be %q or %q",
			c.environment, EnvironmentDevelopment, EnvironmentProduction))
	}
	if c.server.grace < 0 || c.server.timeout < 0 {
		errs = append(errs, errors.New("shutdown durations must not be negative"))
	}
	if c.server.parentWorkers < 0 || c.server.childWorkers < 0 || c.server.queueSize < 0 {
		errs = append(errs, errors.New("worker counts and queue size must not be negative"))
	}
	if c.healthPath == "" || c.healthPath[0] != '/' {
		errs = append(errs, fmt.Errorf("health path %q must start with /", c.healthPath))
	}
	if c.metricsPath == "" || c.metricsPath[0] != '/' {
		errs = append(errs, fmt.Errorf("metrics path %q must start with /", c.metricsPath))
	}
	if c.bodyLimit < 0 {
		errs = append(errs, fmt.Errorf("body limit must not be negative, got %d", c.bodyLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("app configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

func (a *App) newLogger() (*logging.Logger, error) {
	if a.config.logger != nil {
		return logging.New(logging.WithCustomLogger(a.config.logger))
	}

	handler := logging.WithConsoleHandler()
	if a.config.environment == EnvironmentProduction {
		handler = logging.WithJSONHandler()
	}
	opts := append([]logging.Option{
		handler,
		logging.WithServiceName(a.config.serviceName),
		logging.WithServiceVersion(a.config.serviceVersion),
		logging.WithEnvironment(a.config.environment),
	}, a.config.loggingOpts...)

	return logging.New(opts...)
}

func (a *App) accessLogOptions() []accesslog.Option {
	opts := []accesslog.Option{
		accesslog.WithLogger(a.logger),
		accesslog.WithExcludePaths(a.config.healthPath, readyPath(a.config.healthPath), a.config.metricsPath),
	}
	if a.config.environment == EnvironmentProduction {
		opts = append(opts, accesslog.WithErrorsOnly())
	}

	return append(opts, a.config.accessLogOpts...)
}

func (a *App) engineOptions() []engine.Option {
	sc := a.config.server
	opts := []engine.Option{
		engine.WithLogger(a.logger),
		engine.WithH2C(sc.h2c),
		engine.WithServerTimeouts(sc.readHeaderTimeout, sc.readTimeout, sc.writeTimeout, sc.idleTimeout),
		engine.WithGroups(func(gc *engine.GroupConfig) {
			if sc.parentWorkers > 0 {
				gc.ParentWorkers = sc.parentWorkers
			}
			if sc.childWorkers > 0 {
				gc.ChildWorkers = sc.childWorkers
			}
			if sc.queueSize > 0 {
				gc.QueueSize = sc.queueSize
			}
		}),
	}
	if a.metrics != nil {
		opts = append(opts, engine.WithMetrics(a.metrics))
	}

	return opts
}

// Router returns the application router.
func (a *App) Router() *router.Router { return a.router }

// Engine returns the engine serving the router.
func (a *App) Engine() *engine.Engine { return a.engine }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Tracing returns the tracer, nil unless [WithTracing] was given.
func (a *App) Tracing() *tracing.Tracer { return a.tracing }

// Metrics returns the metrics recorder, nil unless [WithMetrics] was given.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// ServiceName returns the configured service name.
func (a *App) ServiceName() string { return a.config.serviceName }

// ServiceVersion returns the configured service version.
func (a *App) ServiceVersion() string { return a.config.serviceVersion }

// Environment returns the configured environment mode.
func (a *App) Environment() string { return a.config.environment }

// Use adds global middleware.
func (a *App) Use(middleware ...router.HandlerFunc) { a.router.Use(middleware...) }

// Route builds a subtree under path. See [router.Router.Route].
func (a *App) Route(path string, build func(*router.Route)) *router.Route {
	return a.router.Route(path, build)
}

// Handle registers handlers for method and path.
func (a *App) Handle(method, path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.Handle(method, path, handlers...)
}

// GET registers a GET route.
func (a *App) GET(path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.GET(path, handlers...)
}

// POST registers a POST route.
func (a *App) POST(path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.POST(path, handlers...)
}

// PUT registers a PUT route.
func (a *App) PUT(path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.PUT(path, handlers...)
}

// DELETE registers a DELETE route.
func (a *App) DELETE(path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.DELETE(path, handlers...)
}

// PATCH registers a PATCH route.
func (a *App) PATCH(path string, handlers ...router.HandlerFunc) *router.Route {
	return a.router.PATCH(path, handlers...)
}

// Run starts the engine on addr, or the configured address when addr is
// empty, and blocks until ctx is done or the engine stops on its own.
//
// Shutdown runs in order: OnShutdown hooks (LIFO, bounded by the shutdown
// timeout), engine Stop and Wait, metrics and tracing shutdown, OnStop hooks.
// A failing OnStart hook or engine start leaves the app ready for another
// Run.
//
// Example:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := a.Run(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
func (a *App) Run(ctx context.Context, addr string) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	start := time.Now()
	if addr == "" {
		addr = a.config.server.address
	}

	if err := a.executeStartHooks(ctx); err != nil {
		a.running.Store(false)
		return err
	}

	a.router.Freeze()
	if err := a.engine.Start(addr); err != nil {
		a.running.Store(false)
		return fmt.Errorf("failed to start engine: %w", err)
	}
	if a.config.banner {
		a.printStartupBanner()
	}
	a.executeReadyHooks()
	a.log.LogDuration("server started", start, "address", addr)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested", "reason", context.Cause(ctx))
	case <-a.engine.Done():
		a.logger.Warn("engine stopped unexpectedly")
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	start := time.Now()
	sc := a.config.server
	ctx, cancel := context.WithTimeout(context.Background(), sc.timeout)
	defer cancel()

	a.executeShutdownHooks(ctx)

	var errs []error
	if err := a.engine.Stop(sc.grace.Milliseconds(), sc.timeout.Milliseconds()); err != nil {
		errs = append(errs, fmt.Errorf("engine stop: %w", err))
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), sc.timeout+waitSlack)
	defer waitCancel()
	if err := a.engine.Wait(waitCtx); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}

	tctx, tcancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer tcancel()
	if a.metrics != nil {
		if err := a.metrics.Shutdown(tctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(tctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}

	a.executeStopHooks()
	err := errors.Join(errs...)
	a.log.LogError(err, "shutdown incomplete")
	a.log.LogDuration("server exited", start)

	return err
}
