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
	"time"

	rkconfig "rivaas.dev/restkit/config"
	"rivaas.dev/restkit/logging"
	"rivaas.dev/restkit/metrics"
	"rivaas.dev/restkit/tracing"
)

// settingsSchema constrains the enumerated settings before binding.
const settingsSchema = `{
  "type": "object",
  "properties": {
    "service": {
      "type": "object",
      "properties": {
        "environment": {"enum": ["development", "production"]}
      }
    },
    "log": {
      "type": "object",
      "properties": {
        "level":  {"enum": ["debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR"]},
        "format": {"enum": ["json", "text", "console"]}
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "provider": {"enum": ["prometheus", "otlp", "stdout"]}
      }
    },
    "tracing": {
      "type": "object",
      "properties": {
        "provider": {"enum": ["", "noop", "stdout", "otlp", "otlp-http"]}
      }
    }
  }
}`

// Settings is the file and environment representation of the app options.
// Keys contain no underscores, so RESTKIT_SERVER_WORKERS_CHILD maps to
// server.workers.child.
//
// Example YAML:
//
//	service:
//	  name: catalogue
//	  environment: production
//	server:
//	  address: ":9000"
//	  grace: 5s
//	  workers:
//	    child: 64
//	metrics:
//	  provider: otlp
//	  endpoint: http://collector:4318
//	tracing:
//	  provider: otlp-http
//	  endpoint: http://collector:4318
//	  samplerate: 0.1
type Settings struct {
	Service ServiceSettings `config:"service"`
	Server  ServerSettings  `config:"server"`
	Log     LogSettings     `config:"log"`
	Metrics MetricsSettings `config:"metrics"`
	Tracing TracingSettings `config:"tracing"`
}

// ServiceSettings holds the service metadata.
type ServiceSettings struct {
	Name        string `config:"name" default:"restkit"`
	Version     string `config:"version" default:"dev"`
	Environment string `config:"environment" default:"development"`
}

// ServerSettings configures the engine.
type ServerSettings struct {
	Address string        `config:"address" default:":8080"`
	Grace   time.Duration `config:"grace" default:"2s"`
	Timeout time.Duration `config:"timeout" default:"10s"`
	Workers struct {
		Parent int `config:"parent" default:"1"`
		Child  int `config:"child"`
	} `config:"workers"`
	Queue int  `config:"queue" default:"1024"`
	H2C   bool `config:"h2c"`
}

// LogSettings configures the default logger.
type LogSettings struct {
	Level  string `config:"level" default:"info"`
	Format string `config:"format"`
}

// MetricsSettings configures the metrics recorder.
type MetricsSettings struct {
	Disabled bool   `config:"disabled"`
	Provider string `config:"provider" default:"prometheus"`
	Endpoint string `config:"endpoint"`
	Path     string `config:"path" default:"/metrics"`
}

// TracingSettings configures the tracer. An empty provider disables tracing.
type TracingSettings struct {
	Provider   string  `config:"provider"`
	Endpoint   string  `config:"endpoint"`
	Insecure   bool    `config:"insecure"`
	SampleRate float64 `config:"samplerate" default:"1"`
}

// Validate checks the values the schema cannot express.
func (s *Settings) Validate() error {
	var errs []error
	if s.Server.Grace < 0 || s.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.grace and server.timeout must not be negative"))
	}
	if s.Server.Workers.Parent < 0 || s.Server.Workers.Child < 0 || s.Server.Queue < 0 {
		errs = append(errs, errors.New("server.workers and server.queue must not be negative"))
	}
	if !s.Metrics.Disabled && s.Metrics.Provider == string(metrics.OTLPProvider) && s.Metrics.Endpoint == "" {
		errs = append(errs, errors.New("metrics.endpoint is required for the otlp provider"))
	}
	switch tracing.Provider(s.Tracing.Provider) {
	case tracing.OTLPProvider, tracing.OTLPHTTPProvider:
		if s.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for the %s provider", s.Tracing.Provider))
		}
	}
	if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.samplerate must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// LoadConfig reads settings from path (skipped when empty), then from
// environment variables starting with envPrefix, then from extra sources.
// Later sources override earlier ones.
//
// Example:
//
//	s, err := app.LoadConfig(ctx, "restkit.yaml", "RESTKIT_", config.WithConsul("restkit/config.yaml"))
//	if err != nil {
//	    return err
//	}
//	a, err := app.New(s.Options()...)
func LoadConfig(ctx context.Context, path, envPrefix string, extra ...rkconfig.Option) (*Settings, error) {
	s := &Settings{}
	opts := []rkconfig.Option{
		rkconfig.WithJSONSchema([]byte(settingsSchema)),
		rkconfig.WithBinding(s),
	}
	if path != "" {
		opts = append(opts, rkconfig.WithFile(path))
	}
	if envPrefix != "" {
		opts = append(opts, rkconfig.WithEnv(envPrefix))
	}
	opts = append(opts, extra...)

	cfg, err := rkconfig.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure settings: %w", err)
	}
	if err := cfg.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return s, nil
}

// Options converts the settings into app options.
func (s *Settings) Options() ([]Option, error) {
	opts := []Option{
		WithServiceName(s.Service.Name),
		WithServiceVersion(s.Service.Version),
		WithEnvironment(s.Service.Environment),
		WithServerConfig(
			WithAddress(s.Server.Address),
			WithShutdownGrace(s.Server.Grace),
			WithShutdownTimeout(s.Server.Timeout),
			WithParentWorkers(s.Server.Workers.Parent),
			WithChildWorkers(s.Server.Workers.Child),
			WithQueueSize(s.Server.Queue),
			WithH2C(s.Server.H2C),
		),
	}

	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	logOpts := []logging.Option{logging.WithLevel(level)}
	if s.Log.Format != "" {
		logOpts = append(logOpts, logging.WithHandlerType(logging.HandlerType(s.Log.Format)))
	}
	opts = append(opts, WithLogging(logOpts...))

	if !s.Metrics.Disabled {
		switch metrics.Provider(s.Metrics.Provider) {
		case metrics.OTLPProvider:
			opts = append(opts, WithMetrics(metrics.WithOTLP(s.Metrics.Endpoint)))
		case metrics.StdoutProvider:
			opts = append(opts, WithMetrics(metrics.WithStdout()))
		default:
			opts = append(opts, WithMetrics(metrics.WithPrometheus()), WithMetricsPath(s.Metrics.Path))
		}
	}

	if s.Tracing.Provider != "" {
		tracingOpts := []tracing.Option{tracing.WithSampleRate(s.Tracing.SampleRate)}
		switch tracing.Provider(s.Tracing.Provider) {
		case tracing.StdoutProvider:
			tracingOpts = append(tracingOpts, tracing.WithStdout())
		case tracing.OTLPProvider:
			var otlpOpts []tracing.OTLPOption
			if s.Tracing.Insecure {
				otlpOpts = append(otlpOpts, tracing.OTLPInsecure())
			}
			tracingOpts = append(tracingOpts, tracing.WithOTLP(s.Tracing.Endpoint, otlpOpts...))
		case tracing.OTLPHTTPProvider:
			tracingOpts = append(tracingOpts, tracing.WithOTLPHTTP(s.Tracing.Endpoint))
		case tracing.NoopProvider:
		default:
			return nil, fmt.Errorf("tracing.provider: unsupported provider %q", s.Tracing.Provider)
		}
		opts = append(opts, WithTracing(tracingOpts...))
	}

	return opts, nil
}
