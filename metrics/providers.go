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
	"fmt"
	"net/url"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func (r *Recorder) initializeProvider() error {
	if r.customMeterProvider {
		if r.meterProvider == nil {
			return fmt.Errorf("custom meter provider is nil")
		}
		r.meter = r.meterProvider.Meter(meterName)

		return r.initializeInstruments()
	}

	var (
		mp  *sdkmetric.MeterProvider
		err error
	)
	switch r.provider {
	case PrometheusProvider:
		mp, err = r.newPrometheusProvider()
	case OTLPProvider:
		mp, err = r.newOTLPProvider()
	case StdoutProvider:
		mp, err = r.newStdoutProvider()
	default:
		err = fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}
	if err != nil {
		return err
	}

	r.meterProvider = mp
	if r.registerGlobal {
		r.emitDebug("Setting global OpenTelemetry meter provider", "provider", r.provider)
		otel.SetMeterProvider(mp)
	}
	r.meter = mp.Meter(meterName)

	return r.initializeInstruments()
}

func (r *Recorder) newPrometheusProvider() (*sdkmetric.MeterProvider, error) {
	r.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(r.prometheusRegistry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	r.prometheusHandler = promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

func (r *Recorder) newOTLPProvider() (*sdkmetric.MeterProvider, error) {
	u, err := url.Parse(r.otlpEndpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q", r.otlpEndpoint)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if u.Path != "" && u.Path != "/" {
		opts = append(opts, otlpmetrichttp.WithURLPath(u.Path))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval)),
	)), nil
}

func (r *Recorder) newStdoutProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval)),
	)), nil
}
