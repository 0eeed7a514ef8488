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
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

const maxMetricNameLength = 255

// maxCustomMetrics bounds the counters created by IncrementCounter.
const maxCustomMetrics = 100

// Prefixes used by the built-in instruments.
var reservedPrefixes = []string{"__", "http.", "resource.", "engine."}

func (r *Recorder) initializeInstruments() error {
	var err error

	if r.requestCount, err = r.meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests served"),
	); err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}
	if r.requestTime, err = r.meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	); err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if r.activeRequests, err = r.meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return fmt.Errorf("failed to create active request counter: %w", err)
	}
	if r.decodeFailures, err = r.meter.Int64Counter("resource.decode.failures",
		metric.WithDescription("Number of requests whose resource could not be decoded"),
	); err != nil {
		return fmt.Errorf("failed to create decode failure counter: %w", err)
	}
	if r.tasks, err = r.meter.Int64Counter("engine.tasks",
		metric.WithDescription("Number of loop group tasks by outcome"),
	); err != nil {
		return fmt.Errorf("failed to create task counter: %w", err)
	}
	if r.activeTasks, err = r.meter.Int64UpDownCounter("engine.tasks.active",
		metric.WithDescription("Number of running loop group tasks"),
	); err != nil {
		return fmt.Errorf("failed to create active task counter: %w", err)
	}

	return nil
}

func (r *Recorder) attrs(extra ...attribute.KeyValue) metric.MeasurementOption {
	all := make([]attribute.KeyValue, 0, len(r.serviceAttrs)+len(extra))
	all = append(all, r.serviceAttrs...)
	all = append(all, extra...)

	return metric.WithAttributes(all...)
}

// RequestMetrics tracks one in-flight request between
// [Recorder.BeginRequest] and [Recorder.Finish].
type RequestMetrics struct {
	start  time.Time
	method string
}

// BeginRequest starts timing a request.
func (r *Recorder) BeginRequest(ctx context.Context, method string) *RequestMetrics {
	r.activeRequests.Add(ctx, 1, r.attrs())

	return &RequestMetrics{start: time.Now(), method: method}
}

// Finish records the outcome of a request. route is the matched template,
// never the raw path, to keep cardinality bounded.
func (r *Recorder) Finish(ctx context.Context, m *RequestMetrics, status int, route string) {
	if m == nil {
		return
	}
	r.activeRequests.Add(ctx, -1, r.attrs())

	opt := r.attrs(
		attribute.String("http.request.method", m.method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
		attribute.String("http.status_class", statusClass(status)),
	)
	r.requestCount.Add(ctx, 1, opt)
	r.requestTime.Record(ctx, time.Since(m.start).Seconds(), opt)
}

// RecordDecodeFailure counts a request whose resource failed to decode.
func (r *Recorder) RecordDecodeFailure(ctx context.Context, resource string) {
	r.decodeFailures.Add(ctx, 1, r.attrs(attribute.String("resource", resource)))
}

// RecordTask counts a loop group task by outcome.
func (r *Recorder) RecordTask(ctx context.Context, group, outcome string) {
	r.tasks.Add(ctx, 1, r.attrs(
		attribute.String("group", group),
		attribute.String("outcome", outcome),
	))
}

// AddActiveTasks adjusts the number of running tasks of group.
func (r *Recorder) AddActiveTasks(ctx context.Context, group string, delta int64) {
	r.activeTasks.Add(ctx, delta, r.attrs(attribute.String("group", group)))
}

// IncrementCounter adds one to a named application counter, creating it on
// first use. Names follow OpenTelemetry conventions and may not use the
// prefixes of the built-in instruments.
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue) error {
	counter, err := r.counter(name)
	if err != nil {
		r.emitError("Failed to record custom metric", "metric", name, "error", err)
		return err
	}
	counter.Add(ctx, 1, r.attrs(attributes...))

	return nil
}

func (r *Recorder) counter(name string) (metric.Int64Counter, error) {
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if c, ok := r.customCounters[name]; ok {
		return c, nil
	}
	if len(r.customCounters) >= maxCustomMetrics {
		return nil, fmt.Errorf("%w: cannot create %q (limit %d)", ErrLimitReached, name, maxCustomMetrics)
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %q: %w", name, err)
	}
	r.customCounters[name] = c

	return c, nil
}

func validateMetricName(name string) error {
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrInvalidMetricName, len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricName, name)
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("%w: %q uses reserved prefix %q", ErrInvalidMetricName, name, prefix)
		}
	}

	return nil
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}

	return strconv.Itoa(status/100) + "xx"
}
