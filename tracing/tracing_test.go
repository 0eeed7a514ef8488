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

//go:build !integration

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	tr, err := New()
	require.NoError(t, err)
	assert.Equal(t, NoopProvider, tr.Provider())
	assert.Equal(t, "restkit", tr.ServiceName())
	assert.IsType(t, noop.TracerProvider{}, tr.TracerProvider())
	require.NoError(t, tr.ForceFlush(context.Background()))
	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"conflicting providers", []Option{WithStdout(), WithOTLPHTTP("http://localhost:4318")}, ErrConflictingProviders},
		{"empty service name", []Option{WithServiceName("")}, ErrEmptyServiceName},
		{"sample rate above one", []Option{WithSampleRate(1.5)}, ErrInvalidSampleRate},
		{"negative sample rate", []Option{WithSampleRate(-0.1)}, ErrInvalidSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_InvalidOTLPHTTPEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(WithOTLPHTTP("localhost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid OTLP endpoint")
}

func TestNew_OTLPExportersStartWithoutCollector(t *testing.T) {
	t.Parallel()

	for _, opt := range []Option{
		WithOTLPHTTP("http://127.0.0.1:4318/v1/traces"),
		WithOTLP("127.0.0.1:4317", OTLPInsecure()),
	} {
		tr, err := New(opt)
		require.NoError(t, err)
		assert.NotNil(t, tr.sdkProvider)

		// Nothing was recorded, so shutdown has nothing to send.
		require.NoError(t, tr.Shutdown(context.Background()))
	}
}

func TestStdoutProvider_WritesSpans(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr, err := New(
		WithServiceName("catalogue"),
		WithStdout(),
		func(t *Tracer) { t.output = &buf },
	)
	require.NoError(t, err)
	assert.Equal(t, StdoutProvider, tr.Provider())

	_, span := tr.TracerProvider().Tracer("test").Start(context.Background(), "GET /articles")
	span.End()
	require.NoError(t, tr.Shutdown(context.Background()))
	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "GET /articles"`)
	assert.Contains(t, buf.String(), "catalogue")
}

func TestSampleRate_Zero(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr, err := New(WithStdout(), WithSampleRate(0), func(t *Tracer) { t.output = &buf })
	require.NoError(t, err)

	_, span := tr.TracerProvider().Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, tr.Shutdown(context.Background()))
	assert.NotContains(t, buf.String(), "dropped")
}

func TestTestingTracer_RecordsSpans(t *testing.T) {
	t.Parallel()

	tr, spans := TestingTracer(t)
	_, span := tr.TracerProvider().Tracer("test").Start(context.Background(), "work")
	span.End()

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "work", ended[0].Name())

	// Custom providers belong to the caller.
	require.NoError(t, tr.Shutdown(context.Background()))
	_, span = tr.TracerProvider().Tracer("test").Start(context.Background(), "after")
	span.End()
	assert.Len(t, spans.Ended(), 2)
}
