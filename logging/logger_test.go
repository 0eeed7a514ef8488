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

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ServiceAttributes(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t,
		WithServiceName("catalogue"),
		WithServiceVersion("v1.2.0"),
		WithEnvironment("staging"),
	)
	th.Logger.Info("hello", "user_id", 42)

	th.AssertLog(t, "INFO", "hello", map[string]any{
		"service": "catalogue",
		"version": "v1.2.0",
		"env":     "staging",
		"user_id": 42,
	})
	assert.Equal(t, "catalogue", th.Logger.ServiceName())
	assert.Equal(t, "v1.2.0", th.Logger.ServiceVersion())
	assert.Equal(t, "staging", th.Logger.Environment())
}

func TestNew_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(WithOutput(nil))
	require.Error(t, err)

	_, err = New(WithCustomLogger(nil))
	require.ErrorIs(t, err, ErrNilLogger)

	_, err = New(WithHandlerType("xml"))
	require.ErrorIs(t, err, ErrInvalidHandler)

	assert.Panics(t, func() { MustNew(WithHandlerType("xml")) })
}

func TestLogger_RedactsSensitiveKeys(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.Info("login", "password", "hunter2", "Token", "abc", "user", "ann")

	entry, err := th.LastLog()
	require.NoError(t, err)
	assert.Equal(t, "***REDACTED***", entry.Attrs["password"])
	assert.Equal(t, "***REDACTED***", entry.Attrs["Token"])
	assert.Equal(t, "ann", entry.Attrs["user"])
}

func TestLogger_ReplaceAttrRunsAfterRedaction(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == "user" {
			return slog.String("user", strings.ToUpper(a.Value.String()))
		}
		return a
	}))
	th.Logger.Info("x", "user", "ann")

	assert.True(t, th.ContainsAttr("user", "ANN"))
}

func TestLogger_Level(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithLevel(LevelWarn))
	th.Logger.Info("dropped")
	th.Logger.Warn("kept")
	assert.False(t, th.ContainsLog("dropped"))
	assert.True(t, th.ContainsLog("kept"))
}

func TestLogger_LogErrorAndDuration(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.LogError(nil, "ignored")
	th.Logger.LogError(errors.New("disk full"), "write failed", "path", "/tmp/x")
	th.Logger.LogDuration("request done", time.Now().Add(-50*time.Millisecond))

	assert.False(t, th.ContainsLog("ignored"))
	th.AssertLog(t, "ERROR", "write failed", map[string]any{"error": "disk full", "path": "/tmp/x"})

	entry, err := th.LastLog()
	require.NoError(t, err)
	ms, ok := entry.Attrs["duration_ms"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, ms, float64(50))
	assert.Equal(t, 1, th.CountLevel("ERROR"))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: " warn ", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "loud", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLevel)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsoleHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := MustNew(WithConsoleHandler(), WithOutput(&buf), WithServiceName("svc"))
	logger.WithGroup("http").Warn("slow request", "route", "/articles/{id}", "secret", "s3")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "slow request")
	assert.Contains(t, out, "service"+colorReset+"=svc")
	assert.Contains(t, out, "http.route"+colorReset+"=/articles/{id}")
	assert.Contains(t, out, "***REDACTED***")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	assert.False(t, Noop().Enabled(t.Context(), LevelError))
}
