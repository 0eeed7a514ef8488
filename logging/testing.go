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

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// LogEntry represents a parsed log entry for testing.
type LogEntry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// SyncBuffer is a [bytes.Buffer] guarded by a mutex, so loggers used from
// several goroutines can share it with the test that inspects it.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// Bytes returns a copy of the buffered data.
func (b *SyncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return bytes.Clone(b.buf.Bytes())
}

// String returns the buffered data as a string.
func (b *SyncBuffer) String() string {
	return string(b.Bytes())
}

// Reset empties the buffer.
func (b *SyncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// ParseJSONLogEntries parses newline delimited JSON log records.
func ParseJSONLogEntries(data []byte) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return nil, err
		}

		le := LogEntry{Attrs: make(map[string]any)}
		le.Message, _ = raw["msg"].(string)
		le.Level, _ = raw["level"].(string)
		for k, v := range raw {
			if k != "time" && k != "level" && k != "msg" {
				le.Attrs[k] = v
			}
		}
		entries = append(entries, le)
	}

	return entries, scanner.Err()
}

// TestHelper provides utilities for testing code that logs.
type TestHelper struct {
	Logger *Logger
	Buffer *SyncBuffer
}

// NewTestHelper creates a [TestHelper] with in-memory JSON logging at debug level.
// Additional [Option] values are applied after the defaults.
func NewTestHelper(t testing.TB, opts ...Option) *TestHelper {
	t.Helper()

	buf := &SyncBuffer{}
	all := append([]Option{
		WithJSONHandler(),
		WithOutput(buf),
		WithLevel(LevelDebug),
	}, opts...)

	logger, err := New(all...)
	require.NoError(t, err)

	return &TestHelper{Logger: logger, Buffer: buf}
}

// Logs returns all parsed log entries.
func (th *TestHelper) Logs() ([]LogEntry, error) {
	return ParseJSONLogEntries(th.Buffer.Bytes())
}

// LastLog returns the most recent log entry.
func (th *TestHelper) LastLog() (*LogEntry, error) {
	entries, err := th.Logs()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no log entries found")
	}

	return &entries[len(entries)-1], nil
}

// ContainsLog checks if any log entry has the given message.
func (th *TestHelper) ContainsLog(msg string) bool {
	entries, err := th.Logs()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Message == msg {
			return true
		}
	}

	return false
}

// ContainsAttr checks if any log entry carries key with a value printing as value.
// JSON numbers are compared after conversion from float64.
func (th *TestHelper) ContainsAttr(key string, value any) bool {
	entries, err := th.Logs()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry.Attrs[key]; ok && attrEqual(v, value) {
			return true
		}
	}

	return false
}

// CountLevel returns the number of log entries at the given level.
func (th *TestHelper) CountLevel(level string) int {
	entries, err := th.Logs()
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.Level == level {
			count++
		}
	}

	return count
}

// Reset clears the buffer.
func (th *TestHelper) Reset() {
	th.Buffer.Reset()
}

// AssertLog fails the test unless an entry with level, msg and all attrs exists.
func (th *TestHelper) AssertLog(t testing.TB, level, msg string, attrs map[string]any) {
	t.Helper()

	entries, err := th.Logs()
	require.NoError(t, err, "failed to parse logs")

	for _, entry := range entries {
		if entry.Level != level || entry.Message != msg {
			continue
		}
		match := true
		for k, want := range attrs {
			got, ok := entry.Attrs[k]
			if !ok || !attrEqual(got, want) {
				match = false
				break
			}
		}
		if match {
			return
		}
	}

	require.Fail(t, "log entry not found", "level=%s msg=%s attrs=%v", level, msg, attrs)
}

func attrEqual(actual, expected any) bool {
	if f, ok := actual.(float64); ok {
		switch e := expected.(type) {
		case int:
			return int(f) == e
		case int64:
			return int64(f) == e
		case float64:
			return f == e
		}
	}

	return fmt.Sprint(actual) == fmt.Sprint(expected)
}
