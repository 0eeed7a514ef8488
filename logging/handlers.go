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
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[37m"
	colorWhite  = "\033[97m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

var consoleBuilderPool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// consoleHandler implements [slog.Handler] for colored, single line output
// meant for a developer's terminal. Use [JSONHandler] for log aggregation.
type consoleHandler struct {
	opts   *slog.HandlerOptions
	mu     *sync.Mutex
	output io.Writer
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &consoleHandler{
		opts:   opts,
		mu:     &sync.Mutex{},
		output: w,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}

	return level >= minLevel
}

// Handle formats and writes a log record.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	b := consoleBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer consoleBuilderPool.Put(b)

	b.WriteString(colorDim)
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteString(colorReset)
	b.WriteByte(' ')

	b.WriteString(levelColor(r.Level))
	b.WriteString(colorBold)
	fmt.Fprintf(b, "%-5s", r.Level.String())
	b.WriteString(colorReset)
	b.WriteByte(' ')

	b.WriteString(colorWhite)
	b.WriteString(r.Message)
	b.WriteString(colorReset)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		h.appendAttr(b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(b, prefix, a)
		return true
	})

	if h.opts.AddSource && r.PC != 0 {
		if src := recordSource(r.PC); src != "" {
			b.WriteString(" ")
			b.WriteString(colorGray)
			b.WriteString("(" + src + ")")
			b.WriteString(colorReset)
		}
	}

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())

	return err
}

// WithAttrs returns a new handler with additional attributes.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}

	return &clone
}

// WithGroup returns a new handler with a group name.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)

	return &clone
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	default:
		return colorBlue
	}
}

func (h *consoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(h.groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, key, ga)
		}

		return
	}

	b.WriteByte(' ')
	b.WriteString(colorGray)
	b.WriteString(key)
	b.WriteString(colorReset)
	b.WriteByte('=')

	switch v := a.Value.Any().(type) {
	case string:
		b.WriteString(v)
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(v, 10))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
	case time.Duration:
		b.WriteString(v.String())
	case time.Time:
		b.WriteString(v.Format(time.RFC3339))
	case error:
		b.WriteString(v.Error())
	default:
		b.WriteString(fmt.Sprint(v))
	}
}

// recordSource returns "file:line" for a pc, using only the base file name.
func recordSource(pc uintptr) string {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()
	if f.File == "" {
		return ""
	}

	return fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}
