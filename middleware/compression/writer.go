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

package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// compressWriter buffers up to the minimum size before deciding whether
// to compress, then streams through a pooled encoder.
type compressWriter struct {
	http.ResponseWriter

	encoding string
	pool     *sync.Pool
	cfg      *config
	writer   io.WriteCloser
	buf      []byte

	status      int
	wroteHeader bool
	headerSent  bool
	decided     bool
	compress    bool
}

func newCompressWriter(w http.ResponseWriter, encoding string, pool *sync.Pool, cfg *config) *compressWriter {
	return &compressWriter{
		ResponseWriter: w,
		encoding:       encoding,
		pool:           pool,
		cfg:            cfg,
		status:         http.StatusOK,
	}
}

// WriteHeader records the status. Responses that can never be compressed
// are passed through at once; the rest wait for the first body bytes.
func (cw *compressWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	cw.status = code

	h := cw.Header()
	if skipStatus(code) || h.Get("Content-Encoding") != "" || skipContentType(h.Get("Content-Type"), cw.cfg.excludeContentTypes) {
		cw.decided = true
		cw.sendHeader()
	}
}

func (cw *compressWriter) Write(p []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.decided {
		if cw.compress {
			return cw.writer.Write(p)
		}

		return cw.ResponseWriter.Write(p)
	}

	cw.buf = append(cw.buf, p...)
	if len(cw.buf) < cw.cfg.minSize {
		return len(p), nil
	}

	cw.decided = true
	cw.compress = true
	cw.start()
	if err := cw.flushBuffer(cw.writer); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Flush sends what is buffered. An undecided response goes out
// uncompressed so streaming handlers are not held back by the threshold.
func (cw *compressWriter) Flush() {
	if !cw.decided {
		cw.decided = true
		cw.sendHeader()
		_ = cw.flushBuffer(cw.ResponseWriter)
	}
	if cw.compress {
		switch w := cw.writer.(type) {
		case *gzip.Writer:
			_ = w.Flush()
		case *brotli.Writer:
			_ = w.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// Close finishes the response: a body below the threshold is written as is,
// a compressed stream is closed and its encoder returned to the pool.
func (cw *compressWriter) Close() error {
	if !cw.decided {
		cw.decided = true
		if cw.wroteHeader {
			cw.sendHeader()
		}

		return cw.flushBuffer(cw.ResponseWriter)
	}
	if !cw.compress || cw.writer == nil {
		return nil
	}

	err := cw.writer.Close()
	switch w := cw.writer.(type) {
	case *gzip.Writer:
		w.Reset(io.Discard)
	case *brotli.Writer:
		w.Reset(io.Discard)
	}
	cw.pool.Put(cw.writer)
	cw.writer = nil

	return err
}

func (cw *compressWriter) start() {
	h := cw.Header()
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(cw.buf))
	}
	h.Del("Content-Length")
	h.Set("Content-Encoding", cw.encoding)
	h.Add("Vary", "Accept-Encoding")
	cw.sendHeader()

	switch w := cw.pool.Get().(type) {
	case *gzip.Writer:
		w.Reset(cw.ResponseWriter)
		cw.writer = w
	case *brotli.Writer:
		w.Reset(cw.ResponseWriter)
		cw.writer = w
	}
}

func (cw *compressWriter) sendHeader() {
	if cw.headerSent {
		return
	}
	cw.headerSent = true
	cw.ResponseWriter.WriteHeader(cw.status)
}

func (cw *compressWriter) flushBuffer(w io.Writer) error {
	if len(cw.buf) == 0 {
		return nil
	}
	_, err := w.Write(cw.buf)
	cw.buf = nil

	return err
}

func skipStatus(code int) bool {
	return code == http.StatusNoContent ||
		code == http.StatusNotModified ||
		code == http.StatusPartialContent
}

func skipContentType(ct string, excludes []string) bool {
	if ct == "" {
		return false
	}

	ct = strings.ToLower(ct)
	if strings.Contains(ct, "text/event-stream") ||
		strings.Contains(ct, "application/grpc") ||
		strings.Contains(ct, "application/octet-stream") {
		return true
	}
	for _, excluded := range excludes {
		if strings.Contains(ct, strings.ToLower(excluded)) {
			return true
		}
	}

	return false
}
