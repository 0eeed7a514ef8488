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

package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"rivaas.dev/restkit/app"
	"rivaas.dev/restkit/engine"
	"rivaas.dev/restkit/logging"
	"rivaas.dev/restkit/router"
)

// syncBuffer guards a bytes.Buffer written by the Run goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

var _ = Describe("App Lifecycle", func() {
	var (
		a      *app.App
		ctx    context.Context
		cancel context.CancelFunc
		ready  chan struct{}
		runErr chan error
		events *eventLog
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		ready = make(chan struct{})
		runErr = make(chan error, 1)
		events = &eventLog{}
	})

	AfterEach(func() {
		cancel()
	})

	run := func() string {
		a.OnReady(func() { close(ready) })
		go func() { runErr <- a.Run(ctx, "127.0.0.1:0") }()
		Eventually(ready, 2*time.Second).Should(BeClosed())

		return fmt.Sprintf("http://%s", a.Engine().Addr())
	}

	get := func(url string) (int, string) {
		resp, err := http.Get(url) //nolint:noctx // test helper
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		return resp.StatusCode, string(body)
	}

	Context("with a running app", func() {
		var banner *syncBuffer

		BeforeEach(func() {
			banner = &syncBuffer{}
			a = app.MustNew(
				app.WithServiceName("catalogue"),
				app.WithLogger(logging.Noop()),
				app.WithBannerOutput(banner),
				app.WithServerConfig(
					app.WithShutdownGrace(500*time.Millisecond),
					app.WithShutdownTimeout(2*time.Second),
				),
			)
			a.GET("/articles/{id}", func(c *router.Context) {
				_ = c.String(http.StatusOK, "article "+c.Param("id"))
			})
		})

		It("serves routes and reports readiness", func() {
			base := run()

			status, body := get(base + "/articles/7")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal("article 7"))

			status, _ = get(base + "/readyz")
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(a.Engine().State()).To(Equal(engine.StateRunning))

			cancel()
			Eventually(runErr, 5*time.Second).Should(Receive(BeNil()))
			Expect(a.Engine().State()).To(Equal(engine.StateStopped))
		})

		It("prints the banner with the route table", func() {
			run()

			out := banner.String()
			Expect(out).To(ContainSubstring("Address:"))
			Expect(out).To(ContainSubstring("127.0.0.1:"))
			Expect(out).To(ContainSubstring("Disabled"))
			Expect(out).To(ContainSubstring("/articles/{id}"))
		})

		It("rejects a second Run", func() {
			run()
			Expect(a.Run(ctx, "127.0.0.1:0")).To(MatchError(app.ErrAlreadyRunning))
		})

		It("refuses hook registration while running", func() {
			run()
			Expect(func() { a.OnStop(func() {}) }).To(Panic())
		})

		It("waits for in-flight requests during the grace period", func() {
			started := make(chan struct{})
			a.GET("/slow", func(c *router.Context) {
				close(started)
				time.Sleep(200 * time.Millisecond)
				_ = c.String(http.StatusOK, "done")
			})
			base := run()

			result := make(chan int, 1)
			go func() {
				defer GinkgoRecover()
				status, _ := get(base + "/slow")
				result <- status
			}()
			Eventually(started, time.Second).Should(BeClosed())

			cancel()
			Eventually(result, 3*time.Second).Should(Receive(Equal(http.StatusOK)))
			Eventually(runErr, 5*time.Second).Should(Receive(BeNil()))
		})
	})

	It("runs hooks in lifecycle order", func() {
		a = app.MustNew(app.WithLogger(logging.Noop()), app.WithoutBanner())
		a.OnStart(func(context.Context) error { events.add("start"); return nil })
		a.OnShutdown(func(context.Context) { events.add("shutdown-1") })
		a.OnShutdown(func(ctx context.Context) {
			_, hasDeadline := ctx.Deadline()
			events.add(fmt.Sprintf("shutdown-2 deadline=%t", hasDeadline))
		})
		a.OnStop(func() { events.add("stop-1") })
		a.OnStop(func() { panic("ignored") })
		a.OnStop(func() { events.add("stop-2") })

		run()
		Expect(events.list()).To(Equal([]string{"start"}))

		cancel()
		Eventually(runErr, 5*time.Second).Should(Receive(BeNil()))
		Expect(events.list()).To(Equal([]string{"start", "shutdown-2 deadline=true", "shutdown-1", "stop-1", "stop-2"}))
	})

	It("aborts Run when an OnStart hook fails", func() {
		boom := errors.New("database unreachable")
		a = app.MustNew(app.WithLogger(logging.Noop()), app.WithoutBanner())
		a.OnStart(func(context.Context) error { return boom })

		err := a.Run(ctx, "127.0.0.1:0")
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("OnStart hook 0 failed"))
		Expect(a.Engine().State()).To(Equal(engine.StateNew))
	})

	It("runs again after an OnStart hook fails", func() {
		boom := errors.New("database unreachable")
		attempts := 0
		a = app.MustNew(app.WithLogger(logging.Noop()), app.WithoutBanner())
		a.OnStart(func(context.Context) error {
			attempts++
			if attempts == 1 {
				return boom
			}

			return nil
		})

		Expect(a.Run(ctx, "127.0.0.1:0")).To(MatchError(boom))

		url := run()
		status, _ := get(url + "/healthz")
		Expect(status).To(Equal(http.StatusOK))
		cancel()
		Eventually(runErr, 5*time.Second).Should(Receive(BeNil()))
		Expect(attempts).To(Equal(2))
	})

	It("fails when the address cannot be bound", func() {
		a = app.MustNew(app.WithLogger(logging.Noop()), app.WithoutBanner())
		Expect(a.Run(ctx, "256.0.0.1:0")).To(MatchError(ContainSubstring("failed to start engine")))
		Expect(a.Run(ctx, "256.0.0.1:0")).To(MatchError(ContainSubstring("failed to start engine")))
	})
})

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

func TestAppLifecycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "App Lifecycle Suite")
}
