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

package engine_test

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/net/http2"

	"rivaas.dev/restkit/engine"
)

func listen() net.Listener {
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	return ln
}

var _ = Describe("Engine Lifecycle", func() {
	var (
		e       *engine.Engine
		baseURL string
	)

	start := func(h http.Handler, opts ...engine.Option) {
		var err error
		e, err = engine.New(h, opts...)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.State()).To(Equal(engine.StateNew))

		Expect(e.Serve(listen())).To(Succeed())
		Expect(e.State()).To(Equal(engine.StateRunning))
		baseURL = fmt.Sprintf("http://%s", e.Addr())
	}

	AfterEach(func() {
		if e != nil {
			_ = e.Stop(0, 1000)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.Wait(ctx)
		}
	})

	It("serves requests on the child group", func() {
		start(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}))

		resp, err := http.Get(baseURL + "/")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("ok"))
	})

	It("moves through Stopping to Stopped", func() {
		start(http.NotFoundHandler())

		Expect(e.Stop(0, 1000)).To(Succeed())
		Expect(e.State()).To(BeElementOf(engine.StateStopping, engine.StateStopped))
		Eventually(e.Done()).WithTimeout(5 * time.Second).Should(BeClosed())
		Expect(e.State()).To(Equal(engine.StateStopped))
		Expect(e.Wait(context.Background())).To(Succeed())

		Expect(e.Serve(listen())).To(MatchError(engine.ErrAlreadyStarted))
	})

	It("drains in-flight requests within the grace period", func() {
		started := make(chan struct{})
		var finished atomic.Bool
		start(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			close(started)
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			w.WriteHeader(http.StatusAccepted)
		}))

		status := make(chan int, 1)
		go func() {
			defer GinkgoRecover()
			resp, err := http.Get(baseURL + "/slow")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			status <- resp.StatusCode
		}()

		Eventually(started).WithTimeout(2 * time.Second).Should(BeClosed())
		Expect(e.Stop(2000, 5000)).To(Succeed())

		Eventually(status).WithTimeout(5 * time.Second).Should(Receive(Equal(http.StatusAccepted)))
		Expect(finished.Load()).To(BeTrue())
		Expect(e.Wait(context.Background())).To(Succeed())
	})

	It("cancels request contexts after the grace period", func() {
		started := make(chan struct{})
		cancelled := make(chan struct{})
		start(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
			close(cancelled)
		}))

		go func() {
			resp, err := http.Get(baseURL + "/hang")
			if err == nil {
				_ = resp.Body.Close()
			}
		}()

		Eventually(started).WithTimeout(2 * time.Second).Should(BeClosed())
		Expect(e.Stop(20, 2000)).To(Succeed())
		Eventually(cancelled).WithTimeout(2 * time.Second).Should(BeClosed())
		Eventually(e.Done()).WithTimeout(5 * time.Second).Should(BeClosed())
	})

	It("refuses connections once stopped", func() {
		start(http.NotFoundHandler())
		Expect(e.Stop(0, 1000)).To(Succeed())
		Eventually(e.Done()).WithTimeout(5 * time.Second).Should(BeClosed())

		_, err := http.Get(baseURL + "/")
		Expect(err).To(HaveOccurred())
	})

	It("speaks HTTP/2 over cleartext when enabled", func() {
		start(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, r.Proto)
		}), engine.WithH2C(true))

		client := &http.Client{Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, network, addr)
			},
		}}
		resp, err := client.Get(baseURL + "/")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("HTTP/2.0"))
	})
})

//nolint:paralleltest // Ginkgo test suite manages its own parallelization
func TestEngineLifecycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Engine Lifecycle Suite")
}
