// Copyright 2025 The fawa Authors
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

// Package metrics samples process resource usage into a pull-based
// Prometheus registry.
package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/fawa-io/filebox/pkg/fwlog"
)

// DefaultInterval is used when Start is given a non-positive interval.
const DefaultInterval = 5 * time.Second

const namespace = "custom"

// Sampler owns a registry of gauges and refreshes them on a timer.
type Sampler struct {
	registry *prometheus.Registry
	reader   ProcessReader
	now      func() time.Time

	cpuPercent  prometheus.Gauge
	heapUsed    prometheus.Gauge
	heapTotal   prometheus.Gauge
	external    prometheus.Gauge
	resident    prometheus.Gauge
	lag         prometheus.Gauge
	goroutines  prometheus.Gauge
	gcTotal     prometheus.Gauge
	versionInfo *prometheus.GaugeVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithProcessReader replaces the procfs-backed process reader.
func WithProcessReader(r ProcessReader) Option {
	return func(s *Sampler) {
		s.reader = r
	}
}

// WithRegistry registers the gauges on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Sampler) {
		s.registry = reg
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

// NewSampler registers every gauge and sets the version info gauge. No
// sampling happens until Start or Sample is called.
func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		registry: prometheus.NewRegistry(),
		reader:   procfsReader{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	f := promauto.With(s.registry)
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	s.cpuPercent = gauge("process", "cpu_usage_percent", "CPU time (user+system) since process start as a percentage of wall time.")
	s.heapUsed = gauge("process", "heap_used_bytes", "Bytes of allocated heap objects.")
	s.heapTotal = gauge("process", "heap_total_bytes", "Bytes of heap memory obtained from the OS.")
	s.external = gauge("process", "external_memory_bytes", "Bytes obtained from the OS outside the heap (stacks, runtime structures).")
	s.resident = gauge("process", "resident_memory_bytes", "Resident set size in bytes.")
	s.goroutines = gauge("process", "goroutines", "Number of live goroutines.")
	s.gcTotal = gauge("process", "gc_total", "Completed GC cycles since process start.")
	s.lag = gauge("scheduler", "lag_seconds", "Delay between scheduling a no-op goroutine and it running.")

	s.versionInfo = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "go_version_info",
		Help:      "Go runtime version, value is always 1.",
	}, []string{"version"})
	s.versionInfo.WithLabelValues(runtime.Version()).Set(1)

	s.requests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})
	s.requestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return s
}

// Registry exposes the underlying registry.
func (s *Sampler) Registry() *prometheus.Registry {
	return s.registry
}

// ObserveRequest records one served HTTP request.
func (s *Sampler) ObserveRequest(method, route string, code int, d time.Duration) {
	s.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	s.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Sample refreshes every gauge once. Runtime memory gauges are always
// updated; failures of the other sources are joined into the returned error.
func (s *Sampler) Sample(ctx context.Context) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.heapUsed.Set(float64(ms.HeapAlloc))
	s.heapTotal.Set(float64(ms.HeapSys))
	s.external.Set(float64(ms.Sys - ms.HeapSys))
	s.goroutines.Set(float64(runtime.NumGoroutine()))
	s.gcTotal.Set(float64(ms.NumGC))

	var errs []error
	if lag, err := measureSchedulerLag(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler lag: %w", err))
	} else {
		s.lag.Set(lag.Seconds())
	}

	if stat, err := s.reader.Read(); err != nil {
		errs = append(errs, fmt.Errorf("process stats: %w", err))
	} else {
		if elapsed := s.now().Sub(stat.StartTime).Seconds(); elapsed > 0 {
			s.cpuPercent.Set(stat.CPUSeconds / elapsed * 100)
		}
		s.resident.Set(float64(stat.ResidentBytes))
	}

	return errors.Join(errs...)
}

// measureSchedulerLag is the goroutine analogue of event loop lag.
func measureSchedulerLag(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	ran := make(chan time.Duration, 1)
	go func() {
		ran <- time.Since(start)
	}()

	select {
	case d := <-ran:
		return d, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Start begins sampling every interval in the background. The first sample
// is taken immediately. Calling Start on a running sampler does nothing.
func (s *Sampler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, interval, done)
	fwlog.Infof("Metrics sampling started with interval %v", interval)
}

func (s *Sampler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	s.sampleOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			fwlog.Errorf("Metrics sample panicked: %v", r)
		}
	}()
	if err := s.Sample(ctx); err != nil && ctx.Err() == nil {
		fwlog.Warnf("Metrics sample failed: %v", err)
	}
}

// Stop cancels the sampling loop and waits for it to exit. It is safe to
// call more than once.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	fwlog.Info("Metrics sampling stopped")
}

// Render returns the current value of every registered metric in the
// Prometheus text exposition format.
func (s *Sampler) Render() (string, error) {
	mfs, err := s.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}

// Handler serves the registry for scraping.
func (s *Sampler) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
