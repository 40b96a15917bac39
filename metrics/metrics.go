//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package metrics defines the counters, gauges, timers and histograms a registry
// node reports, and fans every sample out to the registered sinks.
// Metric names are dotted, such as "directory.resolve.find_object_by_id".
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Metric names reported by the registry node.
const (
	ResolvePrefix      = "directory.resolve."
	FallbackPrefix     = "directory.fallback."
	RefreshOK          = "directory.refresh.ok"
	RefreshFail        = "directory.refresh.fail"
	RefreshLatency     = "directory.refresh.latency"
	ActiveEndpoints    = "directory.endpoints.active"
	InactiveEndpoints  = "directory.endpoints.inactive"
	AuditDropped       = "audit.dropped"
	TopologyReloadOK   = "topology.reload.ok"
	TopologyReloadFail = "topology.reload.fail"
)

var (
	sinksMu sync.RWMutex
	sinks   = map[string]Sink{}

	countersMu sync.RWMutex
	counters   = map[string]ICounter{}

	gaugesMu sync.RWMutex
	gauges   = map[string]IGauge{}

	timersMu sync.RWMutex
	timers   = map[string]ITimer{}

	histogramsMu sync.RWMutex
	histograms   = map[string]*histogram{}
)

// RegisterMetricsSink registers a Sink. Histograms created before the sink are
// registered to it when it implements HistogramSink.
func RegisterMetricsSink(sink Sink) {
	sinksMu.Lock()
	sinks[sink.Name()] = sink
	sinksMu.Unlock()
	hs, ok := sink.(HistogramSink)
	if !ok {
		return
	}
	histogramsMu.RLock()
	defer histogramsMu.RUnlock()
	for _, h := range histograms {
		hs.Register(h.name, HistogramOption{BucketBounds: h.spec})
	}
}

// UnregisterMetricsSink removes the sink named name.
func UnregisterMetricsSink(name string) {
	sinksMu.Lock()
	delete(sinks, name)
	sinksMu.Unlock()
}

// GetMetricsSink gets a Sink by name.
func GetMetricsSink(name string) (Sink, bool) {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	sink, ok := sinks[name]
	return sink, ok
}

func currentSinks() []Sink {
	sinksMu.RLock()
	defer sinksMu.RUnlock()
	if len(sinks) == 0 {
		return nil
	}
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, s)
	}
	return out
}

// Counter creates or gets the counter named name.
func Counter(name string) ICounter {
	countersMu.RLock()
	c, ok := counters[name]
	countersMu.RUnlock()
	if ok {
		return c
	}
	countersMu.Lock()
	defer countersMu.Unlock()
	if c, ok = counters[name]; ok {
		return c
	}
	c = &counter{name: name}
	counters[name] = c
	return c
}

// Gauge creates or gets the gauge named name.
func Gauge(name string) IGauge {
	gaugesMu.RLock()
	g, ok := gauges[name]
	gaugesMu.RUnlock()
	if ok {
		return g
	}
	gaugesMu.Lock()
	defer gaugesMu.Unlock()
	if g, ok = gauges[name]; ok {
		return g
	}
	g = &gauge{name: name}
	gauges[name] = g
	return g
}

// Timer creates or gets the timer named name.
func Timer(name string) ITimer {
	timersMu.RLock()
	t, ok := timers[name]
	timersMu.RUnlock()
	if ok {
		return t
	}
	timersMu.Lock()
	defer timersMu.Unlock()
	if t, ok = timers[name]; ok {
		return t
	}
	t = &timer{name: name, start: time.Now()}
	timers[name] = t
	return t
}

// NewTimer creates or gets the timer named name and resets its start time.
func NewTimer(name string) ITimer {
	t := Timer(name)
	t.Reset()
	return t
}

// Histogram creates or gets the histogram named name. The buckets of an
// existing histogram are kept.
func Histogram(name string, buckets BucketBounds) IHistogram {
	histogramsMu.RLock()
	h, ok := histograms[name]
	histogramsMu.RUnlock()
	if ok {
		return h
	}

	histogramsMu.Lock()
	if h, ok = histograms[name]; ok {
		histogramsMu.Unlock()
		return h
	}
	h = newHistogram(name, buckets)
	histograms[name] = h
	histogramsMu.Unlock()

	// sinksMu is never taken while histogramsMu is held for writing.
	for _, s := range currentSinks() {
		if hs, ok := s.(HistogramSink); ok {
			hs.Register(name, HistogramOption{BucketBounds: buckets})
		}
	}
	return h
}

// IncrCounter increments the counter named key by value.
func IncrCounter(key string, value float64) {
	Counter(key).IncrBy(value)
}

// SetGauge sets the gauge named key to value.
func SetGauge(key string, value float64) {
	Gauge(key).Set(value)
}

// RecordTimer records duration into the timer named key.
func RecordTimer(key string, duration time.Duration) {
	Timer(key).RecordDuration(duration)
}

// AddSample adds value to the histogram named key.
func AddSample(key string, buckets BucketBounds, value float64) {
	Histogram(key, buckets).AddSample(value)
}

// Report reports rec to every sink. Sink errors are aggregated.
func Report(rec Record) error {
	var result *multierror.Error
	for _, s := range currentSinks() {
		if err := s.Report(rec); err != nil {
			result = multierror.Append(result, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return result.ErrorOrNil()
}

func report(name string, value float64, policy Policy) {
	ss := currentSinks()
	if len(ss) == 0 {
		return
	}
	rec := NewSingleDimensionMetrics(name, value, policy)
	for _, s := range ss {
		_ = s.Report(rec)
	}
}
