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

// Package prometheus exports registry metrics to Prometheus.
package prometheus

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trpc.group/trpc-go/trpc-registry/metrics"
)

// Name is the sink name.
const Name = "prometheus"

// Sink maps every metric onto a Prometheus collector created on first use.
// Counters become counters, gauges and averages gauges, timers and histograms
// histograms. Multi dimension records become vectors labelled by their dimensions.
type Sink struct {
	namespace string
	reg       *prometheus.Registry

	mu         sync.Mutex
	collectors map[string]prometheus.Collector
	buckets    map[string][]float64
}

// NewSink creates a sink with its own registry. Metric names are prefixed with namespace.
func NewSink(namespace string) *Sink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return &Sink{
		namespace:  namespace,
		reg:        reg,
		collectors: make(map[string]prometheus.Collector),
		buckets:    make(map[string][]float64),
	}
}

// Name implements metrics.Sink.
func (s *Sink) Name() string {
	return Name
}

// Registry returns the Prometheus registry of the sink.
func (s *Sink) Registry() *prometheus.Registry {
	return s.reg
}

// Handler serves the registry in the Prometheus text format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}

// Register implements metrics.HistogramSink.
func (s *Sink) Register(name string, o metrics.HistogramOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[metricName(name)] = append([]float64(nil), o.BucketBounds...)
}

// Report implements metrics.Sink.
func (s *Sink) Report(rec metrics.Record) error {
	var names, values []string
	for _, d := range rec.Dimensions {
		names = append(names, metricName(d.Name))
		values = append(values, d.Value)
	}
	prefix := ""
	if rec.Name != "" {
		prefix = rec.Name + "."
	}
	for _, m := range rec.Metrics {
		if err := s.observe(metricName(prefix+m.Name), m, names, values); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) observe(name string, m *metrics.Metrics, labels, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collectors[name]
	if !ok {
		var err error
		if c, err = s.newCollector(name, m.Policy, labels); err != nil {
			return err
		}
		s.collectors[name] = c
	}
	switch v := c.(type) {
	case *prometheus.CounterVec:
		counter, err := v.GetMetricWithLabelValues(values...)
		if err != nil {
			return err
		}
		counter.Add(m.Value)
	case *prometheus.GaugeVec:
		gauge, err := v.GetMetricWithLabelValues(values...)
		if err != nil {
			return err
		}
		gauge.Set(m.Value)
	case *prometheus.HistogramVec:
		obs, err := v.GetMetricWithLabelValues(values...)
		if err != nil {
			return err
		}
		value := m.Value
		if m.Policy == metrics.PolicyTimer {
			value = time.Duration(m.Value).Seconds()
		}
		obs.Observe(value)
	}
	return nil
}

func (s *Sink) newCollector(name string, policy metrics.Policy, labels []string) (prometheus.Collector, error) {
	var c prometheus.Collector
	switch policy {
	case metrics.PolicySUM:
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      name + "_total",
			Help:      name,
		}, labels)
	case metrics.PolicyTimer:
		c = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      name + "_seconds",
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		}, labels)
	case metrics.PolicyHistogram:
		buckets := s.buckets[name]
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		c = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      name,
			Help:      name,
			Buckets:   buckets,
		}, labels)
	default:
		c = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      name,
			Help:      name,
		}, labels)
	}
	if err := s.reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// metricName turns "directory.resolve.any" into "directory_resolve_any".
func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(name)
}
