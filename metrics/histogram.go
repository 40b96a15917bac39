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

package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// IHistogram is the interface that emits histogram metrics.
type IHistogram interface {
	// AddSample records a sample into the histogram.
	AddSample(value float64)
	// Buckets returns a copy of the bucket counts.
	Buckets() []Bucket
}

// HistogramSink extends Sink with named bucket configurations.
// Sinks that do not implement it use their own default buckets.
type HistogramSink interface {
	Register(name string, o HistogramOption)
}

// HistogramOption is the configuration of a registered histogram.
type HistogramOption struct {
	BucketBounds BucketBounds
}

// BucketBounds are the upper bounds of the histogram buckets.
type BucketBounds []float64

// NewValueBounds creates value bounds.
func NewValueBounds(bounds ...float64) BucketBounds {
	return bounds
}

// NewDurationBounds creates duration bounds.
func NewDurationBounds(durations ...time.Duration) BucketBounds {
	bounds := make(BucketBounds, 0, len(durations))
	for _, d := range durations {
		bounds = append(bounds, float64(d))
	}
	return bounds
}

func (b BucketBounds) sorted() []float64 {
	out := append([]float64(nil), b...)
	sort.Float64s(out)
	return out
}

// Bucket is one range of a histogram: (Lower, Upper].
type Bucket struct {
	Lower float64
	Upper float64
	Count uint64
	Sum   float64
}

type histogram struct {
	name   string
	spec   BucketBounds
	uppers []float64

	mu      sync.Mutex
	buckets []Bucket
}

const inf = math.MaxFloat64

func newHistogram(name string, bounds BucketBounds) *histogram {
	h := &histogram{name: name, spec: bounds}
	lower := -inf
	for _, upper := range bounds.sorted() {
		h.buckets = append(h.buckets, Bucket{Lower: lower, Upper: upper})
		h.uppers = append(h.uppers, upper)
		lower = upper
	}
	h.buckets = append(h.buckets, Bucket{Lower: lower, Upper: inf})
	h.uppers = append(h.uppers, inf)
	return h
}

// AddSample adds a sample.
func (h *histogram) AddSample(value float64) {
	idx := sort.SearchFloat64s(h.uppers, value)
	if idx == len(h.uppers) {
		idx--
	}
	h.mu.Lock()
	h.buckets[idx].Count++
	h.buckets[idx].Sum += value
	h.mu.Unlock()
	report(h.name, value, PolicyHistogram)
}

// Buckets returns a copy of the buckets.
func (h *histogram) Buckets() []Bucket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Bucket(nil), h.buckets...)
}
