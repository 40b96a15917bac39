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

// Policy is the aggregation policy of a metric.
type Policy int

// Aggregation policies.
const (
	PolicyNONE      Policy = 0 // undefined
	PolicySET       Policy = 1 // instantaneous value
	PolicySUM       Policy = 2 // summary
	PolicyAVG       Policy = 3 // average
	PolicyMAX       Policy = 4 // maximum
	PolicyMIN       Policy = 5 // minimum
	PolicyTimer     Policy = 7 // timer
	PolicyHistogram Policy = 8 // histogram
)

// Sink receives every reported record and forwards it to a monitor system.
type Sink interface {
	// Name returns the name of the monitor system.
	Name() string
	// Report reports a record to the monitor system.
	Report(rec Record) error
}

// Record is one report. A record without dimensions holds single dimension metrics.
type Record struct {
	Name       string
	Dimensions []*Dimension
	Metrics    []*Metrics
}

// Dimension is a label of a multi dimension record, such as op=find_object_by_id.
type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Metrics is one named value of a record.
type Metrics struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Policy Policy  `json:"policy"`
}

// NewMetrics creates a Metrics.
func NewMetrics(name string, value float64, policy Policy) *Metrics {
	return &Metrics{Name: name, Value: value, Policy: policy}
}

// NewSingleDimensionMetrics creates a record holding one metric.
func NewSingleDimensionMetrics(name string, value float64, policy Policy) Record {
	return Record{Metrics: []*Metrics{NewMetrics(name, value, policy)}}
}

// NewMultiDimensionMetrics creates a record with dimensions.
func NewMultiDimensionMetrics(name string, dimensions []*Dimension, metrics []*Metrics) Record {
	return Record{Name: name, Dimensions: dimensions, Metrics: metrics}
}

// ReportMultiDimensionMetrics reports a multi dimension record to every sink.
func ReportMultiDimensionMetrics(name string, dimensions []*Dimension, metrics []*Metrics) error {
	return Report(NewMultiDimensionMetrics(name, dimensions, metrics))
}
