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
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"trpc.group/trpc-go/trpc-registry/log"
)

// NewConsoleSink creates a sink that logs every record at debug level and keeps
// running totals, used when no monitor system is configured.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

// ConsoleSink defines the console sink.
type ConsoleSink struct {
	mu       sync.RWMutex
	counters map[string]float64
	gauges   map[string]float64
}

// Name returns console sink name.
func (c *ConsoleSink) Name() string {
	return "console"
}

// Report reports a record.
func (c *ConsoleSink) Report(rec Record) error {
	if len(rec.Dimensions) > 0 {
		buf, err := jsoniter.MarshalToString(rec)
		if err != nil {
			return err
		}
		log.Debugf("metrics multi-dimension = %s", buf)
		return nil
	}
	for _, m := range rec.Metrics {
		switch m.Policy {
		case PolicySUM:
			c.mu.Lock()
			c.counters[m.Name] += m.Value
			c.mu.Unlock()
			log.Debugf("metrics counter[%s] += %v", m.Name, m.Value)
		case PolicySET:
			c.mu.Lock()
			c.gauges[m.Name] = m.Value
			c.mu.Unlock()
			log.Debugf("metrics gauge[%s] = %v", m.Name, m.Value)
		case PolicyTimer:
			log.Debugf("metrics timer[%s] = %v", m.Name, time.Duration(m.Value))
		case PolicyHistogram:
			log.Debugf("metrics histogram[%s] sample %v", m.Name, m.Value)
		default:
		}
	}
	return nil
}

// CounterValue returns the running total of a counter.
func (c *ConsoleSink) CounterValue(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// GaugeValue returns the last value of a gauge.
func (c *ConsoleSink) GaugeValue(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[name]
}
