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

// Package audit records one line per directory query: which variant was asked,
// by whom, and what came back.
package audit

//go:generate mockgen -source=audit.go -destination=mockaudit/audit_mock.go -package=mockaudit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one audited query.
type Record struct {
	ID        string        `json:"id"`
	Time      time.Time     `json:"time"`
	Op        string        `json:"op"`
	ServiceID string        `json:"service_id"`
	CallerIP  string        `json:"caller_ip,omitempty"`
	Station   string        `json:"station,omitempty"`
	SetID     string        `json:"set_id,omitempty"`
	Code      int32         `json:"code"`
	Active    int           `json:"active"`
	Inactive  int           `json:"inactive"`
	Found     bool          `json:"found"`
	Degraded  []string      `json:"degraded,omitempty"`
	Trace     string        `json:"trace,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// NewRecord creates a record stamped with a fresh id and the current time.
func NewRecord(op, serviceID string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Time:      time.Now(),
		Op:        op,
		ServiceID: serviceID,
	}
}

// Sink receives audit records. Write must not block the query path for long.
type Sink interface {
	Write(r *Record) error
	Close() error
}

var (
	mu          sync.RWMutex
	defaultSink Sink = noopSink{}
)

// SetDefault sets the sink used by Default.
func SetDefault(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	if s == nil {
		s = noopSink{}
	}
	defaultSink = s
}

// Default returns the sink set up by the audit plugin, a no-op sink otherwise.
func Default() Sink {
	mu.RLock()
	defer mu.RUnlock()
	return defaultSink
}

type noopSink struct{}

func (noopSink) Write(*Record) error { return nil }

func (noopSink) Close() error { return nil }
