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
)

// ITimer is the interface that emits timer metrics.
type ITimer interface {
	// Record records the duration since the last reset, and resets the start time.
	Record() time.Duration
	// RecordDuration records duration into the timer, and resets the start time.
	RecordDuration(duration time.Duration)
	// Reset resets the start time.
	Reset()
}

type timer struct {
	name  string
	mu    sync.Mutex
	start time.Time
}

// Record records the duration since the start time.
func (t *timer) Record() time.Duration {
	t.mu.Lock()
	d := time.Since(t.start)
	t.start = time.Now()
	t.mu.Unlock()
	report(t.name, float64(d), PolicyTimer)
	return d
}

// RecordDuration records duration.
func (t *timer) RecordDuration(d time.Duration) {
	t.Reset()
	report(t.name, float64(d), PolicyTimer)
}

// Reset resets the start time.
func (t *timer) Reset() {
	t.mu.Lock()
	t.start = time.Now()
	t.mu.Unlock()
}
