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

package audit

import (
	"errors"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
)

// ErrDropped is returned by AsyncSink.Write when every worker is busy.
var ErrDropped = errors.New("audit: record dropped, sink saturated")

// AsyncSink hands records to an inner sink on a bounded goroutine pool.
// Records arriving while the pool is saturated are dropped and counted.
type AsyncSink struct {
	inner Sink
	pool  *ants.PoolWithFunc
}

// NewAsyncSink creates an AsyncSink with size workers.
func NewAsyncSink(inner Sink, size int) (*AsyncSink, error) {
	s := &AsyncSink{inner: inner}
	pool, err := ants.NewPoolWithFunc(size, func(arg interface{}) {
		r, ok := arg.(*Record)
		if !ok {
			return
		}
		if err := s.inner.Write(r); err != nil {
			log.Tracef("audit write %s error: %v", r.ID, err)
		}
	}, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Write implements Sink.
func (s *AsyncSink) Write(r *Record) error {
	if err := s.pool.Invoke(r); err != nil {
		metrics.IncrCounter(metrics.AuditDropped, 1)
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrDropped
		}
		return err
	}
	return nil
}

// Close releases the pool and closes the inner sink. Records still in flight may be lost.
func (s *AsyncSink) Close() error {
	s.pool.Release()
	return s.inner.Close()
}
