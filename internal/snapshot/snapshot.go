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

// Package snapshot provides a versioned container with wait-free reads and a
// single serialized writer that replaces the whole value.
package snapshot

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Snapshot is one published generation. It must not be modified after Publish.
type Snapshot[T any] struct {
	Gen         uint64
	Data        T
	PublishedAt time.Time
}

// Store holds the current Snapshot of one table.
type Store[T any] struct {
	cur atomic.Pointer[Snapshot[T]]
	gen atomic.Uint64
	mu  sync.Mutex // serializes writers
}

// New creates a Store whose generation 0 holds initial.
func New[T any](initial T) *Store[T] {
	s := &Store[T]{}
	s.cur.Store(&Snapshot[T]{Data: initial, PublishedAt: time.Now()})
	return s
}

// Current returns the published snapshot. The result stays valid and unchanged
// for as long as the caller holds it.
func (s *Store[T]) Current() *Snapshot[T] {
	return s.cur.Load()
}

// Publish makes data the visible generation. data must be fully built and never
// modified afterwards.
func (s *Store[T]) Publish(data T) *Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishLocked(data)
}

// Update builds the next generation from the current one. build must return a new
// value instead of modifying cur. Nothing is published when build fails.
func (s *Store[T]) Update(build func(cur T) (T, error)) (*Snapshot[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := build(s.cur.Load().Data)
	if err != nil {
		return nil, err
	}
	return s.publishLocked(next), nil
}

func (s *Store[T]) publishLocked(data T) *Snapshot[T] {
	snap := &Snapshot[T]{
		Gen:         s.gen.Inc(),
		Data:        data,
		PublishedAt: time.Now(),
	}
	s.cur.Store(snap)
	return snap
}
