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

package source

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
)

// Default refresh cadence.
const (
	DefaultInterval         = 60 * time.Second
	DefaultFullRefreshEvery = 10
)

// Refresher publishes the content of a Source into a Directory.
// A failed load leaves the published tables untouched.
type Refresher struct {
	dir       *directory.Directory
	src       Source
	interval  time.Duration
	fullEvery int
	health    func(healthcheck.Status)

	sf       singleflight.Group
	cycles   atomic.Int64
	needFull atomic.Bool
	ready    atomic.Bool
	wake     chan struct{}

	mu     sync.Mutex
	status Status
}

// Status describes the last refreshes, for the admin api.
type Status struct {
	Source      string    `json:"source"`
	Cycles      int64     `json:"cycles"`
	LastSuccess time.Time `json:"last_success"`
	LastFull    time.Time `json:"last_full"`
	LastError   string    `json:"last_error,omitempty"`
	Revision    int64     `json:"revision"`
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFullRefreshEvery makes every n-th cycle a full load. Zero or less only
// loads everything on the first cycle and after a failed full load.
func WithFullRefreshEvery(n int) Option {
	return func(r *Refresher) {
		r.fullEvery = n
	}
}

// WithHealthUpdate reports Serving after the first successful load.
func WithHealthUpdate(update func(healthcheck.Status)) Option {
	return func(r *Refresher) {
		r.health = update
	}
}

// NewRefresher creates a Refresher loading src into dir.
func NewRefresher(dir *directory.Directory, src Source, opts ...Option) *Refresher {
	r := &Refresher{
		dir:       dir,
		src:       src,
		interval:  DefaultInterval,
		fullEvery: DefaultFullRefreshEvery,
		wake:      make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(r)
	}
	r.status.Source = src.Name()
	return r
}

// Run refreshes until ctx is done. Failed cycles are retried with an
// exponential backoff capped at the interval.
func (r *Refresher) Run(ctx context.Context) error {
	if n, ok := r.src.(Notifier); ok {
		n.Notify(r.Notify)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval / 20
	b.MaxInterval = r.interval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		wait := r.interval
		if err := r.Refresh(ctx, r.nextFull()); err != nil {
			wait = b.NextBackOff()
		} else {
			b.Reset()
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-r.wake:
			t.Stop()
			r.needFull.Store(true)
		case <-t.C:
		}
	}
}

// Notify asks Run for a full refresh without waiting for the interval.
func (r *Refresher) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Trigger runs a full refresh now. Concurrent triggers share one load.
func (r *Refresher) Trigger(ctx context.Context) error {
	return r.Refresh(ctx, true)
}

// Ready reports whether a load ever succeeded.
func (r *Refresher) Ready() bool {
	return r.ready.Load()
}

// Status returns the refresh status.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.Cycles = r.cycles.Load()
	return st
}

func (r *Refresher) nextFull() bool {
	c := r.cycles.Inc() - 1
	return c == 0 || r.needFull.Load() || (r.fullEvery > 0 && c%int64(r.fullEvery) == 0)
}

// Refresh loads from the source once and publishes the result.
func (r *Refresher) Refresh(ctx context.Context, full bool) error {
	key := "incremental"
	if full {
		key = "full"
	}
	_, err, _ := r.sf.Do(key, func() (interface{}, error) {
		return nil, r.refresh(ctx, full)
	})
	return err
}

func (r *Refresher) refresh(ctx context.Context, full bool) error {
	start := time.Now()
	u, err := r.src.Load(ctx, full)
	if err != nil {
		if full {
			r.needFull.Store(true)
		}
		metrics.IncrCounter(metrics.RefreshFail, 1)
		err = errs.Wrapf(err, errs.RetUnavailable, "load from %s", r.src.Name())
		r.mu.Lock()
		r.status.LastError = err.Error()
		r.mu.Unlock()
		log.Warnf("directory refresh from %s failed, keeping current tables: %v", r.src.Name(), err)
		return err
	}
	if u == nil {
		u = &directory.Update{}
	}
	r.dir.ApplyUpdate(u)
	if u.Full {
		r.needFull.Store(false)
	}

	st := r.dir.Stats()
	metrics.SetGauge(metrics.ActiveEndpoints, float64(st.Active.Endpoints))
	metrics.SetGauge(metrics.InactiveEndpoints, float64(st.Inactive.Endpoints))
	metrics.IncrCounter(metrics.RefreshOK, 1)
	metrics.RecordTimer(metrics.RefreshLatency, time.Since(start))

	now := time.Now()
	r.mu.Lock()
	r.status.LastSuccess = now
	r.status.LastError = ""
	if u.Full {
		r.status.LastFull = now
	}
	if u.Revision != 0 {
		r.status.Revision = u.Revision
	}
	r.mu.Unlock()

	if !r.ready.Swap(true) {
		log.Infof("directory loaded from %s: %d active, %d inactive endpoints",
			r.src.Name(), st.Active.Endpoints, st.Inactive.Endpoints)
		if r.health != nil {
			r.health(healthcheck.Serving)
		}
	}
	log.Debugf("directory refresh from %s full:%t ids:%d/%d/%d cost:%s", r.src.Name(), u.Full,
		len(u.Active), len(u.Inactive), len(u.Sets), time.Since(start))
	return nil
}
