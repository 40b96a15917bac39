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

package source_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/source"
	"trpc.group/trpc-go/trpc-registry/source/mocksource"
)

const echo = "svc.Echo"

func ep(port int) registry.Endpoint {
	return registry.Endpoint{Host: "10.1.0.1", Port: port, Transport: registry.TransportTCP}
}

func TestRefreshAppliesAndKeepsLastKnownGood(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	src := mocksource.NewMockSource(ctrl)
	src.EXPECT().Name().Return("mock").AnyTimes()
	gomock.InOrder(
		src.EXPECT().Load(gomock.Any(), true).Return(&directory.Update{
			Full:     true,
			Active:   directory.Table{echo: {ep(1), ep(2)}},
			Revision: 7,
		}, nil),
		src.EXPECT().Load(gomock.Any(), false).Return(nil, errors.New("connection refused")),
	)

	var health []healthcheck.Status
	dir := directory.New()
	r := source.NewRefresher(dir, src, source.WithHealthUpdate(func(s healthcheck.Status) {
		health = append(health, s)
	}))
	assert.False(t, r.Ready())

	require.NoError(t, r.Refresh(context.Background(), true))
	assert.True(t, r.Ready())
	assert.Equal(t, []healthcheck.Status{healthcheck.Serving}, health)
	before := dir.Stats()

	err := r.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnavailable))
	assert.Equal(t, errs.RetUnavailable, errs.CodeOf(err))
	assert.Equal(t, before.Active, dir.Stats().Active)
	assert.Equal(t, []registry.Endpoint{ep(1), ep(2)}, dir.Resolve(echo))

	st := r.Status()
	assert.Equal(t, "mock", st.Source)
	assert.Equal(t, int64(7), st.Revision)
	assert.Contains(t, st.LastError, "connection refused")
	assert.False(t, st.LastFull.IsZero())
}

type recordingSource struct {
	mu     sync.Mutex
	fulls  []bool
	fail   map[int]bool
	notify func()
	calls  chan struct{}
}

func (s *recordingSource) Name() string { return "recording" }

func (s *recordingSource) Load(_ context.Context, full bool) (*directory.Update, error) {
	s.mu.Lock()
	n := len(s.fulls)
	s.fulls = append(s.fulls, full)
	s.mu.Unlock()
	defer func() { s.calls <- struct{}{} }()
	if s.fail[n] {
		return nil, errors.New("down")
	}
	return &directory.Update{Full: full, Active: directory.Table{echo: {ep(n)}}}, nil
}

func (s *recordingSource) Notify(onChange func()) {
	s.mu.Lock()
	s.notify = onChange
	s.mu.Unlock()
}

func (s *recordingSource) loads() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.fulls...)
}

func runUntil(t *testing.T, r *source.Refresher, src *recordingSource, n int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Run(ctx) }()
	for i := 0; i < n; i++ {
		select {
		case <-src.calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d loads", i)
		}
	}
	cancel()
	go func() {
		for range src.calls {
		}
	}()
	require.NoError(t, <-done)
}

func TestRunFullRefreshEvery(t *testing.T) {
	src := &recordingSource{calls: make(chan struct{})}
	r := source.NewRefresher(directory.New(), src,
		source.WithInterval(time.Millisecond), source.WithFullRefreshEvery(3))
	runUntil(t, r, src, 5)
	assert.Equal(t, []bool{true, false, false, true, false}, src.loads()[:5])
}

func TestRunRetriesFailedFullLoad(t *testing.T) {
	src := &recordingSource{calls: make(chan struct{}), fail: map[int]bool{0: true}}
	dir := directory.New()
	r := source.NewRefresher(dir, src,
		source.WithInterval(time.Millisecond), source.WithFullRefreshEvery(0))
	runUntil(t, r, src, 3)
	assert.Equal(t, []bool{true, true, false}, src.loads()[:3])
	assert.True(t, r.Ready())
}

func TestNotifierWakesRun(t *testing.T) {
	src := &recordingSource{calls: make(chan struct{})}
	r := source.NewRefresher(directory.New(), src,
		source.WithInterval(time.Hour), source.WithFullRefreshEvery(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Run(ctx) }()
	<-src.calls

	src.mu.Lock()
	notify := src.notify
	src.mu.Unlock()
	require.NotNil(t, notify)
	notify()
	select {
	case <-src.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("notify did not wake the refresher")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []bool{true, true}, src.loads())
}

func TestTrigger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	src := mocksource.NewMockSource(ctrl)
	src.EXPECT().Name().Return("mock").AnyTimes()
	src.EXPECT().Load(gomock.Any(), true).Return(&directory.Update{
		Full:     true,
		Inactive: directory.Table{echo: {ep(9)}},
	}, nil)

	dir := directory.New()
	r := source.NewRefresher(dir, src)
	require.NoError(t, r.Trigger(context.Background()))
	assert.Equal(t, []registry.Endpoint{ep(9)}, dir.ResolveAll(echo).Inactive)
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	src := mocksource.NewMockSource(ctrl)
	source.Register("test-registry", src)
	assert.Equal(t, src, source.Get("test-registry"))
	assert.Nil(t, source.Get("missing"))
}
