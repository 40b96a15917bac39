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

package audit_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-registry/audit"
	"trpc.group/trpc-go/trpc-registry/audit/mockaudit"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/plugin"
)

func TestNewRecord(t *testing.T) {
	r := audit.NewRecord("find_object_by_id", "svc.Echo")
	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), r.Time, time.Second)
	assert.NotEqual(t, r.ID, audit.NewRecord("x", "y").ID)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := audit.NewLogSink(log.NewZapLogFromCore(core, zap.NewAtomicLevelAt(zapcore.InfoLevel)))
	r := audit.NewRecord("find_object_by_id_in_same_group", "svc.Echo")
	r.CallerIP = "10.0.0.1"
	r.Active = 2
	r.Degraded = []string{"topology_miss", "empty_filter"}
	r.Trace = "group_of(0->0 10.0.0.1)"
	require.NoError(t, s.Write(r))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "group_of(0->0 10.0.0.1)", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "svc.Echo", fields["service"])
	assert.Equal(t, "10.0.0.1", fields["caller"])
	assert.Equal(t, int64(2), fields["active"])
	assert.Equal(t, "topology_miss,empty_filter", fields["degraded"])
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []*audit.Record
}

func (s *blockingSink) Write(r *audit.Record) error {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, r)
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) Close() error { return nil }

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestAsyncSinkDropsWhenSaturated(t *testing.T) {
	inner := &blockingSink{release: make(chan struct{})}
	s, err := audit.NewAsyncSink(inner, 1)
	require.NoError(t, err)

	require.NoError(t, s.Write(audit.NewRecord("a", "svc")))
	assert.Eventually(t, func() bool {
		return errors.Is(s.Write(audit.NewRecord("b", "svc")), audit.ErrDropped)
	}, time.Second, 5*time.Millisecond)

	close(inner.release)
	assert.Eventually(t, func() bool { return inner.count() >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
}

func TestAsyncSinkForwards(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	inner := mockaudit.NewMockSink(ctrl)
	done := make(chan struct{})
	r := audit.NewRecord("find_object_by_id", "svc.Echo")
	inner.EXPECT().Write(r).DoAndReturn(func(*audit.Record) error {
		close(done)
		return errors.New("disk full")
	})
	inner.EXPECT().Close().Return(nil)

	s, err := audit.NewAsyncSink(inner, 4)
	require.NoError(t, err)
	require.NoError(t, s.Write(r))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("record not forwarded")
	}
	require.NoError(t, s.Close())
}

func TestDefaultSink(t *testing.T) {
	require.NoError(t, audit.Default().Write(audit.NewRecord("a", "b")))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := mockaudit.NewMockSink(ctrl)
	audit.SetDefault(m)
	defer audit.SetDefault(nil)
	assert.Equal(t, m, audit.Default())
}

func TestPluginSetup(t *testing.T) {
	dir := t.TempDir()
	var cfg plugin.Config
	require.NoError(t, yaml.Unmarshal([]byte(`
audit:
  log:
    log_path: `+dir+`
    filename: query.log
    pool_size: -1
`), &cfg))
	closeFn, err := cfg.SetupClosables()
	require.NoError(t, err)
	_, ok := audit.Default().(*audit.LogSink)
	assert.True(t, ok)
	require.NoError(t, audit.Default().Write(audit.NewRecord("find_object_by_id", "svc.Echo")))
	require.NoError(t, closeFn())
	_, ok = audit.Default().(*audit.LogSink)
	assert.False(t, ok)
}
