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

package registry

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/metrics"
	"trpc.group/trpc-go/trpc-registry/topology"
)

const topologyYAML = `
groups:
  - id: 1
    name: sz-1
    ips: ["10.0.0.1", "10.0.1.*"]
    priority:
      - {rank: 1, station: sh, groups: [2]}
  - id: 2
    name: sh-1
    ips: ["10.9.0.1"]
`

type statuses struct {
	mu   sync.Mutex
	list []healthcheck.Status
}

func (s *statuses) update(st healthcheck.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, st)
}

func (s *statuses) get() []healthcheck.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]healthcheck.Status(nil), s.list...)
}

func TestLoadTopology(t *testing.T) {
	path := writeConfig(t, "topology.yaml", topologyYAML)
	idx := topology.NewIndex()
	st := &statuses{}
	require.NoError(t, LoadTopology(TopologyConfig{Path: path}, idx, st.update))

	g, err := idx.GroupOf("10.0.1.7")
	require.NoError(t, err)
	assert.Equal(t, 1, g)
	assert.Equal(t, "sh-1", idx.NameOf(2))
	require.Len(t, idx.PriorityChain(1), 1)
	assert.Equal(t, []healthcheck.Status{healthcheck.Serving}, st.get())
}

func TestLoadTopologyWithoutPath(t *testing.T) {
	idx := topology.NewIndex()
	st := &statuses{}
	require.NoError(t, LoadTopology(TopologyConfig{}, idx, st.update))
	assert.Equal(t, []healthcheck.Status{healthcheck.Serving}, st.get())
	_, err := idx.GroupOf("10.0.0.1")
	assert.Equal(t, errs.RetTopologyMiss, errs.CodeOf(err))
	assert.NoError(t, LoadTopology(TopologyConfig{}, idx, nil))
}

func TestLoadTopologyInvalid(t *testing.T) {
	path := writeConfig(t, "topology.yaml", `
groups:
  - id: 1
    priority:
      - {rank: 1, groups: [2]}
      - {rank: 1, groups: [2]}
  - id: 2
`)
	st := &statuses{}
	err := LoadTopology(TopologyConfig{Path: path}, topology.NewIndex(), st.update)
	require.Error(t, err)
	assert.Equal(t, errs.RetConfigInvalid, errs.CodeOf(err))
	assert.Equal(t, []healthcheck.Status{healthcheck.NotServing}, st.get())
}

func TestTopologyWatch(t *testing.T) {
	counts := metrics.NewConsoleSink()
	metrics.RegisterMetricsSink(counts)
	defer metrics.UnregisterMetricsSink(counts.Name())

	path := writeConfig(t, "topology.yaml", topologyYAML)
	idx := topology.NewIndex()
	require.NoError(t, LoadTopology(TopologyConfig{Path: path, Watch: true}, idx, nil))
	assert.Equal(t, float64(1), counts.CounterValue(metrics.TopologyReloadOK))

	require.NoError(t, os.WriteFile(path, []byte("groups:\n  - {id: 3, ips: [\"10.0.0.1\"]}\n"), 0644))
	require.Eventually(t, func() bool {
		g, err := idx.GroupOf("10.0.0.1")
		return err == nil && g == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`
groups:
  - id: 4
    ips: ["10.0.0.1"]
    priority:
      - {rank: 1, groups: [99]}
`), 0644))
	require.Eventually(t, func() bool {
		return counts.CounterValue(metrics.TopologyReloadFail) > 0
	}, 5*time.Second, 20*time.Millisecond)
	g, err := idx.GroupOf("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 3, g, "a rejected change keeps the previous topology")
}

func TestLoadTopologySection(t *testing.T) {
	path := writeConfig(t, "infra.yaml", `
infra:
  topology:
    groups:
      - id: 5
        name: gz-1
        ips: ["10.5.0.*"]
      - id: "6"
        ips: ["10.6.0.1"]
`)
	idx := topology.NewIndex()
	require.NoError(t, LoadTopology(TopologyConfig{Path: path, Key: "infra.topology"}, idx, nil))
	g, err := idx.GroupOf("10.5.0.9")
	require.NoError(t, err)
	assert.Equal(t, 5, g)
	g, err = idx.GroupOf("10.6.0.1")
	require.NoError(t, err)
	assert.Equal(t, 6, g)

	err = LoadTopology(TopologyConfig{Path: path, Key: "infra.missing"}, topology.NewIndex(), nil)
	assert.Equal(t, errs.RetConfigInvalid, errs.CodeOf(err))
}
