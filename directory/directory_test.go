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

package directory

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/topology"
)

const echo = "svc.Echo"

const (
	ipGroup1   = "10.0.0.1"
	ipGroup5   = "10.0.5.1"
	ipUnmapped = "192.168.9.9"
)

func ep(port, group int) registry.Endpoint {
	return registry.Endpoint{
		Host:          "10.1.0.1",
		Port:          port,
		Transport:     registry.TransportTCP,
		AssignedGroup: group,
		DeclaredGroup: group,
	}
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	idx := topology.NewIndex()
	require.NoError(t, idx.Publish(topology.Config{Groups: []topology.GroupConfig{
		{ID: 1, Name: "g1", IPs: []string{ipGroup1}, Priority: []topology.PriorityConfig{
			{Rank: 1, Station: "sz", Groups: []int{2, 3}},
			{Rank: 2, Station: "sh", Groups: []int{4}},
		}},
		{ID: 2, Name: "g2"},
		{ID: 3, Name: "g3"},
		{ID: 4, Name: "g4"},
		{ID: 5, Name: "g5", IPs: []string{"10.0.5.*"}},
	}}))
	return New(WithTopology(idx))
}

func diffResult(t *testing.T, want, got Result) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveInGroupFiltersByCallerGroup(t *testing.T) {
	d := newTestDirectory(t)
	a, b, c := ep(1, 1), ep(2, 1), ep(3, 2)
	d.ReplaceOrMergeActive(Table{echo: {a, b, c}}, true)

	tr := &Trace{}
	got := d.ResolveInGroup(echo, ipGroup1, MatchAssignedGroup, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{a, b}, Found: true}, got)
	assert.Empty(t, tr.Degraded)

	tr = &Trace{}
	got = d.ResolveInGroup(echo, ipUnmapped, MatchAssignedGroup, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{a, b, c}, Found: true}, got)
	assert.Equal(t, []string{ReasonTopologyMiss}, tr.Degraded)
}

func TestGroupMatchMode(t *testing.T) {
	d := newTestDirectory(t)
	moving := ep(1, 1)
	moving.DeclaredGroup = 2
	other := ep(2, 2)
	d.ReplaceOrMergeActive(Table{echo: {moving, other}}, true)

	got := d.ResolveInGroup(echo, ipGroup1, MatchAssignedGroup)
	assert.Equal(t, []registry.Endpoint{moving}, got.Active)
	got = d.ResolveInGroups(echo, []int{2}, MatchDeclaredGroup)
	assert.Equal(t, []registry.Endpoint{moving, other}, got.Active)
	got = d.ResolveInGroups(echo, []int{2}, MatchAssignedGroup)
	assert.Equal(t, []registry.Endpoint{other}, got.Active)
	assert.Equal(t, "declared", MatchDeclaredGroup.String())
}

func TestGroupMissFallsBackToEveryEndpoint(t *testing.T) {
	d := newTestDirectory(t)
	g2, plain, g3 := ep(1, 2), ep(2, registry.Ungrouped), ep(3, 3)
	plainDown := ep(4, registry.Ungrouped)
	d.ReplaceOrMergeActive(Table{echo: {g2, plain, g3}}, true)
	d.ReplaceOrMergeInactive(Table{echo: {plainDown}}, true)
	full := Result{
		Active:   []registry.Endpoint{g2, plain, g3},
		Inactive: []registry.Endpoint{plainDown},
		Found:    true,
	}

	tr := &Trace{}
	diffResult(t, full, d.ResolveInGroup(echo, ipGroup5, MatchAssignedGroup, WithTrace(tr)))
	assert.Equal(t, []string{ReasonEmptyFilter}, tr.Degraded)
	assert.Equal(t, "group(3->0 assigned=[5]) degraded:empty_filter", tr.String())

	tr = &Trace{}
	diffResult(t, full, d.ResolveInPriorityChain(echo, ipGroup5, WithTrace(tr)))
	assert.Equal(t, []string{ReasonEmptyFilter}, tr.Degraded)
}

func TestFallbackLaw(t *testing.T) {
	d := newTestDirectory(t)
	a, b := ep(1, 2), ep(2, 3)
	down := ep(3, 1)
	d.ReplaceOrMergeActive(Table{echo: {a, b}}, true)
	d.ReplaceOrMergeInactive(Table{echo: {down}}, true)
	full := Result{Active: []registry.Endpoint{a, b}, Inactive: []registry.Endpoint{down}, Found: true}

	ops := map[string]func(opts ...ResolveOption) Result{
		"group": func(opts ...ResolveOption) Result {
			return d.ResolveInGroup(echo, ipGroup1, MatchAssignedGroup, opts...)
		},
		"groups": func(opts ...ResolveOption) Result {
			return d.ResolveInGroups(echo, []int{4}, MatchDeclaredGroup, opts...)
		},
		"station": func(opts ...ResolveOption) Result {
			return d.ResolveInStation(echo, "bj", opts...)
		},
		"priority": func(opts ...ResolveOption) Result {
			return d.ResolveInPriorityChain(echo, ipGroup5, opts...)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			tr := &Trace{}
			diffResult(t, full, op(WithTrace(tr)))
			assert.Contains(t, tr.Degraded, ReasonEmptyFilter)
		})
	}

	d.InsertSetRecord(echo, "setA", "sz", "1", ep(9, 0), true)
	tr := &Trace{}
	diffResult(t, full, d.ResolveInSet(echo, []string{"setA.sh.1"}, WithTrace(tr)))
	assert.Equal(t, []string{ReasonEmptyFilter}, tr.Degraded)
}

func TestFallbackKeepsFilteredInactiveWithoutActive(t *testing.T) {
	d := newTestDirectory(t)
	down1, down2 := ep(1, 2), ep(2, 3)
	down1.Station = "bj"
	d.ReplaceOrMergeInactive(Table{echo: {down1, down2}}, true)

	tr := &Trace{}
	got := d.ResolveInStation(echo, "bj", WithTrace(tr))
	diffResult(t, Result{Inactive: []registry.Endpoint{down1}, Found: true}, got)
	assert.Empty(t, tr.Degraded)

	got = d.ResolveInStation(echo, "")
	diffResult(t, Result{Found: true}, got)
}

func TestResolveInSetSplitsActiveAndInactive(t *testing.T) {
	d := newTestDirectory(t)
	up, down := ep(1, 0), ep(2, 0)
	d.ReplaceOrMergeSetPartition(SetTable{echo: {"setA": {
		{Area: "sz", Group: "1", Active: true, Endpoint: up},
		{Area: "sz", Group: "1", Active: false, Endpoint: down},
	}}}, true)

	got := d.ResolveInSet(echo, []string{"setA"})
	diffResult(t, Result{Active: []registry.Endpoint{up}, Inactive: []registry.Endpoint{down}, Found: true}, got)
}

func TestSetWildcardGroup(t *testing.T) {
	d := newTestDirectory(t)
	exact, wild, otherArea := ep(1, 0), ep(2, 0), ep(3, 0)
	d.ReplaceOrMergeSetPartition(SetTable{echo: {"app": {
		{Area: "sz", Group: "1", Active: true, Endpoint: exact},
		{Area: "sz", Group: "*", Active: true, Endpoint: wild},
		{Area: "sh", Group: "2", Active: true, Endpoint: otherArea},
	}}}, true)

	tests := []struct {
		set  string
		want []registry.Endpoint
	}{
		{"app.sz.1", []registry.Endpoint{exact}},
		{"app.sz.7", []registry.Endpoint{wild}},
		{"app.sz.*", []registry.Endpoint{exact, wild}},
		{"app.sz", []registry.Endpoint{exact, wild}},
		{"app.*.2", []registry.Endpoint{otherArea}},
		{"app", []registry.Endpoint{exact, wild, otherArea}},
	}
	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			got := d.ResolveInSet(echo, []string{tt.set})
			assert.Equal(t, tt.want, got.Active)
			assert.True(t, got.Found)
		})
	}

	got := d.ResolveInSet(echo, []string{"app.sz.1", "app.sh.2"})
	assert.Equal(t, []registry.Endpoint{exact, otherArea}, got.Active)
}

func TestSetDegrades(t *testing.T) {
	d := newTestDirectory(t)
	a := ep(1, 1)
	d.ReplaceOrMergeActive(Table{echo: {a}}, true)

	tr := &Trace{}
	got := d.ResolveInSet(echo, []string{"setA"}, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{a}, Found: true}, got)
	assert.Equal(t, []string{ReasonNoSetBucket}, tr.Degraded)

	tr = &Trace{}
	got = d.ResolveInSet(echo, []string{"*.x.y", ""}, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{a}, Found: true}, got)
	assert.Equal(t, []string{ReasonBadSet}, tr.Degraded)

	got = d.ResolveInSet("svc.Unknown", []string{"setA"})
	assert.False(t, got.Found)
}

func TestResolveInSetRecords(t *testing.T) {
	d := New()
	up, down, wild := ep(1, 0), ep(2, 0), ep(3, 0)
	recs := []SetRecord{
		{Area: "sz", Group: "1", Active: true, Endpoint: up},
		{Area: "sz", Group: "1", Endpoint: down},
		{Area: "sz", Group: "*", Active: true, Endpoint: wild},
	}
	got := d.ResolveInSetRecords("app.sz.1", recs)
	diffResult(t, Result{Active: []registry.Endpoint{up}, Inactive: []registry.Endpoint{down}, Found: true}, got)
	got = d.ResolveInSetRecords("app.sz.9", recs)
	diffResult(t, Result{Active: []registry.Endpoint{wild}, Found: true}, got)

	every := Result{Active: []registry.Endpoint{up, wild}, Inactive: []registry.Endpoint{down}, Found: true}
	tr := &Trace{}
	diffResult(t, every, d.ResolveInSetRecords("*.sz.1", recs, WithTrace(tr)))
	assert.Equal(t, []string{ReasonBadSet}, tr.Degraded)
	diffResult(t, Result{}, d.ResolveInSetRecords("app.sz.1", nil))
}

func TestResolveInSetRecordsFallsBackToEveryRecord(t *testing.T) {
	d := New()
	up := ep(1, 0)
	tr := &Trace{}
	got := d.ResolveInSetRecords("app.gz.1", []SetRecord{{Area: "sz", Group: "1", Active: true, Endpoint: up}}, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{up}, Found: true}, got)
	assert.Equal(t, []string{ReasonEmptyFilter}, tr.Degraded)
}

func TestResolveInSetSplitDescriptor(t *testing.T) {
	d := newTestDirectory(t)
	sz, sh := ep(1, 0), ep(2, 0)
	d.ReplaceOrMergeSetPartition(SetTable{echo: {"app": {
		{Area: "sz", Group: "1", Active: true, Endpoint: sz},
		{Area: "sh", Group: "2", Active: true, Endpoint: sh},
	}}}, true)

	tr := &Trace{}
	got := d.ResolveInSet(echo, []string{"app", "sz", "1"}, WithTrace(tr))
	diffResult(t, Result{Active: []registry.Endpoint{sz}, Found: true}, got)
	assert.Empty(t, tr.Degraded)

	got = d.ResolveInSet(echo, []string{"app", "sh"})
	assert.Equal(t, []registry.Endpoint{sh}, got.Active)
	got = d.ResolveInSet(echo, []string{"app.sz.1", "app.sh.2"})
	assert.Equal(t, []registry.Endpoint{sz, sh}, got.Active)
}

func TestPriorityChainSkipsEmptyRank(t *testing.T) {
	d := newTestDirectory(t)
	g4a, g4b := ep(1, 4), ep(2, 4)
	d.ReplaceOrMergeActive(Table{echo: {g4a, g4b}}, true)
	d.ReplaceOrMergeInactive(Table{echo: {ep(3, 4), ep(4, 5)}}, true)

	tr := &Trace{}
	got := d.ResolveInPriorityChain(echo, ipGroup1, WithTrace(tr))
	diffResult(t, Result{
		Active:   []registry.Endpoint{g4a, g4b},
		Inactive: []registry.Endpoint{ep(3, 4)},
		Found:    true,
	}, got)
	require.Len(t, tr.Steps, 3)
	assert.Equal(t, "own_group", tr.Steps[0].Filter)
	assert.Equal(t, "rank=1 groups=[2 3]", tr.Steps[1].Note)
	assert.Equal(t, 0, tr.Steps[1].After)
	assert.Equal(t, 2, tr.Steps[2].After)
	assert.Empty(t, tr.Degraded)
}

func TestPriorityChainOrder(t *testing.T) {
	d := newTestDirectory(t)
	own, g3, g4, plain := ep(1, 1), ep(2, 3), ep(3, 4), ep(4, 0)

	d.ReplaceOrMergeActive(Table{echo: {g4, g3, own, plain}}, true)
	assert.Equal(t, []registry.Endpoint{own}, d.ResolveInPriorityChain(echo, ipGroup1).Active)

	d.ReplaceOrMergeActive(Table{echo: {g4, g3, plain}}, true)
	assert.Equal(t, []registry.Endpoint{g3}, d.ResolveInPriorityChain(echo, ipGroup1).Active)

	d.ReplaceOrMergeActive(Table{echo: {plain}}, true)
	tr := &Trace{}
	assert.Equal(t, []registry.Endpoint{plain}, d.ResolveInPriorityChain(echo, ipGroup1, WithTrace(tr)).Active)
	assert.Equal(t, []string{ReasonEmptyFilter}, tr.Degraded)

	tr = &Trace{}
	d.ReplaceOrMergeActive(Table{echo: {g4, g3}}, true)
	got := d.ResolveInPriorityChain(echo, ipUnmapped, WithTrace(tr))
	assert.Equal(t, []registry.Endpoint{g4, g3}, got.Active)
	assert.Equal(t, []string{ReasonTopologyMiss}, tr.Degraded)
}

func TestStation(t *testing.T) {
	d := newTestDirectory(t)
	tagged := ep(1, 9)
	tagged.Station = "sh"
	inChain := ep(2, 4) // group 4 is a target of the "sh" entry.
	other := ep(3, 2)
	d.ReplaceOrMergeActive(Table{echo: {tagged, inChain, other}}, true)

	got := d.ResolveInStation(echo, "sh")
	assert.Equal(t, []registry.Endpoint{tagged, inChain}, got.Active)
	got = d.ResolveInStation(echo, "sz")
	assert.Equal(t, []registry.Endpoint{other}, got.Active)
}

func TestClearAllEmptiesEveryResolution(t *testing.T) {
	d := newTestDirectory(t)
	s := d.Seeder()
	s.AddActive(echo, 1)
	s.AddInactive(echo, 2)
	s.AddBySet("svc.Other", 3, "setA", "sz", "1")
	require.True(t, d.ResolveAll(echo).Found)

	d.ClearAll()
	for _, id := range []string{echo, "svc.Other", "svc.Never"} {
		for name, got := range map[string]Result{
			"all":      d.ResolveAll(id),
			"group":    d.ResolveInGroup(id, ipGroup1, MatchAssignedGroup),
			"priority": d.ResolveInPriorityChain(id, ipGroup1),
			"station":  d.ResolveInStation(id, "sz"),
			"set":      d.ResolveInSet(id, []string{"setA"}),
		} {
			assert.Empty(t, got.Active, "%s %s", id, name)
			assert.Empty(t, got.Inactive, "%s %s", id, name)
			assert.False(t, got.Found, "%s %s", id, name)
		}
		assert.Empty(t, d.Resolve(id))
	}

	s.AddActive(echo, 1)
	assert.True(t, d.ResolveAll(echo).Found)
}

func TestResolveAllMatchesResolve(t *testing.T) {
	d := newTestDirectory(t)
	d.ReplaceOrMergeActive(Table{echo: {ep(1, 1), ep(2, 2)}}, true)
	d.ReplaceOrMergeInactive(Table{echo: {ep(3, 1)}, "svc.Down": {ep(4, 1)}}, true)

	for _, id := range []string{echo, "svc.Down", "svc.Unknown"} {
		assert.Equal(t, d.Resolve(id), d.ResolveAll(id).Active, id)
	}
	down := d.ResolveAll("svc.Down")
	assert.True(t, down.Found)
	assert.Empty(t, down.Active)
	assert.False(t, d.ResolveAll("svc.Unknown").Found)
}

func TestDisjoint(t *testing.T) {
	d := New()
	a, b := ep(1, 1), ep(2, 1)
	d.ReplaceOrMergeActive(Table{echo: {a, b}}, true)
	d.ReplaceOrMergeInactive(Table{echo: {b}}, false)
	got := d.ResolveAll(echo)
	assert.Equal(t, []registry.Endpoint{a}, got.Active)
	assert.Equal(t, []registry.Endpoint{b}, got.Inactive)

	d.ReplaceOrMergeActive(Table{echo: {a, b}}, false)
	got = d.ResolveAll(echo)
	assert.Equal(t, []registry.Endpoint{a, b}, got.Active)
	assert.Empty(t, got.Inactive)

	// one batch listing b twice ends with b inactive.
	d.ApplyUpdate(&Update{Active: Table{echo: {a, b}}, Inactive: Table{echo: {b}}})
	assertDisjoint(t, d)
	got = d.ResolveAll(echo)
	assert.Equal(t, []registry.Endpoint{a}, got.Active)
	assert.Equal(t, []registry.Endpoint{b}, got.Inactive)

	s := d.Seeder()
	s.AddActive("svc.Seed", 7)
	s.AddInactive("svc.Seed", 7)
	assertDisjoint(t, d)
	assert.Empty(t, d.Resolve("svc.Seed"))
}

func assertDisjoint(t *testing.T, d *Directory) {
	t.Helper()
	v := d.view()
	for id, act := range v.active {
		keys := map[string]bool{}
		for _, e := range act {
			keys[e.Key()] = true
		}
		for _, e := range v.inactive[id] {
			assert.False(t, keys[e.Key()], "%s: %s is both active and inactive", id, e.Key())
		}
	}
}

func TestMergeAndFullReplace(t *testing.T) {
	d := New()
	d.ReplaceOrMergeActive(Table{echo: {ep(1, 1)}, "svc.B": {ep(2, 1)}}, true)
	d.ReplaceOrMergeActive(Table{echo: {ep(3, 1)}}, false)
	assert.Equal(t, []registry.Endpoint{ep(3, 1)}, d.Resolve(echo))
	assert.Equal(t, []registry.Endpoint{ep(2, 1)}, d.Resolve("svc.B"))

	d.ReplaceOrMergeActive(Table{echo: nil}, false)
	assert.Empty(t, d.Resolve(echo))
	assert.True(t, d.ResolveAll(echo).Found)

	d.ReplaceOrMergeActive(Table{"svc.C": {ep(4, 1)}}, true)
	assert.False(t, d.ResolveAll("svc.B").Found)

	d.ReplaceOrMergeSetPartition(SetTable{echo: {"a": {{Area: "x", Group: "1", Active: true, Endpoint: ep(5, 0)}}}}, true)
	d.ReplaceOrMergeSetPartition(SetTable{"svc.B": {"b": nil}}, false)
	assert.True(t, d.ResolveAll(echo).Found)
	assert.True(t, d.ResolveAll("svc.B").Found)
	d.ApplyUpdate(&Update{Full: true})
	assert.False(t, d.ResolveAll(echo).Found)
	assert.False(t, d.ResolveAll("svc.C").Found)
	d.ApplyUpdate(nil)
}

func TestIdempotentPublish(t *testing.T) {
	d := newTestDirectory(t)
	u := &Update{
		Full:     true,
		Active:   Table{echo: {ep(1, 1), ep(2, 4)}, "svc.B": {ep(3, 0)}},
		Inactive: Table{echo: {ep(4, 1)}},
		Sets: SetTable{echo: {"setA": {
			{Area: "sz", Group: "1", Active: true, Endpoint: ep(5, 0)},
		}}},
	}
	query := func() []Result {
		var out []Result
		for _, id := range []string{echo, "svc.B", "svc.None"} {
			out = append(out,
				d.ResolveAll(id),
				d.ResolveInGroup(id, ipGroup1, MatchAssignedGroup),
				d.ResolveInPriorityChain(id, ipGroup1),
				d.ResolveInStation(id, "sh"),
				d.ResolveInSet(id, []string{"setA.sz.1"}),
			)
		}
		return out
	}
	d.ApplyUpdate(u)
	first, firstStats := query(), d.Stats()
	d.ApplyUpdate(u)
	second, secondStats := query(), d.Stats()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results changed after republishing (-first +second):\n%s", diff)
	}
	assert.Equal(t, firstStats.Active.Digest, secondStats.Active.Digest)
	assert.Equal(t, firstStats.Inactive.Digest, secondStats.Inactive.Digest)
	assert.Equal(t, firstStats.Sets.Digest, secondStats.Sets.Digest)
	assert.Greater(t, secondStats.Active.Gen, firstStats.Active.Gen)
}

func TestStats(t *testing.T) {
	d := newTestDirectory(t)
	empty := d.Stats()
	s := d.Seeder()
	s.AddActive(echo, 1)
	s.AddActive(echo, 2)
	s.AddBySet("svc.B", 3, "setA", "sz", "1")
	st := d.Stats()
	assert.Equal(t, 2, st.Active.IDs)
	assert.Equal(t, 3, st.Active.Endpoints)
	assert.Equal(t, 1, st.Sets.IDs)
	assert.Equal(t, 1, st.Sets.Endpoints)
	assert.NotEqual(t, empty.Active.Digest, st.Active.Digest)
	assert.Equal(t, 5, st.Topology.Groups)
}

func TestWeightTiersDoNotAffectFilters(t *testing.T) {
	d := newTestDirectory(t)
	s := d.Seeder()
	normal := s.AddActiveWeighted(echo, 1, registry.WeightTierNormal, "app.sz.1")
	elevated := s.AddActiveWeighted(echo, 2, registry.WeightTierElevated, "app.sz.1")
	down := s.AddInactiveWeighted(echo, 3, registry.WeightTierElevated, "app.sz")
	assert.Equal(t, 100, normal.Weight)
	assert.Equal(t, 200, elevated.Weight)

	got := d.ResolveInSet(echo, []string{"app.sz.1"})
	assert.Equal(t, []registry.Endpoint{normal, elevated}, got.Active)
	got = d.ResolveInSet(echo, []string{"app.sz.5"})
	assert.Equal(t, []registry.Endpoint{down}, got.Inactive)
	// no active record in the wildcard group, the active table is returned.
	assert.Equal(t, []registry.Endpoint{normal, elevated}, got.Active)
}

func TestAnnotateWeight(t *testing.T) {
	d := New()
	eps := []registry.Endpoint{ep(1, 1), ep(2, 1)}
	eps[0].Weight = 50
	load := LoadMetricFunc(func(e registry.Endpoint) (int, bool) {
		return e.Port * 10, e.Port == 1
	})
	got := d.AnnotateWeight(eps, load)
	assert.Equal(t, 10, got[0].Load)
	assert.Equal(t, 50, got[0].Weight)
	assert.Zero(t, got[1].Load)
	assert.Zero(t, eps[0].Load)
	assert.Equal(t, eps, d.AnnotateWeight(eps, nil))
}

func TestResultsAreCopies(t *testing.T) {
	d := New()
	d.ReplaceOrMergeActive(Table{echo: {ep(1, 1)}}, true)
	got := d.Resolve(echo)
	got[0].Port = 9999
	assert.Equal(t, 1, d.Resolve(echo)[0].Port)
}

// TestConcurrentResolve checks readers never see a half written active table
// while writers republish it.
func TestConcurrentResolve(t *testing.T) {
	d := newTestDirectory(t)
	build := func(gen int) Table {
		eps := make([]registry.Endpoint, 16)
		for i := range eps {
			eps[i] = ep(gen*100+i, 1)
		}
		return Table{echo: eps}
	}
	d.ReplaceOrMergeActive(build(0), true)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := d.ResolveInGroup(echo, ipGroup1, MatchAssignedGroup).Active
				if len(got) != 16 {
					t.Errorf("got %d endpoints", len(got))
					return
				}
				gen := got[0].Port / 100
				for _, e := range got {
					if e.Port/100 != gen {
						t.Errorf("mixed generations %d and %d", gen, e.Port/100)
						return
					}
				}
			}
		}()
	}
	for gen := 1; gen <= 200; gen++ {
		d.ReplaceOrMergeActive(build(gen), gen%2 == 0)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 200, d.Resolve(echo)[0].Port/100)
}
