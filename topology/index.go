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

package topology

import (
	"sort"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/internal/snapshot"
)

// Index serves the group table and the priority chains. Each lives in its own
// store, so a reader may see them from different generations.
type Index struct {
	groups *snapshot.Store[*Groups]
	chains *snapshot.Store[Chains]
}

// NewIndex creates an empty Index. Every ip misses until the first Publish.
func NewIndex() *Index {
	return &Index{
		groups: snapshot.New(emptyGroups()),
		chains: snapshot.New(Chains{}),
	}
}

// Publish validates cfg and republishes both tables. On error nothing changes.
func (x *Index) Publish(cfg Config) error {
	groups, chains, err := Build(cfg)
	if err != nil {
		return err
	}
	x.groups.Publish(groups)
	x.chains.Publish(chains)
	return nil
}

// Clear publishes empty tables.
func (x *Index) Clear() {
	x.groups.Publish(emptyGroups())
	x.chains.Publish(Chains{})
}

// GroupOf returns the group of ip. An exact rule wins over an a.b.c.* rule.
// Unparsable or unmapped addresses return errs.ErrTopologyMiss.
func (x *Index) GroupOf(ip string) (int, error) {
	v, ok := IPToUint32(ip)
	if !ok {
		return 0, errs.Wrapf(errs.ErrTopologyMiss, errs.RetTopologyMiss, "unparsable ip %q", ip)
	}
	id, ok := x.groups.Current().Data.lookup(v)
	if !ok {
		return 0, errs.Wrapf(errs.ErrTopologyMiss, errs.RetTopologyMiss, "ip %s has no group", ip)
	}
	return id, nil
}

// PriorityChain returns the rank ascending chain of groupID, possibly empty.
// The result must not be modified.
func (x *Index) PriorityChain(groupID int) []PriorityEntry {
	return x.chains.Current().Data[groupID]
}

// NameOf returns the display name of groupID, empty if unknown.
func (x *Index) NameOf(groupID int) string {
	return x.groups.Current().Data.names[groupID]
}

// GroupsInStation returns, sorted, the target groups of every chain entry labelled station.
func (x *Index) GroupsInStation(station string) []int {
	if station == "" {
		return nil
	}
	seen := map[int]bool{}
	for _, chain := range x.chains.Current().Data {
		for _, e := range chain {
			if e.Station != station {
				continue
			}
			for _, g := range e.TargetGroups {
				seen[g] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

// Stats describes the published topology.
type Stats struct {
	GroupsGen  uint64 `json:"groups_gen"`
	ChainsGen  uint64 `json:"chains_gen"`
	Groups     int    `json:"groups"`
	IPRules    int    `json:"ip_rules"`
	ChainCount int    `json:"chains"`
}

// Stats returns generation numbers and sizes of both tables.
func (x *Index) Stats() Stats {
	g, c := x.groups.Current(), x.chains.Current()
	return Stats{
		GroupsGen:  g.Gen,
		ChainsGen:  c.Gen,
		Groups:     len(g.Data.names),
		IPRules:    g.Data.Len(),
		ChainCount: len(c.Data),
	}
}
