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
	"fmt"
)

// ResolveInPriorityChain walks the fallback ladder of the requester's group:
// the group itself, then each chain entry by ascending rank, then everything.
// The first stage with an active endpoint wins.
// Chain stages compare the declared group of endpoints.
func (d *Directory) ResolveInPriorityChain(id, ip string, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	tr := o.trace
	v := d.view()
	g, err := d.topo.GroupOf(ip)
	if err != nil {
		tr.step("group_of", 0, 0, ip)
		tr.degrade(ReasonTopologyMiss)
		return v.all(id).copy()
	}
	all := v.all(id)
	if !all.Found {
		return all
	}

	act := inGroups(all.Active, MatchDeclaredGroup, []int{g})
	tr.step("own_group", len(all.Active), len(act), fmt.Sprintf("g=%d", g))
	if len(act) > 0 {
		return Result{Active: act, Inactive: inGroups(all.Inactive, MatchDeclaredGroup, []int{g}), Found: true}.copy()
	}
	// Ranks are unique within a chain and the chain is sorted by rank.
	for _, entry := range d.topo.PriorityChain(g) {
		act = inGroups(all.Active, MatchDeclaredGroup, entry.TargetGroups)
		tr.step("priority", len(all.Active), len(act), fmt.Sprintf("rank=%d groups=%v", entry.Rank, entry.TargetGroups))
		if len(act) > 0 {
			return Result{
				Active:   act,
				Inactive: inGroups(all.Inactive, MatchDeclaredGroup, entry.TargetGroups),
				Found:    true,
			}.copy()
		}
	}
	return fallback(all, nil, inGroups(all.Inactive, MatchDeclaredGroup, []int{g}), tr)
}
