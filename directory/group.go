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

	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// GroupMatch selects which group tag of an endpoint a group filter compares.
type GroupMatch int

const (
	// MatchAssignedGroup compares the group the endpoint currently works in.
	MatchAssignedGroup GroupMatch = iota
	// MatchDeclaredGroup compares the group the endpoint was deployed for.
	MatchDeclaredGroup
)

// String implements fmt.Stringer.
func (m GroupMatch) String() string {
	if m == MatchDeclaredGroup {
		return "declared"
	}
	return "assigned"
}

func (m GroupMatch) groupOf(e registry.Endpoint) int {
	if m == MatchDeclaredGroup {
		return e.DeclaredGroup
	}
	return e.AssignedGroup
}

func inGroups(eps []registry.Endpoint, mode GroupMatch, groups []int) []registry.Endpoint {
	return filter(eps, func(e registry.Endpoint) bool {
		g := mode.groupOf(e)
		for _, want := range groups {
			if g == want {
				return true
			}
		}
		return false
	})
}

// ResolveInGroup returns the endpoints of id in the group of the requester ip.
// An ip without group degrades to ResolveAll.
func (d *Directory) ResolveInGroup(id, ip string, mode GroupMatch, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	v := d.view()
	g, err := d.topo.GroupOf(ip)
	if err != nil {
		o.trace.step("group_of", 0, 0, ip)
		o.trace.degrade(ReasonTopologyMiss)
		return v.all(id).copy()
	}
	return v.inGroups(id, []int{g}, mode, o.trace)
}

// ResolveInGroups is ResolveInGroup for a set of acceptable groups.
func (d *Directory) ResolveInGroups(id string, groups []int, mode GroupMatch, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	return d.view().inGroups(id, groups, mode, o.trace)
}

// inGroups tries the requested groups, then everything.
func (v view) inGroups(id string, groups []int, mode GroupMatch, tr *Trace) Result {
	all := v.all(id)
	if !all.Found {
		return all
	}
	act := inGroups(all.Active, mode, groups)
	tr.step("group", len(all.Active), len(act), fmt.Sprintf("%s=%v", mode, groups))
	if len(act) > 0 {
		return Result{Active: act, Inactive: inGroups(all.Inactive, mode, groups), Found: true}.copy()
	}
	return fallback(all, nil, inGroups(all.Inactive, mode, groups), tr)
}
