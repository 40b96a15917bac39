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
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// ResolveInStation returns the endpoints of id located in station. An endpoint
// is in the station when its station tag says so, or when its declared group is
// a target of a priority chain entry labelled with the station.
func (d *Directory) ResolveInStation(id, station string, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	v := d.view()
	all := v.all(id)
	if !all.Found {
		return all
	}
	groups := map[int]bool{}
	for _, g := range d.topo.GroupsInStation(station) {
		groups[g] = true
	}
	keep := func(e registry.Endpoint) bool {
		if station == "" {
			return false
		}
		return e.Station == station || groups[e.DeclaredGroup]
	}
	act := filter(all.Active, keep)
	o.trace.step("station", len(all.Active), len(act), station)
	return fallback(all, act, filter(all.Inactive, keep), o.trace)
}
