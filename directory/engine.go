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

// Result is the outcome of a resolution.
type Result struct {
	Active   []registry.Endpoint
	Inactive []registry.Endpoint
	// Found is false only when no table has ever seen the identifier.
	Found bool
}

// Resolve returns the active endpoints of id, empty for an unknown id.
func (d *Directory) Resolve(id string, opts ...ResolveOption) []registry.Endpoint {
	return d.ResolveAll(id, opts...).Active
}

// ResolveAll returns every active and inactive endpoint of id.
func (d *Directory) ResolveAll(id string, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	all := d.view().all(id)
	o.trace.step("all", len(all.Active), len(all.Active), "")
	return all.copy()
}

func (r Result) copy() Result {
	return Result{
		Active:   registry.Clone(r.Active),
		Inactive: registry.Clone(r.Inactive),
		Found:    r.Found,
	}
}

// fallback applies the empty filter rule: a filtered result with no active
// endpoint is replaced by the unfiltered lists.
func fallback(all Result, active, inactive []registry.Endpoint, tr *Trace) Result {
	if len(active) > 0 {
		return Result{Active: active, Inactive: inactive, Found: all.Found}.copy()
	}
	if len(all.Active) > 0 {
		tr.degrade(ReasonEmptyFilter)
		return all.copy()
	}
	// Nothing active either way, keep whatever inactive endpoints the filter kept.
	return Result{Inactive: inactive, Found: all.Found}.copy()
}

func filter(eps []registry.Endpoint, keep func(registry.Endpoint) bool) []registry.Endpoint {
	var out []registry.Endpoint
	for _, e := range eps {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
