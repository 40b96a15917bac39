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
	"strings"

	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// ResolveInSet returns the endpoints of id registered in any of the given sets.
// Each descriptor is "name[.area[.group]]". Two or three dotless elements are
// one descriptor split into name, area and group. A concrete group is matched
// exactly first, then against records registered under the wildcard group.
// Without any set bucket for id the call degrades to ResolveAll; a bucket
// without matching record follows the empty filter rule.
func (d *Directory) ResolveInSet(id string, descriptors []string, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	tr := o.trace
	v := d.view()
	all := v.all(id)

	var sets []registry.SetDescriptor
	for _, s := range joinSplit(descriptors) {
		sd, err := registry.ParseSetDescriptor(s)
		if err != nil {
			tr.step("parse_set", 0, 0, s)
			continue
		}
		sets = append(sets, sd)
	}
	if len(sets) == 0 {
		tr.degrade(ReasonBadSet)
		return all.copy()
	}

	var (
		act, inact []registry.Endpoint
		buckets    int
	)
	for _, sd := range sets {
		recs, ok := v.sets[id][sd.Name]
		if !ok {
			tr.step("set", 0, 0, sd.String()+" no bucket")
			continue
		}
		buckets++
		matched := matchSet(recs, sd)
		tr.step("set", len(recs), len(matched), sd.String())
		a, i := splitRecords(matched)
		act, inact = append(act, a...), append(inact, i...)
	}
	if buckets == 0 {
		tr.degrade(ReasonNoSetBucket)
		return all.copy()
	}
	return fallback(all, act, inact, tr)
}

// ResolveInSetRecords filters records already looked up by the caller with the
// set descriptor setID. The records stand in for the set bucket and the active
// and inactive tables: a bad descriptor keeps every record and so does a
// filter that leaves no active record.
func (d *Directory) ResolveInSetRecords(setID string, records []SetRecord, opts ...ResolveOption) Result {
	o := newResolveOptions(opts)
	act, inact := splitRecords(records)
	all := Result{Active: act, Inactive: inact, Found: len(records) > 0}
	sd, err := registry.ParseSetDescriptor(setID)
	if err != nil {
		o.trace.step("parse_set", 0, 0, setID)
		o.trace.degrade(ReasonBadSet)
		return all.copy()
	}
	matched := matchSet(records, sd)
	o.trace.step("set", len(records), len(matched), sd.String())
	act, inact = splitRecords(matched)
	return fallback(all, act, inact, o.trace)
}

// joinSplit turns ["name", "area", "group"] into ["name.area.group"].
func joinSplit(descriptors []string) []string {
	if len(descriptors) < 2 || len(descriptors) > 3 {
		return descriptors
	}
	for _, s := range descriptors {
		if s == "" || strings.Contains(s, ".") {
			return descriptors
		}
	}
	return []string{strings.Join(descriptors, ".")}
}

// matchSet keeps records in the area and group of sd. For a concrete group the
// records of the wildcard group are used only when no record matches exactly.
func matchSet(recs []SetRecord, sd registry.SetDescriptor) []SetRecord {
	inArea := func(r SetRecord) bool {
		return sd.AnyArea() || r.Area == sd.Area
	}
	var exact []SetRecord
	for _, r := range recs {
		if inArea(r) && (sd.AnyGroup() || r.Group == sd.Group) {
			exact = append(exact, r)
		}
	}
	if len(exact) > 0 || sd.AnyGroup() {
		return exact
	}
	var wild []SetRecord
	for _, r := range recs {
		if inArea(r) && r.Group == registry.SetWildcard {
			wild = append(wild, r)
		}
	}
	return wild
}

func splitRecords(recs []SetRecord) (active, inactive []registry.Endpoint) {
	for _, r := range recs {
		if r.Active {
			active = append(active, r.Endpoint)
		} else {
			inactive = append(inactive, r.Endpoint)
		}
	}
	return active, inactive
}
