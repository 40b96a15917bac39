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
	"trpc.group/trpc-go/trpc-registry/internal/snapshot"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// Update is one refresh batch delivered by a persistence source.
type Update struct {
	// Full replaces every table. Otherwise the listed identifiers are merged.
	Full     bool
	Active   Table
	Inactive Table
	Sets     SetTable
	// Revision is the source revision the batch was read at, zero if the source has none.
	Revision int64
}

// Empty reports whether the update carries no entry.
func (u *Update) Empty() bool {
	return len(u.Active) == 0 && len(u.Inactive) == 0 && len(u.Sets) == 0
}

// ApplyUpdate publishes u. Active goes first, then inactive, then sets; an
// endpoint listed as both active and inactive for one identifier ends up inactive.
func (d *Directory) ApplyUpdate(u *Update) {
	if u == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.Full || u.Active != nil {
		d.replaceOrMerge(d.active, d.inactive, u.Active, u.Full)
	}
	if u.Full || u.Inactive != nil {
		d.replaceOrMerge(d.inactive, d.active, u.Inactive, u.Full)
	}
	if u.Full || u.Sets != nil {
		d.replaceOrMergeSets(u.Sets, u.Full)
	}
}

// ReplaceOrMergeActive publishes the next active table. With full the table is
// replaced by entries, otherwise the identifiers in entries are overwritten.
// The supplied endpoints are removed from the inactive table first.
func (d *Directory) ReplaceOrMergeActive(entries Table, full bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceOrMerge(d.active, d.inactive, entries, full)
}

// ReplaceOrMergeInactive is ReplaceOrMergeActive for the inactive table.
func (d *Directory) ReplaceOrMergeInactive(entries Table, full bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceOrMerge(d.inactive, d.active, entries, full)
}

// ReplaceOrMergeSetPartition publishes the next set partition table.
// Merging overwrites whole identifiers.
func (d *Directory) ReplaceOrMergeSetPartition(entries SetTable, full bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceOrMergeSets(entries, full)
}

func (d *Directory) replaceOrMerge(target, opposite *snapshot.Store[Table], entries Table, full bool) {
	// Scrub first so that readers never see an endpoint in both tables.
	scrub(opposite, entries)
	_, _ = target.Update(func(cur Table) (Table, error) {
		var next Table
		if full {
			next = make(Table, len(entries))
		} else {
			next = make(Table, len(cur)+len(entries))
			for id, eps := range cur {
				next[id] = eps
			}
		}
		for id, eps := range entries {
			next[id] = registry.Clone(eps)
			if next[id] == nil {
				next[id] = []registry.Endpoint{}
			}
		}
		return next, nil
	})
}

// scrub removes from store every endpoint listed in entries under the same identifier.
// Nothing is published when no endpoint has to move.
func scrub(store *snapshot.Store[Table], entries Table) {
	cur := store.Current().Data
	if !overlaps(cur, entries) {
		return
	}
	_, _ = store.Update(func(cur Table) (Table, error) {
		next := make(Table, len(cur))
		for id, eps := range cur {
			next[id] = eps
		}
		for id, moved := range entries {
			eps, ok := next[id]
			if !ok || len(moved) == 0 {
				continue
			}
			keys := make(map[string]bool, len(moved))
			for _, e := range moved {
				keys[e.Key()] = true
			}
			kept := make([]registry.Endpoint, 0, len(eps))
			for _, e := range eps {
				if !keys[e.Key()] {
					kept = append(kept, e)
				}
			}
			next[id] = kept
		}
		return next, nil
	})
}

func overlaps(cur, entries Table) bool {
	for id, moved := range entries {
		eps := cur[id]
		if len(eps) == 0 {
			continue
		}
		for _, m := range moved {
			for _, e := range eps {
				if e.Key() == m.Key() {
					return true
				}
			}
		}
	}
	return false
}

func (d *Directory) replaceOrMergeSets(entries SetTable, full bool) {
	_, _ = d.sets.Update(func(cur SetTable) (SetTable, error) {
		var next SetTable
		if full {
			next = make(SetTable, len(entries))
		} else {
			next = make(SetTable, len(cur)+len(entries))
			for id, byName := range cur {
				next[id] = byName
			}
		}
		for id, byName := range entries {
			next[id] = cloneSets(byName)
		}
		return next, nil
	})
}

func cloneSets(byName map[string][]SetRecord) map[string][]SetRecord {
	out := make(map[string][]SetRecord, len(byName))
	for name, recs := range byName {
		out[name] = append([]SetRecord(nil), recs...)
	}
	return out
}

// InsertSetRecord appends one record to the set partition of id.
func (d *Directory) InsertSetRecord(id, setName, area, group string, ep registry.Endpoint, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertSetRecord(id, setName, area, group, ep, active)
}

func (d *Directory) insertSetRecord(id, setName, area, group string, ep registry.Endpoint, active bool) {
	_, _ = d.sets.Update(func(cur SetTable) (SetTable, error) {
		next := make(SetTable, len(cur)+1)
		for k, v := range cur {
			next[k] = v
		}
		byName := cloneSets(cur[id])
		byName[setName] = append(byName[setName], SetRecord{
			Area:     area,
			Group:    group,
			Active:   active,
			Endpoint: ep,
		})
		next[id] = byName
		return next, nil
	})
}

// ClearAll publishes an empty generation to the active, inactive and set tables,
// one table after the other.
func (d *Directory) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active.Publish(Table{})
	d.inactive.Publish(Table{})
	d.sets.Publish(SetTable{})
}

// LoadMetric supplies the external load of an endpoint, such as its cpu load.
type LoadMetric interface {
	LoadOf(ep registry.Endpoint) (load int, ok bool)
}

// LoadMetricFunc adapts a function to LoadMetric.
type LoadMetricFunc func(ep registry.Endpoint) (int, bool)

// LoadOf implements LoadMetric.
func (f LoadMetricFunc) LoadOf(ep registry.Endpoint) (int, bool) {
	return f(ep)
}

// AnnotateWeight returns copies of eps with Load filled from load.
// Weight and weight tier are left untouched for the load balancer.
func (d *Directory) AnnotateWeight(eps []registry.Endpoint, load LoadMetric) []registry.Endpoint {
	out := registry.Clone(eps)
	if load == nil {
		return out
	}
	for i := range out {
		if v, ok := load.LoadOf(out[i]); ok {
			out[i].Load = v
		}
	}
	return out
}
