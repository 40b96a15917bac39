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

package source

import (
	"strings"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// SetsFromEndpoints builds set partition records from the set tag of each
// endpoint, "name.area.group" with missing parts taken as the wildcard.
// Endpoints without a valid set tag are skipped. Every identifier of active
// and inactive gets an entry, so that a merge also clears stale sets.
func SetsFromEndpoints(active, inactive directory.Table) directory.SetTable {
	sets := make(directory.SetTable, len(active)+len(inactive))
	add := func(id string, eps []registry.Endpoint, isActive bool) {
		byName, ok := sets[id]
		if !ok {
			byName = make(map[string][]directory.SetRecord)
			sets[id] = byName
		}
		for _, ep := range eps {
			if ep.Set == "" {
				continue
			}
			sd, err := registry.ParseSetDescriptor(ep.Set)
			if err != nil {
				continue
			}
			byName[sd.Name] = append(byName[sd.Name], directory.SetRecord{
				Area:     orWildcard(sd.Area),
				Group:    orWildcard(sd.Group),
				Active:   isActive,
				Endpoint: ep,
			})
		}
	}
	for id, eps := range active {
		add(id, eps, true)
	}
	for id, eps := range inactive {
		add(id, eps, false)
	}
	return sets
}

func orWildcard(s string) string {
	if strings.TrimSpace(s) == "" {
		return registry.SetWildcard
	}
	return s
}
