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
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"trpc.group/trpc-go/trpc-registry/internal/snapshot"
	"trpc.group/trpc-go/trpc-registry/topology"
)

// TableStats describes one published table.
type TableStats struct {
	Gen         uint64    `json:"gen"`
	IDs         int       `json:"ids"`
	Endpoints   int       `json:"endpoints"`
	Digest      string    `json:"digest"`
	PublishedAt time.Time `json:"published_at"`
}

// Stats describes every table of a Directory.
type Stats struct {
	Active   TableStats     `json:"active"`
	Inactive TableStats     `json:"inactive"`
	Sets     TableStats     `json:"sets"`
	Topology topology.Stats `json:"topology"`
}

// Stats returns the generation, size and content digest of each table.
// Equal digests mean equal content, whatever the generation.
func (d *Directory) Stats() Stats {
	return Stats{
		Active:   tableStats(d.active.Current()),
		Inactive: tableStats(d.inactive.Current()),
		Sets:     setStats(d.sets.Current()),
		Topology: d.topo.Stats(),
	}
}

func tableStats(snap *snapshot.Snapshot[Table]) TableStats {
	h := xxhash.New()
	st := TableStats{Gen: snap.Gen, IDs: len(snap.Data), PublishedAt: snap.PublishedAt}
	for _, id := range sortedKeys(snap.Data) {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
		for _, e := range snap.Data[id] {
			st.Endpoints++
			_, _ = h.WriteString(e.String())
			_, _ = h.Write([]byte{0})
		}
	}
	st.Digest = strconv.FormatUint(h.Sum64(), 16)
	return st
}

func setStats(snap *snapshot.Snapshot[SetTable]) TableStats {
	h := xxhash.New()
	st := TableStats{Gen: snap.Gen, IDs: len(snap.Data), PublishedAt: snap.PublishedAt}
	for _, id := range sortedKeys(snap.Data) {
		byName := snap.Data[id]
		_, _ = h.WriteString(id)
		for _, name := range sortedKeys(byName) {
			_, _ = h.WriteString("/" + name)
			for _, r := range byName[name] {
				st.Endpoints++
				_, _ = h.WriteString(r.Area + "." + r.Group + "." + strconv.FormatBool(r.Active) + "." + r.Endpoint.String())
				_, _ = h.Write([]byte{0})
			}
		}
	}
	st.Digest = strconv.FormatUint(h.Sum64(), 16)
	return st
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
