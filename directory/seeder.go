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
	"time"

	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// Seeder appends local fixture endpoints to a Directory. It is used by tests and
// by the admin "seed" tooling, every endpoint is on loopback.
type Seeder struct {
	d         *Directory
	Host      string
	Transport registry.Transport
	Timeout   time.Duration
}

// Seeder returns a Seeder writing into d.
func (d *Directory) Seeder() *Seeder {
	return &Seeder{
		d:         d,
		Host:      "127.0.0.1",
		Transport: registry.TransportTCP,
		Timeout:   30 * time.Second,
	}
}

func (s *Seeder) endpoint(port int) registry.Endpoint {
	return registry.Endpoint{
		Host:      s.Host,
		Port:      port,
		Transport: s.Transport,
		Timeout:   s.Timeout,
	}
}

// AddActive appends an active endpoint on port to id.
func (s *Seeder) AddActive(id string, port int) registry.Endpoint {
	ep := s.endpoint(port)
	s.add(id, ep, true)
	return ep
}

// AddInactive appends an inactive endpoint on port to id.
func (s *Seeder) AddInactive(id string, port int) registry.Endpoint {
	ep := s.endpoint(port)
	s.add(id, ep, false)
	return ep
}

// AddEndpoint appends a caller built endpoint, for fixtures that need group or station tags.
func (s *Seeder) AddEndpoint(id string, ep registry.Endpoint, active bool) {
	s.add(id, ep, active)
}

// AddBySet appends an active endpoint to id and records it in set setName.area.group.
func (s *Seeder) AddBySet(id string, port int, setName, area, group string) registry.Endpoint {
	ep := s.endpoint(port)
	ep.Set = registry.SetDescriptor{Name: setName, Area: area, Group: group}.String()
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.appendLocked(id, ep, true)
	s.d.insertSetRecord(id, setName, area, group, ep, true)
	return ep
}

// AddActiveWeighted appends an active endpoint of the given weight tier. A non
// empty setID, "name.area.group", also records it in that set.
func (s *Seeder) AddActiveWeighted(id string, port int, tier registry.WeightTier, setID string) registry.Endpoint {
	return s.addWeighted(id, port, tier, setID, true)
}

// AddInactiveWeighted is AddActiveWeighted for an inactive endpoint.
func (s *Seeder) AddInactiveWeighted(id string, port int, tier registry.WeightTier, setID string) registry.Endpoint {
	return s.addWeighted(id, port, tier, setID, false)
}

func (s *Seeder) addWeighted(id string, port int, tier registry.WeightTier, setID string, active bool) registry.Endpoint {
	ep := s.endpoint(port)
	ep.WeightTier = tier
	ep.Weight = tierWeight(tier)
	ep.Set = setID
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.appendLocked(id, ep, active)
	if setID != "" {
		parts := strings.SplitN(setID, ".", 3)
		for len(parts) < 3 {
			parts = append(parts, registry.SetWildcard)
		}
		s.d.insertSetRecord(id, parts[0], parts[1], parts[2], ep, active)
	}
	return ep
}

func tierWeight(tier registry.WeightTier) int {
	switch tier {
	case registry.WeightTierElevated:
		return 200
	case registry.WeightTierNormal:
		return 100
	default:
		return 0
	}
}

func (s *Seeder) add(id string, ep registry.Endpoint, active bool) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.appendLocked(id, ep, active)
}

func (s *Seeder) appendLocked(id string, ep registry.Endpoint, active bool) {
	target, opposite := s.d.active, s.d.inactive
	if !active {
		target, opposite = opposite, target
	}
	cur := target.Current().Data[id]
	next := append(registry.Clone(cur), ep)
	s.d.replaceOrMerge(target, opposite, Table{id: next}, false)
}
