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

// Package topology maps requester addresses to deployment groups and holds the
// per group fallback priority chains.
package topology

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// Config is the topology definition, usually loaded from the topology file.
type Config struct {
	Groups []GroupConfig `yaml:"groups" json:"groups"`
}

// GroupConfig defines one group.
type GroupConfig struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// IPs lists requester addresses in the group, exact "a.b.c.d" or "a.b.c.*".
	IPs []string `yaml:"ips" json:"ips"`
	// Priority is the fallback ladder tried when the group itself has no endpoint.
	Priority []PriorityConfig `yaml:"priority" json:"priority"`
}

// PriorityConfig is one rung of a priority chain.
type PriorityConfig struct {
	Rank    int    `yaml:"rank" json:"rank"`
	Station string `yaml:"station" json:"station"`
	Groups  []int  `yaml:"groups" json:"groups"`
}

// PriorityEntry is a validated rung of a priority chain.
type PriorityEntry struct {
	Rank         int
	Station      string
	TargetGroups []int
}

// Groups is the immutable ip to group mapping of one generation.
type Groups struct {
	exact    map[uint32]int
	wildcard map[uint32]int
	names    map[int]string
}

// Chains maps a group id to its rank ascending priority chain.
type Chains map[int][]PriorityEntry

func emptyGroups() *Groups {
	return &Groups{
		exact:    map[uint32]int{},
		wildcard: map[uint32]int{},
		names:    map[int]string{},
	}
}

// Len returns the number of ip rules.
func (g *Groups) Len() int {
	return len(g.exact) + len(g.wildcard)
}

func (g *Groups) lookup(ip uint32) (int, bool) {
	if id, ok := g.exact[ip]; ok {
		return id, true
	}
	id, ok := g.wildcard[ip&0xFFFFFF00]
	return id, ok
}

// Build validates cfg and builds both tables. Every violation is reported,
// wrapped as errs.RetConfigInvalid.
func Build(cfg Config) (*Groups, Chains, error) {
	var (
		result *multierror.Error
		groups = emptyGroups()
		chains = Chains{}
		owner  = map[string]int{}
	)
	for _, g := range cfg.Groups {
		if g.ID <= registry.Ungrouped {
			result = multierror.Append(result, fmt.Errorf("group %q: id must be positive, got %d", g.Name, g.ID))
			continue
		}
		if _, dup := groups.names[g.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("group %d: defined twice", g.ID))
			continue
		}
		groups.names[g.ID] = g.Name
		for _, rule := range g.IPs {
			key, wildcard, ok := parseRule(rule)
			if !ok {
				result = multierror.Append(result, fmt.Errorf("group %d: invalid ip rule %q", g.ID, rule))
				continue
			}
			if prev, dup := owner[rule]; dup && prev != g.ID {
				result = multierror.Append(result, fmt.Errorf("ip rule %q: claimed by groups %d and %d", rule, prev, g.ID))
				continue
			}
			owner[rule] = g.ID
			if wildcard {
				groups.wildcard[key] = g.ID
			} else {
				groups.exact[key] = g.ID
			}
		}
	}
	for _, g := range cfg.Groups {
		if g.ID <= registry.Ungrouped || len(g.Priority) == 0 {
			continue
		}
		chain, err := buildChain(g, groups.names)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		chains[g.ID] = chain
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, nil, errs.Wrap(err, errs.RetConfigInvalid, "topology config invalid")
	}
	return groups, chains, nil
}

// buildChain sorts the chain by rank. Equal ranks have no defined order and are rejected.
func buildChain(g GroupConfig, known map[int]string) ([]PriorityEntry, error) {
	var result *multierror.Error
	ranks := map[int]bool{}
	chain := make([]PriorityEntry, 0, len(g.Priority))
	for _, p := range g.Priority {
		if ranks[p.Rank] {
			result = multierror.Append(result, fmt.Errorf("group %d: duplicate priority rank %d", g.ID, p.Rank))
			continue
		}
		ranks[p.Rank] = true
		if len(p.Groups) == 0 {
			result = multierror.Append(result, fmt.Errorf("group %d rank %d: no target group", g.ID, p.Rank))
			continue
		}
		targets := make([]int, 0, len(p.Groups))
		for _, t := range p.Groups {
			if _, ok := known[t]; !ok {
				result = multierror.Append(result, fmt.Errorf("group %d rank %d: unknown target group %d", g.ID, p.Rank, t))
				continue
			}
			targets = append(targets, t)
		}
		chain = append(chain, PriorityEntry{Rank: p.Rank, Station: p.Station, TargetGroups: targets})
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].Rank < chain[j].Rank })
	return chain, result.ErrorOrNil()
}
