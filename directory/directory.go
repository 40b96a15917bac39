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

// Package directory holds the versioned endpoint tables of a registry node and
// the resolution algorithms that read them.
//
// Every table lives in its own snapshot store. Readers take the current
// generation of each table once per call and never block. Writers build a new
// generation off to the side and publish it; tables are not updated together,
// so a call may see the active and set tables from different generations.
package directory

import (
	"sync"

	"trpc.group/trpc-go/trpc-registry/internal/snapshot"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/topology"
)

// Table maps a service identifier to its endpoints.
type Table map[string][]registry.Endpoint

// SetRecord is one endpoint registered in a set partition.
type SetRecord struct {
	Area     string            `yaml:"area" json:"area"`
	Group    string            `yaml:"group" json:"group"`
	Active   bool              `yaml:"active" json:"active"`
	Endpoint registry.Endpoint `yaml:"endpoint" json:"endpoint"`
}

// SetTable maps a service identifier to set name to records.
type SetTable map[string]map[string][]SetRecord

// Directory owns the active, inactive and set partition tables and the topology
// index used to resolve them.
type Directory struct {
	active   *snapshot.Store[Table]
	inactive *snapshot.Store[Table]
	sets     *snapshot.Store[SetTable]
	topo     *topology.Index

	// mu serializes maintenance calls that touch more than one table.
	mu sync.Mutex
}

// Option configures a Directory.
type Option func(*Directory)

// WithTopology shares an existing topology index.
func WithTopology(idx *topology.Index) Option {
	return func(d *Directory) {
		d.topo = idx
	}
}

// New creates an empty Directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		active:   snapshot.New(Table{}),
		inactive: snapshot.New(Table{}),
		sets:     snapshot.New(SetTable{}),
	}
	for _, o := range opts {
		o(d)
	}
	if d.topo == nil {
		d.topo = topology.NewIndex()
	}
	return d
}

// Topology returns the topology index of the directory.
func (d *Directory) Topology() *topology.Index {
	return d.topo
}

// view is the set of generations one resolution call works on.
type view struct {
	active   Table
	inactive Table
	sets     SetTable
}

func (d *Directory) view() view {
	return view{
		active:   d.active.Current().Data,
		inactive: d.inactive.Current().Data,
		sets:     d.sets.Current().Data,
	}
}

func (v view) all(id string) Result {
	act, inAct := v.active[id]
	inact, inInact := v.inactive[id]
	_, inSets := v.sets[id]
	return Result{
		Active:   act,
		Inactive: inact,
		Found:    inAct || inInact || inSets,
	}
}
