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

// Package healthcheck tracks the status of the components of a registry node.
// The node is healthy once every registered component is serving.
package healthcheck

import (
	"fmt"
	"sort"
	"sync"
)

// Status is the status of the node or of one component.
type Status int

const (
	// Unknown is the initial status of a component.
	Unknown Status = iota
	// Serving indicates the component is ok.
	Serving
	// NotServing indicates the component is not available now.
	NotServing
)

// Components of a registry node.
const (
	// Directory is serving once the tables were loaded from the source at least once.
	Directory = "directory"
	// Topology is serving once a topology config was published.
	Topology = "topology"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Serving:
		return "serving"
	case NotServing:
		return "not_serving"
	default:
		return "unknown"
	}
}

// New creates a new HealthCheck.
func New(opts ...Opt) *HealthCheck {
	hc := HealthCheck{
		unregisteredStatus: Unknown,
		statuses:           make(map[string]Status),
		byStatus: map[Status]map[string]struct{}{
			Unknown:    make(map[string]struct{}),
			Serving:    make(map[string]struct{}),
			NotServing: make(map[string]struct{}),
		},
		watchers: make(map[string][]func(status Status)),
	}
	for _, opt := range opts {
		opt(&hc)
	}
	return &hc
}

// HealthCheck records component statuses.
type HealthCheck struct {
	unregisteredStatus Status

	rwm      sync.RWMutex
	statuses map[string]Status
	byStatus map[Status]map[string]struct{}
	watchers map[string][]func(status Status)
}

// Register registers a component with initial status Unknown and returns a function to update it.
func (hc *HealthCheck) Register(name string) (update func(Status), err error) {
	hc.rwm.Lock()
	defer hc.rwm.Unlock()
	if _, ok := hc.statuses[name]; ok {
		return nil, fmt.Errorf("component %s has been registered", name)
	}
	hc.statuses[name] = Unknown
	hc.byStatus[Unknown][name] = struct{}{}
	for _, onStatusChanged := range hc.watchers[name] {
		onStatusChanged(Unknown)
	}
	return func(status Status) {
		hc.rwm.Lock()
		defer hc.rwm.Unlock()
		old, ok := hc.statuses[name]
		if !ok {
			return
		}
		if old == status {
			return
		}
		delete(hc.byStatus[old], name)
		hc.byStatus[status][name] = struct{}{}
		hc.statuses[name] = status
		for _, onStatusChanged := range hc.watchers[name] {
			onStatusChanged(status)
		}
	}, nil
}

// Unregister unregisters a component.
func (hc *HealthCheck) Unregister(name string) {
	hc.rwm.Lock()
	defer hc.rwm.Unlock()
	delete(hc.byStatus[hc.statuses[name]], name)
	delete(hc.statuses, name)
}

// CheckComponent returns the status of a component.
func (hc *HealthCheck) CheckComponent(name string) Status {
	hc.rwm.RLock()
	defer hc.rwm.RUnlock()
	status, ok := hc.statuses[name]
	if !ok {
		return hc.unregisteredStatus
	}
	return status
}

// CheckServer returns the status of the node: Serving when every component is,
// Unknown while any component is, NotServing otherwise.
func (hc *HealthCheck) CheckServer() Status {
	hc.rwm.RLock()
	defer hc.rwm.RUnlock()
	if len(hc.byStatus[Serving]) == len(hc.statuses) {
		return Serving
	}
	if len(hc.byStatus[Unknown]) != 0 {
		return Unknown
	}
	return NotServing
}

// Components returns the sorted component names with their status.
func (hc *HealthCheck) Components() []ComponentStatus {
	hc.rwm.RLock()
	defer hc.rwm.RUnlock()
	out := make([]ComponentStatus, 0, len(hc.statuses))
	for name, st := range hc.statuses {
		out = append(out, ComponentStatus{Name: name, Status: st.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ComponentStatus is one entry of Components.
type ComponentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Watch registers a component status watcher.
func (hc *HealthCheck) Watch(name string, onStatusChanged func(Status)) {
	hc.rwm.Lock()
	defer hc.rwm.Unlock()
	hc.watchers[name] = append(hc.watchers[name], onStatusChanged)
}
