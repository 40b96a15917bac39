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

// Package registry defines the endpoint records served by the directory.
package registry

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Transport is the transport kind of an endpoint.
type Transport string

// Transport kinds.
const (
	TransportTCP Transport = "tcp"
	TransportUDP Transport = "udp"
)

// Ungrouped is the group id of endpoints that take no part in group routing.
const Ungrouped = 0

// WeightTier is the weighting class an endpoint was registered with.
// It is passed through to the load balancer and never used by resolution filters.
type WeightTier int

// Weight tiers.
const (
	WeightTierNone     WeightTier = 0
	WeightTierNormal   WeightTier = 1
	WeightTierElevated WeightTier = 2
)

// Endpoint is one reachable instance of a service.
// It is treated as an immutable value: directory tables share them and
// annotation returns modified copies.
type Endpoint struct {
	Host      string        `yaml:"host" json:"host"`
	Port      int           `yaml:"port" json:"port"`
	Transport Transport     `yaml:"transport" json:"transport"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`

	Weight     int        `yaml:"weight" json:"weight"`
	WeightTier WeightTier `yaml:"weight_tier" json:"weight_tier"`
	// Load is the external load annotation, such as cpu load, zero if never annotated.
	Load int `yaml:"-" json:"load,omitempty"`

	// DeclaredGroup is the group the endpoint was deployed for.
	DeclaredGroup int `yaml:"declared_group" json:"declared_group"`
	// AssignedGroup is the group the endpoint currently works in. It may differ
	// from DeclaredGroup while a rollout moves endpoints between groups.
	AssignedGroup int    `yaml:"assigned_group" json:"assigned_group"`
	Station       string `yaml:"station" json:"station"`
	Set           string `yaml:"set" json:"set"`
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Key identifies the endpoint inside one service, regardless of tags and weight.
func (e Endpoint) Key() string {
	t := e.Transport
	if t == "" {
		t = TransportTCP
	}
	return string(t) + "://" + e.Address()
}

// String returns an abbreviation of the endpoint.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s group:%d/%d station:%s set:%s weight:%d",
		e.Key(), e.AssignedGroup, e.DeclaredGroup, e.Station, e.Set, e.Weight)
}

// Clone copies a list of endpoints, nil stays nil.
func Clone(eps []Endpoint) []Endpoint {
	if eps == nil {
		return nil
	}
	out := make([]Endpoint, len(eps))
	copy(out, eps)
	return out
}
