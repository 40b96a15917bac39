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

package discovery

import (
	"context"
)

// Options is the call options.
type Options struct {
	Ctx      context.Context
	CallerIP string
	Station  string
	SetID    string
	// Priority walks the group priority chain instead of the caller's group only.
	Priority bool
}

// Option modifies the Options.
type Option func(*Options)

// WithContext returns an Option which sets ctx.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Ctx = ctx
	}
}

// WithCallerIP restricts the endpoints to the caller's group.
func WithCallerIP(ip string) Option {
	return func(o *Options) {
		o.CallerIP = ip
	}
}

// WithStation restricts the endpoints to a station.
func WithStation(station string) Option {
	return func(o *Options) {
		o.Station = station
	}
}

// WithSetID restricts the endpoints to a set, "name.area.group".
func WithSetID(id string) Option {
	return func(o *Options) {
		o.SetID = id
	}
}

// WithPriority walks the group priority chain of the caller.
func WithPriority() Option {
	return func(o *Options) {
		o.Priority = true
	}
}
