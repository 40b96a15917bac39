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

package healthcheck

// Opt modifies HealthCheck.
type Opt func(*HealthCheck)

// WithUnregisteredStatus changes the status reported for unregistered components.
func WithUnregisteredStatus(status Status) Opt {
	return func(hc *HealthCheck) {
		hc.unregisteredStatus = status
	}
}

// WithStatusWatchers sets the initial watchers.
func WithStatusWatchers(watchers map[string][]func(status Status)) Opt {
	return func(hc *HealthCheck) {
		hc.watchers = watchers
	}
}
