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

// Package source feeds a directory from a persistence source. A Refresher polls
// the Source on a fixed cadence and publishes what it returns.
package source

//go:generate mockgen -source=source.go -destination=mocksource/source_mock.go -package=mocksource

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-registry/directory"
)

// PluginType is the plugin type of every source factory.
const PluginType = "source"

// Source reads directory content from persistent storage.
type Source interface {
	// Name returns the source name.
	Name() string
	// Load returns everything when full is set, otherwise the identifiers changed
	// since the previous successful Load. Incremental loads may also return a
	// full update when the source cannot tell what changed.
	Load(ctx context.Context, full bool) (*directory.Update, error)
}

// Notifier is implemented by sources that learn about changes by themselves.
// The callback asks for an immediate refresh.
type Notifier interface {
	Notify(onChange func())
}

var (
	mu      sync.RWMutex
	sources = make(map[string]Source)
)

// Register registers a source by name.
func Register(name string, s Source) {
	mu.Lock()
	defer mu.Unlock()
	sources[name] = s
}

// Get gets a source by name.
func Get(name string) Source {
	mu.RLock()
	defer mu.RUnlock()
	return sources[name]
}
