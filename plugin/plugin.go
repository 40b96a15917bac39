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

// Package plugin implements a general plugin factory system which provides plugin registration and loading.
// Log outputs, audit sinks, directory sources and metrics sinks are set up from the
// `plugins` section of the registry config file through this package.
package plugin

import (
	"sync"
)

var (
	mu       sync.RWMutex
	plugins  = make(map[string]map[string]Factory) // plugin type => { plugin name => plugin factory }
	setupped = make(map[string]bool)
)

// Factory is the interface for plugin factory abstraction.
// Custom Plugins need to implement this interface to be registered as a plugin with certain type.
type Factory interface {
	// Type returns type of the plugin, i.e. source, audit, log, metrics.
	Type() string
	// Setup loads plugin by configuration.
	// The data structure of the configuration of the plugin needs to be defined in advance.
	Setup(name string, dec Decoder) error
}

// Decoder is the interface used to decode plugin configuration.
type Decoder interface {
	Decode(cfg interface{}) error // the input param is the custom configuration of the plugin
}

// Register registers a plugin factory.
// Name of the plugin should be specified.
// It is supported to register instances which are the same implementation of plugin Factory
// but use different configuration.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories, ok := plugins[f.Type()]
	if !ok {
		factories = make(map[string]Factory)
		plugins[f.Type()] = factories
	}
	factories[name] = f
}

// Get returns a plugin Factory by its type and name.
func Get(typ string, name string) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return plugins[typ][name]
}

// IsSetup reports whether the plugin of type typ and name name finished Setup.
func IsSetup(typ, name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return setupped[typ+"-"+name]
}

func markSetup(key string) {
	mu.Lock()
	setupped[key] = true
	mu.Unlock()
}
