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

package plugin

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var (
	// SetupTimeout is the timeout for initialization of each plugin.
	// Sources that dial a remote store on Setup may need a larger value.
	SetupTimeout = 3 * time.Second

	// MaxPluginSize is the max number of plugins.
	MaxPluginSize = 1000
)

// Config is the configuration of all plugins. plugin type => { plugin name => plugin config }
type Config map[string]map[string]yaml.Node

// SetupClosables loads plugins and returns a function to close them in reverse order.
// The close function runs every closer and reports all of their failures.
func (c Config) SetupClosables() (close func() error, err error) {
	plugins, status, err := c.loadPlugins()
	if err != nil {
		return nil, err
	}
	infos, closes, err := c.setupPlugins(plugins, status)
	if err != nil {
		return nil, err
	}
	for _, p := range infos {
		if err := p.onFinish(); err != nil {
			return nil, err
		}
	}
	return func() error {
		var result *multierror.Error
		for i := len(closes) - 1; i >= 0; i-- {
			if err := closes[i](); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}, nil
}

// loadPlugins queues the configured plugins ordered by type then name, so setup order is stable.
func (c Config) loadPlugins() (chan pluginInfo, map[string]bool, error) {
	var (
		plugins = make(chan pluginInfo, MaxPluginSize)
		status  = make(map[string]bool)
	)
	types := make([]string, 0, len(c))
	for typ := range c {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		names := make([]string, 0, len(c[typ]))
		for name := range c[typ] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			factory := Get(typ, name)
			if factory == nil {
				return nil, nil, fmt.Errorf("plugin %s:%s no registered or imported, do not configure", typ, name)
			}
			p := pluginInfo{factory: factory, typ: typ, name: name, cfg: c[typ][name]}
			select {
			case plugins <- p:
			default:
				return nil, nil, fmt.Errorf("plugin number exceed max limit:%d", len(plugins))
			}
			status[p.key()] = false
		}
	}
	return plugins, status, nil
}

func (c Config) setupPlugins(plugins chan pluginInfo, status map[string]bool) ([]pluginInfo, []func() error, error) {
	var (
		result []pluginInfo
		closes []func() error
		num    = len(plugins)
	)
	for num > 0 {
		for i := 0; i < num; i++ {
			p := <-plugins
			if deps, err := p.hasDependence(status); err != nil {
				return nil, nil, err
			} else if deps {
				// Requeue until its dependencies are set up.
				plugins <- p
				continue
			}
			if err := p.setup(); err != nil {
				return nil, nil, err
			}
			if closer, ok := p.factory.(Closer); ok {
				closes = append(closes, closer.Close)
			}
			status[p.key()] = true
			markSetup(p.key())
			result = append(result, p)
		}
		if len(plugins) == num {
			return nil, nil, errors.New("cycle depends, not plugin is setup")
		}
		num = len(plugins)
	}
	return result, closes, nil
}

type pluginInfo struct {
	factory Factory
	typ     string
	name    string
	cfg     yaml.Node
}

// hasDependence reports whether some plugin this one depends on is not set up yet.
func (p *pluginInfo) hasDependence(status map[string]bool) (bool, error) {
	if deps, ok := p.factory.(Depender); ok {
		hasDeps, err := p.checkDependence(status, deps.DependsOn(), false)
		if err != nil || hasDeps {
			return hasDeps, err
		}
	}
	if fd, ok := p.factory.(FlexDepender); ok {
		return p.checkDependence(status, fd.FlexDependsOn(), true)
	}
	return false, nil
}

// Depender is the interface for "Strong Dependence".
// If plugin a "Strongly" depends on plugin b, b must exist and
// a will be initialized after b's initialization.
type Depender interface {
	// DependsOn returns a list of plugins that are relied upon.
	// The list elements are in the format of "type-name" like [ "log-default" ].
	DependsOn() []string
}

// FlexDepender is the interface for "Weak Dependence".
// If plugin a "Weakly" depends on plugin b and b does exist,
// a will be initialized after b's initialization.
type FlexDepender interface {
	FlexDependsOn() []string
}

func (p *pluginInfo) checkDependence(status map[string]bool, dependences []string, flexible bool) (bool, error) {
	for _, name := range dependences {
		if name == p.key() {
			return false, errors.New("plugin not allowed to depend on itself")
		}
		setup, ok := status[name]
		if !ok {
			if flexible {
				continue
			}
			return false, fmt.Errorf("depends plugin %s not exists", name)
		}
		if !setup {
			return true, nil
		}
	}
	return false, nil
}

func (p *pluginInfo) setup() error {
	ch := make(chan error, 1)
	go func() {
		ch <- p.factory.Setup(p.name, &YamlNodeDecoder{Node: &p.cfg})
	}()
	select {
	case err := <-ch:
		if err != nil {
			return fmt.Errorf("setup plugin %s error: %w", p.key(), err)
		}
		return nil
	case <-time.After(SetupTimeout):
		return fmt.Errorf("setup plugin %s timeout", p.key())
	}
}

// YamlNodeDecoder is a decoder for a yaml.Node of the yaml config file.
type YamlNodeDecoder struct {
	Node *yaml.Node
}

// Decode decodes a yaml.Node of the yaml config file.
func (d *YamlNodeDecoder) Decode(cfg interface{}) error {
	if d.Node == nil {
		return errors.New("yaml node empty")
	}
	return d.Node.Decode(cfg)
}

func (p *pluginInfo) key() string {
	return p.typ + "-" + p.name
}

func (p *pluginInfo) onFinish() error {
	f, ok := p.factory.(FinishNotifier)
	if !ok {
		return nil
	}
	return f.OnFinish(p.name)
}

// FinishNotifier is notified once every configured plugin is set up.
// The directory source uses it to start refreshing only after the log and audit plugins exist.
type FinishNotifier interface {
	OnFinish(name string) error
}

// Closer is the interface used to provide a close callback of a plugin.
type Closer interface {
	Close() error
}
