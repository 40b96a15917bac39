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

package file

import (
	"errors"

	"trpc.group/trpc-go/trpc-registry/plugin"
	"trpc.group/trpc-go/trpc-registry/source"
)

func init() {
	plugin.Register(Name, &Factory{})
}

// Config is the `plugins.source.file` section.
type Config struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Factory registers a file Source named "file".
type Factory struct{}

// Type implements plugin.Factory.
func (*Factory) Type() string {
	return source.PluginType
}

// Setup implements plugin.Factory.
func (*Factory) Setup(name string, dec plugin.Decoder) error {
	if dec == nil {
		return errors.New("file source config decoder empty")
	}
	cfg := Config{}
	if err := dec.Decode(&cfg); err != nil {
		return err
	}
	if cfg.Path == "" {
		return errors.New("file source: path is empty")
	}
	var opts []Option
	if cfg.Watch {
		opts = append(opts, WithWatch())
	}
	s, err := New(cfg.Path, opts...)
	if err != nil {
		return err
	}
	source.Register(name, s)
	return nil
}
