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

package etcd

import (
	"errors"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"trpc.group/trpc-go/trpc-registry/plugin"
	"trpc.group/trpc-go/trpc-registry/source"
)

func init() {
	plugin.Register(Name, &Factory{})
}

const (
	defaultPrefix      = "/registry"
	defaultDialTimeout = 5 * time.Second
)

// Config is the `plugins.source.etcd` section.
type Config struct {
	Endpoints   []string      `yaml:"endpoints"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
}

// Factory registers an etcd Source.
type Factory struct {
	src *Source
}

// Type implements plugin.Factory.
func (*Factory) Type() string {
	return source.PluginType
}

// Setup implements plugin.Factory.
func (f *Factory) Setup(name string, dec plugin.Decoder) error {
	if dec == nil {
		return errors.New("etcd source config decoder empty")
	}
	cfg := Config{}
	if err := dec.Decode(&cfg); err != nil {
		return err
	}
	if len(cfg.Endpoints) == 0 {
		return errors.New("etcd source: no endpoints")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return err
	}
	f.src = NewFromClient(c, cfg.Prefix)
	source.Register(name, f.src)
	return nil
}

// Close implements plugin.Closer.
func (f *Factory) Close() error {
	if f.src == nil {
		return nil
	}
	return f.src.Close()
}
