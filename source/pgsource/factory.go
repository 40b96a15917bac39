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

package pgsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"trpc.group/trpc-go/trpc-registry/plugin"
	"trpc.group/trpc-go/trpc-registry/source"
)

func init() {
	plugin.Register(Name, &Factory{})
}

// Config is the `plugins.source.postgres` section.
type Config struct {
	// DSN is a postgres connection string, pool settings such as pool_max_conns included.
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Factory registers a postgres Source.
type Factory struct {
	pool *pgxpool.Pool
}

// Type implements plugin.Factory.
func (*Factory) Type() string {
	return source.PluginType
}

// Setup implements plugin.Factory. The pool connects lazily.
func (f *Factory) Setup(name string, dec plugin.Decoder) error {
	if dec == nil {
		return errors.New("postgres source config decoder empty")
	}
	cfg := Config{}
	if err := dec.Decode(&cfg); err != nil {
		return err
	}
	if cfg.DSN == "" {
		return errors.New("postgres source: dsn is empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), pcfg)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	f.pool = pool
	source.Register(name, New(pool, WithTable(cfg.Table)))
	return nil
}

// Close implements plugin.Closer.
func (f *Factory) Close() error {
	if f.pool != nil {
		f.pool.Close()
	}
	return nil
}
