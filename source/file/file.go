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

// Package file provides a directory source backed by a local yaml file.
//
//	active:
//	  svc.Echo:
//	    - {host: 10.1.0.1, port: 8000, assigned_group: 1, set: app.sz.1}
//	inactive:
//	  svc.Echo:
//	    - {host: 10.1.0.2, port: 8000}
//
// Set partitions are derived from the set tag of every endpoint unless the file
// lists them under "sets".
package file

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"

	"trpc.group/trpc-go/trpc-registry/config"
	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/source"
)

// Name is the source name.
const Name = "file"

type document struct {
	Active   directory.Table    `yaml:"active"`
	Inactive directory.Table    `yaml:"inactive"`
	Sets     directory.SetTable `yaml:"sets"`
}

// Source loads the whole directory from one file.
type Source struct {
	path string
	doc  config.Config

	mu       sync.Mutex
	onChange func()
	sum      uint64
}

// Option configures a Source.
type Option func(*options)

type options struct {
	watch bool
}

// WithWatch refreshes the directory as soon as the file changes.
func WithWatch() Option {
	return func(o *options) {
		o.watch = true
	}
}

var _ source.Notifier = (*Source)(nil)

// New loads the file at path. Environment variables in the file are expanded.
func New(path string, opts ...Option) (*Source, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	s := &Source{path: path}
	loadOpts := []config.LoadOption{config.WithCodec("yaml"), config.WithExpandEnv()}
	if o.watch {
		loadOpts = append(loadOpts, config.WithWatch(), config.WithWatchHook(s.watched))
	}
	doc, err := config.Load(path, loadOpts...)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Name implements source.Source.
func (s *Source) Name() string {
	return Name
}

// Notify implements source.Notifier.
func (s *Source) Notify(onChange func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = onChange
}

func (s *Source) watched(msg config.WatchMessage) {
	if msg.Error != nil {
		log.Warnf("directory file %s changed but is invalid: %v", s.path, msg.Error)
		return
	}
	s.mu.Lock()
	f := s.onChange
	s.mu.Unlock()
	if f != nil {
		f()
	}
}

// Load re-reads the file. Every update is full; an incremental load of an
// unchanged file returns nil.
func (s *Source) Load(ctx context.Context, full bool) (*directory.Update, error) {
	if err := s.doc.Load(); err != nil {
		return nil, err
	}
	sum := xxhash.Sum64(s.doc.Bytes())
	s.mu.Lock()
	unchanged := sum == s.sum
	s.mu.Unlock()
	if unchanged && !full {
		return nil, nil
	}

	var d document
	if err := s.doc.Unmarshal(&d); err != nil {
		return nil, err
	}
	if d.Sets == nil {
		d.Sets = source.SetsFromEndpoints(d.Active, d.Inactive)
	}
	s.mu.Lock()
	s.sum = sum
	s.mu.Unlock()
	return &directory.Update{Full: true, Active: d.Active, Inactive: d.Inactive, Sets: d.Sets}, nil
}
