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

// Package etcd provides a directory source backed by etcd.
//
// Every endpoint is one key, <prefix>/endpoints/<service id>/<endpoint key>, whose
// value is the json encoded endpoint with an additional "active" flag.
package etcd

import (
	"context"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/atomic"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/source"
)

// Name is the source name.
const Name = "etcd"

const rewatchDelay = time.Second

// Record is the value stored for one endpoint.
type Record struct {
	registry.Endpoint
	Active bool `json:"active"`
}

// EndpointKey returns the key of ep under prefix.
func EndpointKey(prefix, id string, ep registry.Endpoint) string {
	return endpointsPrefix(prefix) + id + "/" + ep.Key()
}

func endpointsPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/endpoints/"
}

// Source loads the directory from an etcd key range. Incremental loads read
// the identifiers having a key modified since the previous load. Deleted keys
// are only noticed by full loads.
type Source struct {
	kv      clientv3.KV
	watcher clientv3.Watcher
	closer  func() error
	prefix  string
	rev     atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ source.Notifier = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithWatcher makes Notify watch the prefix for changes.
func WithWatcher(w clientv3.Watcher) Option {
	return func(s *Source) {
		s.watcher = w
	}
}

// New creates a Source reading kv under prefix.
func New(kv clientv3.KV, prefix string, opts ...Option) *Source {
	s := &Source{kv: kv, prefix: endpointsPrefix(prefix)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFromClient creates a watching Source which closes c on Close.
func NewFromClient(c *clientv3.Client, prefix string) *Source {
	s := New(c.KV, prefix, WithWatcher(c.Watcher))
	s.closer = c.Close
	return s
}

// Name implements source.Source.
func (s *Source) Name() string {
	return Name
}

// Revision returns the etcd revision of the last successful load.
func (s *Source) Revision() int64 {
	return s.rev.Load()
}

// Load implements source.Source.
func (s *Source) Load(ctx context.Context, full bool) (*directory.Update, error) {
	last := s.rev.Load()
	if full || last == 0 {
		rsp, err := s.kv.Get(ctx, s.prefix, clientv3.WithPrefix())
		if err != nil {
			return nil, err
		}
		u := s.decode(rsp, true)
		s.rev.Store(u.Revision)
		return u, nil
	}

	changed, err := s.kv.Get(ctx, s.prefix, clientv3.WithPrefix(),
		clientv3.WithKeysOnly(), clientv3.WithMinModRev(last+1))
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for _, kv := range changed.Kvs {
		if id, ok := s.idOf(string(kv.Key)); ok {
			ids[id] = true
		}
	}
	rev := changed.Header.GetRevision()
	if len(ids) == 0 {
		if rev > last {
			s.rev.Store(rev)
		}
		return nil, nil
	}
	u := &directory.Update{Active: directory.Table{}, Inactive: directory.Table{}, Revision: rev}
	for id := range ids {
		rsp, err := s.kv.Get(ctx, s.prefix+id+"/", clientv3.WithPrefix())
		if err != nil {
			return nil, err
		}
		part := s.decode(rsp, false)
		u.Active[id] = part.Active[id]
		u.Inactive[id] = part.Inactive[id]
		if part.Revision > u.Revision {
			u.Revision = part.Revision
		}
	}
	u.Sets = source.SetsFromEndpoints(u.Active, u.Inactive)
	if u.Revision > last {
		s.rev.Store(u.Revision)
	}
	return u, nil
}

func (s *Source) decode(rsp *clientv3.GetResponse, full bool) *directory.Update {
	u := &directory.Update{
		Full:     full,
		Active:   directory.Table{},
		Inactive: directory.Table{},
		Revision: rsp.Header.GetRevision(),
	}
	for _, kv := range rsp.Kvs {
		id, ok := s.idOf(string(kv.Key))
		if !ok {
			continue
		}
		var r Record
		if err := jsoniter.Unmarshal(kv.Value, &r); err != nil {
			log.Warnf("etcd source: skip %s: %v", kv.Key, err)
			continue
		}
		if r.Active {
			u.Active[id] = append(u.Active[id], r.Endpoint)
		} else {
			u.Inactive[id] = append(u.Inactive[id], r.Endpoint)
		}
	}
	u.Sets = source.SetsFromEndpoints(u.Active, u.Inactive)
	return u
}

func (s *Source) idOf(key string) (string, bool) {
	rest := strings.TrimPrefix(key, s.prefix)
	i := strings.IndexByte(rest, '/')
	if rest == key || i <= 0 {
		return "", false
	}
	return rest[:i], true
}

// Notify implements source.Notifier. It is a no-op without a watcher.
func (s *Source) Notify(onChange func()) {
	if s.watcher == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	go s.watch(ctx, onChange)
}

func (s *Source) watch(ctx context.Context, onChange func()) {
	for {
		wc := s.watcher.Watch(clientv3.WithRequireLeader(ctx), s.prefix, clientv3.WithPrefix())
		for rsp := range wc {
			if err := rsp.Err(); err != nil {
				log.Warnf("etcd source: watch %s: %v", s.prefix, err)
				break
			}
			if len(rsp.Events) > 0 {
				onChange()
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(rewatchDelay):
		}
	}
}

// Close stops watching and closes the client created by NewFromClient.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
