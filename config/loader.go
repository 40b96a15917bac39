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

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"

	"trpc.group/trpc-go/trpc-registry/internal/expandenv"
	"trpc.group/trpc-go/trpc-registry/log"
)

// DefaultConfigLoader is the default config loader.
var DefaultConfigLoader = NewLoader()

// Loader loads documents and fans provider change events out to them.
type Loader struct {
	watchers sync.Map // DataProvider => *watcher
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load returns the document at path, sharing one instance per identical option set.
func (loader *Loader) Load(path string, opts ...LoadOption) (Config, error) {
	c, err := newDocument(path, opts...)
	if err != nil {
		return nil, err
	}
	w := &watcher{}
	i, loaded := loader.watchers.LoadOrStore(c.p, w)
	if !loaded {
		c.p.Watch(w.watch)
	} else {
		w = i.(*watcher)
	}
	c = w.getOrCreate(c.path).getOrStore(c)
	if err = c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload reloads a document previously returned by Load.
func (loader *Loader) Reload(path string, opts ...LoadOption) error {
	c, err := newDocument(path, opts...)
	if err != nil {
		return err
	}
	v, ok := loader.watchers.Load(c.p)
	if !ok {
		return ErrConfigNotExist
	}
	s := v.(*watcher).get(path)
	if s == nil {
		return ErrConfigNotExist
	}
	oc := s.get(c.id)
	if oc == nil {
		return ErrConfigNotExist
	}
	return oc.Load()
}

type watcher struct {
	sets sync.Map // path => *docSet
}

func (w *watcher) get(path string) *docSet {
	if i, ok := w.sets.Load(path); ok {
		return i.(*docSet)
	}
	return nil
}

func (w *watcher) getOrCreate(path string) *docSet {
	i, _ := w.sets.LoadOrStore(path, &docSet{})
	return i.(*docSet)
}

func (w *watcher) watch(path string, data []byte) {
	if v := w.get(path); v != nil {
		v.watch(data)
	}
}

// docSet holds all documents loaded from the same path with different options.
type docSet struct {
	mutex sync.RWMutex
	items []*Document
}

func (s *docSet) get(id string) *Document {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, v := range s.items {
		if v.id == id {
			return v
		}
	}
	return nil
}

func (s *docSet) getOrStore(d *Document) *Document {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, item := range s.items {
		if item.id == d.id {
			return item
		}
	}
	s.items = append(s.items, d)
	return d
}

func (s *docSet) watch(data []byte) {
	s.mutex.RLock()
	items := append([]*Document(nil), s.items...)
	s.mutex.RUnlock()
	for _, item := range items {
		if !item.watch {
			continue
		}
		err := item.doWatch(data)
		item.notify(data, err)
	}
}

// WatchMessage describes one watched change.
type WatchMessage struct {
	Provider  string // provider name
	Path      string // config path
	ExpandEnv bool   // whether env variables were expanded
	Codec     string // codec
	Watch     bool   // whether the document is watched
	Value     []byte // new raw content
	Error     error  // parse error, the previous value is kept when set
}

var _ Config = (*Document)(nil)

// Document is a loaded config file.
type Document struct {
	id  string
	msg WatchMessage

	p         DataProvider
	path      string
	decoder   Codec
	expandEnv bool

	watch     bool
	watchHook func(message WatchMessage)

	mutex sync.RWMutex
	value *entity
}

type entity struct {
	raw  []byte
	data interface{}
}

func newEntity() *entity {
	return &entity{data: make(map[string]interface{})}
}

func newDocument(path string, opts ...LoadOption) (*Document, error) {
	c := &Document{
		path:      path,
		p:         GetProvider("file"),
		decoder:   GetCodec("yaml"),
		watchHook: func(WatchMessage) {},
	}
	for _, o := range opts {
		o(c)
	}
	if c.p == nil {
		return nil, ErrProviderNotExist
	}
	if c.decoder == nil {
		return nil, ErrCodecNotExist
	}
	c.msg = WatchMessage{
		Provider:  c.p.Name(),
		Path:      c.path,
		Codec:     c.decoder.Name(),
		ExpandEnv: c.expandEnv,
		Watch:     c.watch,
	}
	c.id = fmt.Sprintf("provider:%s path:%s codec:%s env:%t watch:%t",
		c.p.Name(), c.path, c.decoder.Name(), c.expandEnv, c.watch)
	return c, nil
}

func (c *Document) get() *entity {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.value != nil {
		return c.value
	}
	return newEntity()
}

func (c *Document) init() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.value != nil {
		return nil
	}
	data, err := c.p.Read(c.path)
	if err != nil {
		return fmt.Errorf("registry/config: failed to load %s: %w", c.id, err)
	}
	return c.set(data)
}

func (c *Document) doWatch(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.set(data)
}

// set parses data and swaps it in. A parse failure keeps the previous value.
func (c *Document) set(data []byte) error {
	if c.expandEnv {
		data = expandenv.ExpandEnv(data)
	}
	e := newEntity()
	e.raw = data
	if err := c.decoder.Unmarshal(data, &e.data); err != nil {
		return fmt.Errorf("registry/config: failed to parse %s: %w", c.id, err)
	}
	c.value = e
	return nil
}

func (c *Document) notify(data []byte, err error) {
	m := c.msg
	m.Value = data
	m.Error = err
	c.watchHook(m)
}

// Load loads config.
func (c *Document) Load() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	data, err := c.p.Read(c.path)
	if err != nil {
		return fmt.Errorf("registry/config: failed to load %s: %w", c.id, err)
	}
	return c.set(data)
}

// Reload reloads config.
func (c *Document) Reload() {
	if err := c.Load(); err != nil {
		log.Warnf("registry/config: failed to reload %s: %v", c.id, err)
	}
}

// Get returns config value by key. If key is absent will return the default value.
func (c *Document) Get(key string, defaultValue interface{}) interface{} {
	if v, ok := c.search(key); ok {
		return v
	}
	return defaultValue
}

// Unmarshal deserializes the config into input param.
func (c *Document) Unmarshal(out interface{}) error {
	return c.decoder.Unmarshal(c.get().raw, out)
}

// Bytes returns original config data as bytes.
func (c *Document) Bytes() []byte {
	return c.get().raw
}

// GetInt returns int value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetInt(key string, defaultValue int) int {
	return c.findWithDefaultValue(key, defaultValue).(int)
}

// GetInt64 returns int64 value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetInt64(key string, defaultValue int64) int64 {
	return c.findWithDefaultValue(key, defaultValue).(int64)
}

// GetUint32 returns uint32 value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetUint32(key string, defaultValue uint32) uint32 {
	return c.findWithDefaultValue(key, defaultValue).(uint32)
}

// GetFloat64 returns float64 value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetFloat64(key string, defaultValue float64) float64 {
	return c.findWithDefaultValue(key, defaultValue).(float64)
}

// GetBool returns bool value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetBool(key string, defaultValue bool) bool {
	return c.findWithDefaultValue(key, defaultValue).(bool)
}

// GetString returns string value by key, the second parameter
// is default value when key is absent or type conversion fails.
func (c *Document) GetString(key string, defaultValue string) string {
	return c.findWithDefaultValue(key, defaultValue).(string)
}

// GetDuration returns a duration by key. Strings such as "30s" and integer nanoseconds are accepted.
func (c *Document) GetDuration(key string, defaultValue time.Duration) time.Duration {
	return c.findWithDefaultValue(key, defaultValue).(time.Duration)
}

// IsSet returns if the config specified by key exists.
func (c *Document) IsSet(key string) bool {
	_, ok := c.search(key)
	return ok
}

func (c *Document) findWithDefaultValue(key string, defaultValue interface{}) interface{} {
	v, ok := c.search(key)
	if !ok {
		return defaultValue
	}
	var err error
	switch defaultValue.(type) {
	case bool:
		v, err = cast.ToBoolE(v)
	case string:
		v, err = cast.ToStringE(v)
	case int:
		v, err = cast.ToIntE(v)
	case int64:
		v, err = cast.ToInt64E(v)
	case uint32:
		v, err = cast.ToUint32E(v)
	case float64:
		v, err = cast.ToFloat64E(v)
	case time.Duration:
		v, err = cast.ToDurationE(v)
	}
	if err != nil {
		return defaultValue
	}
	return v
}

func (c *Document) search(key string) (interface{}, bool) {
	data, ok := c.get().data.(map[string]interface{})
	if !ok {
		return nil, false
	}
	value, err := search(data, strings.Split(key, "."))
	if err != nil {
		return nil, false
	}
	return value, true
}

func search(data map[string]interface{}, keys []string) (interface{}, error) {
	if len(keys) == 0 {
		return nil, ErrConfigNotExist
	}
	v, ok := data[keys[0]]
	if !ok {
		return nil, ErrConfigNotExist
	}
	if len(keys) == 1 {
		return v, nil
	}
	switch v := v.(type) {
	case map[interface{}]interface{}:
		return search(cast.ToStringMap(v), keys[1:])
	case map[string]interface{}:
		return search(v, keys[1:])
	default:
		return nil, ErrConfigNotExist
	}
}
