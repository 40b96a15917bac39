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

// Package config loads registry side files, such as the topology definition, through
// pluggable providers and codecs, and watches them for changes.
package config

import (
	"errors"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
	yaml "gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotExist is config not exist error.
	ErrConfigNotExist = errors.New("registry/config: config not exist")
	// ErrProviderNotExist is provider not exist error.
	ErrProviderNotExist = errors.New("registry/config: provider not exist")
	// ErrCodecNotExist is codec not exist error.
	ErrCodecNotExist = errors.New("registry/config: codec not exist")
)

func init() {
	RegisterCodec(&YamlCodec{})
	RegisterCodec(&JSONCodec{})
	RegisterCodec(&TomlCodec{})
}

// Config is the common interface of a loaded config document.
type Config interface {
	// Load loads config.
	Load() error
	// Reload reloads config, keeping the previous value on failure.
	Reload()
	// Get returns config by key, "a.b.c" walks nested maps.
	Get(string, interface{}) interface{}
	// Unmarshal deserializes the config into input param.
	Unmarshal(interface{}) error
	// IsSet returns if the config specified by key exists.
	IsSet(string) bool
	// GetInt returns int value by key, def on absence or conversion failure.
	GetInt(string, int) int
	// GetInt64 returns int64 value by key, def on absence or conversion failure.
	GetInt64(string, int64) int64
	// GetUint32 returns uint32 value by key, def on absence or conversion failure.
	GetUint32(string, uint32) uint32
	// GetFloat64 returns float64 value by key, def on absence or conversion failure.
	GetFloat64(string, float64) float64
	// GetString returns string value by key, def on absence or conversion failure.
	GetString(string, string) string
	// GetBool returns bool value by key, def on absence or conversion failure.
	GetBool(string, bool) bool
	// GetDuration returns a duration by key, def on absence or conversion failure.
	GetDuration(string, time.Duration) time.Duration
	// Bytes returns config data as bytes.
	Bytes() []byte
}

// ProviderCallback is callback function for provider to handle
// config change.
type ProviderCallback func(string, []byte)

// DataProvider is the common interface for data provider.
type DataProvider interface {
	// Name returns the data provider's name.
	Name() string
	// Read reads the specific path file, returns its content as bytes.
	Read(string) ([]byte, error)
	// Watch watches config changing. The change will be handled by callback function.
	Watch(ProviderCallback)
}

// Codec defines codec interface.
type Codec interface {
	// Name returns codec's name.
	Name() string
	// Unmarshal deserializes the config data bytes into the second input parameter.
	Unmarshal([]byte, interface{}) error
}

var (
	lock        sync.RWMutex
	providerMap = make(map[string]DataProvider)
	codecMap    = make(map[string]Codec)
)

// RegisterProvider registers a data provider by its name.
func RegisterProvider(p DataProvider) {
	lock.Lock()
	providerMap[p.Name()] = p
	lock.Unlock()
}

// GetProvider returns the provider by name.
func GetProvider(name string) DataProvider {
	lock.RLock()
	defer lock.RUnlock()
	return providerMap[name]
}

// RegisterCodec registers codec by its name.
func RegisterCodec(c Codec) {
	lock.Lock()
	codecMap[c.Name()] = c
	lock.Unlock()
}

// GetCodec returns the codec by name.
func GetCodec(name string) Codec {
	lock.RLock()
	defer lock.RUnlock()
	return codecMap[name]
}

// Load returns the config specified by input parameter.
func Load(path string, opts ...LoadOption) (Config, error) {
	return DefaultConfigLoader.Load(path, opts...)
}

// Reload reloads config data.
func Reload(path string, opts ...LoadOption) error {
	return DefaultConfigLoader.Reload(path, opts...)
}

// YamlCodec is yaml codec.
type YamlCodec struct{}

// Name returns yaml codec's name.
func (*YamlCodec) Name() string {
	return "yaml"
}

// Unmarshal deserializes the in bytes into out parameter by yaml.
func (c *YamlCodec) Unmarshal(in []byte, out interface{}) error {
	return yaml.Unmarshal(in, out)
}

// JSONCodec is json codec.
type JSONCodec struct{}

// Name returns json codec's name.
func (*JSONCodec) Name() string {
	return "json"
}

// Unmarshal deserializes the in bytes into out parameter by json.
func (c *JSONCodec) Unmarshal(in []byte, out interface{}) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(in, out)
}

// TomlCodec is toml codec.
type TomlCodec struct{}

// Name returns toml codec's name.
func (*TomlCodec) Name() string {
	return "toml"
}

// Unmarshal deserializes the in bytes into out parameter by toml.
func (c *TomlCodec) Unmarshal(in []byte, out interface{}) error {
	return toml.Unmarshal(in, out)
}
