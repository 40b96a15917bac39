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

// LoadOption defines the option function for loading configuration.
type LoadOption func(*Document)

// WithCodec returns an option which sets the codec's name.
func WithCodec(name string) LoadOption {
	return func(c *Document) {
		c.decoder = GetCodec(name)
	}
}

// WithProvider returns an option which sets the provider's name.
func WithProvider(name string) LoadOption {
	return func(c *Document) {
		c.p = GetProvider(name)
	}
}

// WithExpandEnv replaces ${var} in the raw bytes with environment values.
func WithExpandEnv() LoadOption {
	return func(c *Document) {
		c.expandEnv = true
	}
}

// WithWatch keeps the document updated when the provider reports a change.
func WithWatch() LoadOption {
	return func(c *Document) {
		c.watch = true
	}
}

// WithWatchHook sets the hook called after each watched change has been applied or rejected.
func WithWatchHook(f func(WatchMessage)) LoadOption {
	return func(c *Document) {
		c.watchHook = f
	}
}
