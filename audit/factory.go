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

package audit

import (
	"errors"
	"path/filepath"

	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/plugin"
)

func init() {
	plugin.Register(pluginName, &Factory{})
}

const (
	pluginType = "audit"
	pluginName = "log"

	defaultPoolSize = 1024
)

// Config is the `plugins.audit.log` section.
type Config struct {
	// Logger names a logger set up by the log plugin. Empty or unknown names get
	// a dedicated file logger rolled every day.
	Logger string `yaml:"logger"`
	// LogPath and Filename locate the dedicated file, ./log/audit.log by default.
	LogPath  string `yaml:"log_path"`
	Filename string `yaml:"filename"`
	// MaxAge is the number of days the rolled files are kept.
	MaxAge int `yaml:"max_age"`
	// PoolSize bounds the writer goroutines. Negative writes synchronously.
	PoolSize int `yaml:"pool_size"`
}

// Factory is the audit plugin factory. It sets the Default sink.
type Factory struct {
	sink Sink
}

// Type implements plugin.Factory.
func (f *Factory) Type() string {
	return pluginType
}

// FlexDependsOn makes named loggers available before the sink is built.
func (f *Factory) FlexDependsOn() []string {
	return []string{"log-default", "log-audit"}
}

// Setup implements plugin.Factory.
func (f *Factory) Setup(name string, dec plugin.Decoder) error {
	if dec == nil {
		return errors.New("audit config decoder empty")
	}
	cfg := Config{}
	if err := dec.Decode(&cfg); err != nil {
		return err
	}
	sink, err := NewSinkFromConfig(cfg)
	if err != nil {
		return err
	}
	f.sink = sink
	SetDefault(sink)
	return nil
}

// Close implements plugin.Closer.
func (f *Factory) Close() error {
	if f.sink == nil {
		return nil
	}
	SetDefault(nil)
	return f.sink.Close()
}

// NewSinkFromConfig builds the log backed sink described by cfg.
func NewSinkFromConfig(cfg Config) (Sink, error) {
	logger := log.Get(cfg.Logger)
	if cfg.Logger == "" || logger == nil {
		logger = newFileLogger(cfg)
	}
	var sink Sink = NewLogSink(logger)
	if cfg.PoolSize < 0 {
		return sink, nil
	}
	size := cfg.PoolSize
	if size == 0 {
		size = defaultPoolSize
	}
	return NewAsyncSink(sink, size)
}

func newFileLogger(cfg Config) log.Logger {
	if cfg.LogPath == "" {
		cfg.LogPath = "./log"
	}
	if cfg.Filename == "" {
		cfg.Filename = "audit.log"
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 7
	}
	return log.NewZapLog(log.Config{{
		Writer:    log.OutputFile,
		Formatter: "json",
		Level:     "info",
		WriteConfig: log.WriteConfig{
			LogPath:   filepath.Clean(cfg.LogPath),
			Filename:  cfg.Filename,
			WriteMode: log.WriteFast,
			RollType:  log.RollByTime,
			TimeUnit:  log.Day,
			MaxAge:    cfg.MaxAge,
		},
	}})
}
