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

package log_test

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/plugin"
)

const observewriter = "observewriter"

var defaultConfig = []log.OutputConfig{
	{
		Writer:    "console",
		Level:     "debug",
		Formatter: "console",
	},
}

type observeWriter struct {
	core zapcore.Core
}

func (f *observeWriter) Type() string { return "log" }

func (f *observeWriter) Setup(name string, dec plugin.Decoder) error {
	if dec == nil {
		return assert.AnError
	}
	decoder, ok := dec.(*log.Decoder)
	if !ok {
		return assert.AnError
	}
	decoder.Core = f.core
	decoder.ZapLevel = zap.NewAtomicLevel()
	return nil
}

func TestNewZapLog(t *testing.T) {
	logger := log.NewZapLog(defaultConfig)
	require.NotNil(t, logger)

	logger.SetLevel("0", log.LevelInfo)
	assert.Equal(t, log.LevelInfo, logger.GetLevel("0"))

	l := logger.With(log.Field{Key: "test", Value: "a"})
	l.SetLevel("0", log.LevelError)
	assert.Equal(t, log.LevelError, logger.GetLevel("0"))
	// out of range outputs are ignored.
	l.SetLevel("9", log.LevelFatal)
	assert.Equal(t, log.LevelDebug, l.GetLevel("9"))
}

func TestNewZapLog_WriteMode(t *testing.T) {
	logDir := t.TempDir()
	t.Run("invalid write mode", func(t *testing.T) {
		require.Panics(t, func() {
			log.NewZapLog([]log.OutputConfig{{
				Writer: log.OutputFile,
				WriteConfig: log.WriteConfig{
					LogPath:   logDir,
					Filename:  "registry.log",
					WriteMode: 4,
				},
			}})
		})
	})
	t.Run("unknown writer", func(t *testing.T) {
		require.Panics(t, func() {
			log.NewZapLog([]log.OutputConfig{{Writer: "no-such-writer"}})
		})
	})
	tests := []struct {
		name string
		mode int
	}{
		{"sync", log.WriteSync},
		{"async", log.WriteAsync},
		{"fast", log.WriteFast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, log.NewZapLog([]log.OutputConfig{{
				Writer: log.OutputFile,
				WriteConfig: log.WriteConfig{
					LogPath:   logDir,
					Filename:  "registry." + tt.name,
					WriteMode: tt.mode,
					RollType:  log.RollByTime,
					TimeUnit:  log.Day,
				},
			}}))
		})
	}
}

func TestGetLogEncoderKey(t *testing.T) {
	assert.Equal(t, "Time", log.GetLogEncoderKey("T", "Time"))
	assert.Equal(t, "T", log.GetLogEncoderKey("T", ""))
}

func TestNewTimeEncoder(t *testing.T) {
	for _, f := range []string{"", "2006-01-02 15:04:05", "seconds", "milliseconds", "nanoseconds"} {
		assert.NotNil(t, log.NewTimeEncoder(f), f)
	}
}

func TestTimeUnitFormat(t *testing.T) {
	assert.Equal(t, ".%Y%m%d", log.TimeUnit("").Format())
	assert.Equal(t, ".%Y%m%d%H", log.TimeUnit(log.Hour).Format())
	assert.Equal(t, ".%Y%m%d%H%M", log.TimeUnit(log.Minute).Format())
	assert.Equal(t, ".%Y%m", log.TimeUnit(log.Month).Format())
	assert.Equal(t, ".%Y", log.TimeUnit(log.Year).Format())
}

func TestWithFields(t *testing.T) {
	core, ob := observer.New(zap.InfoLevel)
	log.RegisterWriter(observewriter, &observeWriter{core: core})

	zl := log.NewZapLog([]log.OutputConfig{{Writer: observewriter}})
	require.NotNil(t, zl)

	old := log.GetDefaultLogger()
	defer log.SetLogger(old)
	log.SetLogger(zl.With(log.Field{Key: "abc", Value: int32(123)}))

	log.Info("hello")
	log.Debugf("hidden %d", 1)
	entries := ob.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, int32(123), entries[0].ContextMap()["abc"])

	ctx := log.NewContext(context.Background(), zl.With(log.Field{Key: "object", Value: "Demo.Server.Obj"}))
	log.InfoContextf(ctx, "resolved %d", 2)
	log.DebugContextf(ctx, "hidden %d", 3)
	entries = ob.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "resolved 2", entries[1].Message)
	assert.Equal(t, "Demo.Server.Obj", entries[1].ContextMap()["object"])
	assert.NotContains(t, entries[1].ContextMap(), "abc")

	log.FromContext(ctx).Warn("degraded", 2)
	entries = ob.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "degraded 2", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestTraceGate(t *testing.T) {
	core, ob := observer.New(zap.DebugLevel)
	old := log.GetDefaultLogger()
	defer log.SetLogger(old)
	log.SetLogger(log.NewZapLogFromCore(core, zap.NewAtomicLevelAt(zap.DebugLevel)))

	if os.Getenv(log.EnvLogTrace) == "" {
		log.Tracef("refresh %d", 1)
		assert.Zero(t, ob.Len())
	}
	log.EnableTrace()
	log.Tracef("refresh %d", 2)
	log.Trace("refresh", 3)
	entries := ob.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "refresh 2", entries[0].Message)
	assert.Equal(t, "refresh 3", entries[1].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestFactorySetup(t *testing.T) {
	f := &log.Factory{}
	assert.Equal(t, "log", f.Type())
	assert.Error(t, f.Setup("default", nil))

	var cfg log.Config
	err := f.Setup("empty", &plugin.YamlNodeDecoder{Node: nil})
	assert.Error(t, err)
	_ = cfg

	cw := &log.ConsoleWriterFactory{}
	assert.Error(t, cw.Setup("console", nil))
	fw := &log.FileWriterFactory{}
	assert.Error(t, fw.Setup("file", nil))
}

func TestRedirectStdLog(t *testing.T) {
	core, ob := observer.New(zap.DebugLevel)
	zl := log.NewZapLogFromCore(core, zap.NewAtomicLevelAt(zap.DebugLevel))

	restore, err := log.RedirectStdLog(zl, log.LevelWarn)
	require.NoError(t, err)
	stdlog.Print("pgx: conn closed")
	restore()
	stdlog.SetOutput(io.Discard)
	defer stdlog.SetOutput(os.Stderr)
	stdlog.Print("after restore")

	entries := ob.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pgx: conn closed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	_, err = log.RedirectStdLog(nopLogger{}, log.LevelInfo)
	assert.Error(t, err)
}

type nopLogger struct{ log.Logger }
