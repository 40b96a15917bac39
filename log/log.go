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

// Package log provides the registry's structured logging.
package log

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogTrace switches trace logs on when set to a non zero value.
const EnvLogTrace = "REGISTRY_LOG_TRACE"

var traceEnabled = os.Getenv(EnvLogTrace) != "" && os.Getenv(EnvLogTrace) != "0"

// EnableTrace turns trace logs on for the rest of the process.
func EnableTrace() {
	traceEnabled = true
}

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the Logger carried by ctx, or the default Logger.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(Logger); ok && l != nil {
			return l
		}
	}
	return GetDefaultLogger()
}

// RedirectStdLog sends the output of the std log package to logger at level
// until the returned function is called. Only zap based loggers can take it.
func RedirectStdLog(logger Logger, level Level) (func(), error) {
	l, ok := logger.(*zapLog)
	if !ok {
		return nil, fmt.Errorf("log: cannot redirect std log to %T", logger)
	}
	lvl, ok := levelToZapLevel[level]
	if !ok {
		lvl = zapcore.InfoLevel
	}
	// zap skips the std log frames itself, ours do not apply.
	return zap.RedirectStdLogAt(l.logger.WithOptions(zap.AddCallerSkip(-defaultCallerSkip)), lvl)
}

// Trace logs to TRACE log when trace logs are enabled.
func Trace(args ...interface{}) {
	if traceEnabled {
		GetDefaultLogger().Trace(args...)
	}
}

// Tracef is Trace with a format.
func Tracef(format string, args ...interface{}) {
	if traceEnabled {
		GetDefaultLogger().Tracef(format, args...)
	}
}

// Debugf logs to DEBUG log. Arguments are handled in the manner of fmt.Printf.
func Debugf(format string, args ...interface{}) {
	GetDefaultLogger().Debugf(format, args...)
}

// Info logs to INFO log. Arguments are handled in the manner of fmt.Print.
func Info(args ...interface{}) {
	GetDefaultLogger().Info(args...)
}

// Infof logs to INFO log. Arguments are handled in the manner of fmt.Printf.
func Infof(format string, args ...interface{}) {
	GetDefaultLogger().Infof(format, args...)
}

// Warnf logs to WARNING log. Arguments are handled in the manner of fmt.Printf.
func Warnf(format string, args ...interface{}) {
	GetDefaultLogger().Warnf(format, args...)
}

// Errorf logs to ERROR log. Arguments are handled in the manner of fmt.Printf.
func Errorf(format string, args ...interface{}) {
	GetDefaultLogger().Errorf(format, args...)
}

// DebugContextf logs to DEBUG log of the Logger in ctx.
func DebugContextf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

// InfoContextf logs to INFO log of the Logger in ctx.
func InfoContextf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// WarnContextf logs to WARNING log of the Logger in ctx.
func WarnContextf(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}
