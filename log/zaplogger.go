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

package log

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trpc.group/trpc-go/trpc-registry/log/rollwriter"
)

var defaultConfig = []OutputConfig{
	{
		Writer:    "console",
		Level:     "debug",
		Formatter: "console",
	},
}

// Levels is the map from string to zapcore.Level.
var Levels = map[string]zapcore.Level{
	"":      zapcore.DebugLevel,
	"trace": zapcore.DebugLevel,
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

var levelToZapLevel = map[Level]zapcore.Level{
	LevelTrace: zapcore.DebugLevel,
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
	LevelFatal: zapcore.FatalLevel,
}

var zapLevelToLevel = map[zapcore.Level]Level{
	zapcore.DebugLevel: LevelDebug,
	zapcore.InfoLevel:  LevelInfo,
	zapcore.WarnLevel:  LevelWarn,
	zapcore.ErrorLevel: LevelError,
	zapcore.FatalLevel: LevelFatal,
}

// defaultCallerSkip covers the package function, the Logger method and write.
const defaultCallerSkip = 3

// NewZapLog creates a Logger from zap with the default caller skip.
func NewZapLog(c Config) Logger {
	return NewZapLogWithCallerSkip(c, defaultCallerSkip)
}

// NewZapLogWithCallerSkip creates a Logger with one zap core per output.
// It panics if an output names an unregistered writer or fails to set up.
func NewZapLogWithCallerSkip(cfg Config, callerSkip int) Logger {
	cores := make([]zapcore.Core, 0, len(cfg))
	levels := make([]zap.AtomicLevel, 0, len(cfg))
	for i := range cfg {
		c := cfg[i]
		writer := GetWriter(c.Writer)
		if writer == nil {
			panic(fmt.Sprintf("log: output %d: writer %q is not registered", i, c.Writer))
		}
		decoder := &Decoder{OutputConfig: &c}
		if err := writer.Setup(c.Writer, decoder); err != nil {
			panic(fmt.Sprintf("log: output %d: writer %q: %v", i, c.Writer, err))
		}
		cores = append(cores, decoder.Core)
		levels = append(levels, decoder.ZapLevel)
	}
	return &zapLog{
		levels: levels,
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCallerSkip(callerSkip), zap.AddCaller()),
	}
}

// NewZapLogFromCore wraps an existing core, mostly for tests that observe output.
func NewZapLogFromCore(core zapcore.Core, level zap.AtomicLevel) Logger {
	return &zapLog{
		levels: []zap.AtomicLevel{level},
		logger: zap.New(core, zap.AddCallerSkip(defaultCallerSkip), zap.AddCaller()),
	}
}

func newEncoder(c *OutputConfig) zapcore.Encoder {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        GetLogEncoderKey("T", c.FormatConfig.TimeKey),
		LevelKey:       GetLogEncoderKey("L", c.FormatConfig.LevelKey),
		NameKey:        GetLogEncoderKey("N", c.FormatConfig.NameKey),
		CallerKey:      GetLogEncoderKey("C", c.FormatConfig.CallerKey),
		FunctionKey:    GetLogEncoderKey(zapcore.OmitKey, c.FormatConfig.FunctionKey),
		MessageKey:     GetLogEncoderKey("M", c.FormatConfig.MessageKey),
		StacktraceKey:  GetLogEncoderKey("S", c.FormatConfig.StacktraceKey),
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     NewTimeEncoder(c.FormatConfig.TimeFmt),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if c.EnableColor {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if c.Formatter == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

// GetLogEncoderKey gets user defined log output name, uses defKey if empty.
func GetLogEncoderKey(defKey, key string) string {
	if key == "" {
		return defKey
	}
	return key
}

func newConsoleCore(c *OutputConfig) (zapcore.Core, zap.AtomicLevel) {
	lvl := zap.NewAtomicLevelAt(Levels[c.Level])
	return zapcore.NewCore(
		newEncoder(c),
		zapcore.Lock(os.Stdout),
		lvl), lvl
}

func newFileCore(c *OutputConfig) (zapcore.Core, zap.AtomicLevel, error) {
	opts := []rollwriter.Option{
		rollwriter.WithMaxAge(c.WriteConfig.MaxAge),
		rollwriter.WithMaxBackups(c.WriteConfig.MaxBackups),
		rollwriter.WithMaxSize(c.WriteConfig.MaxSize),
	}
	if c.WriteConfig.RollType != RollBySize {
		opts = append(opts, rollwriter.WithRotationTime(c.WriteConfig.TimeUnit.Format()))
	}
	writer, err := rollwriter.NewRollWriter(c.WriteConfig.Filename, opts...)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	var ws zapcore.WriteSyncer
	switch m := c.WriteConfig.WriteMode; m {
	case 0, WriteFast:
		// Discards logs on full queue rather than blocking a resolution call.
		ws = rollwriter.NewAsyncRollWriter(writer, rollwriter.WithDropLog(true))
	case WriteSync:
		ws = zapcore.AddSync(writer)
	case WriteAsync:
		ws = rollwriter.NewAsyncRollWriter(writer, rollwriter.WithDropLog(false))
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("validating WriteMode parameter: got %d, "+
			"but expect one of WriteFast(%d), WriteAsync(%d), or WriteSync(%d)", m, WriteFast, WriteAsync, WriteSync)
	}

	lvl := zap.NewAtomicLevelAt(Levels[c.Level])
	return zapcore.NewCore(newEncoder(c), ws, lvl), lvl, nil
}

// NewTimeEncoder creates a time format encoder.
func NewTimeEncoder(format string) zapcore.TimeEncoder {
	switch format {
	case "":
		return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
		}
	case "seconds":
		return zapcore.EpochTimeEncoder
	case "milliseconds":
		return zapcore.EpochMillisTimeEncoder
	case "nanoseconds":
		return zapcore.EpochNanosTimeEncoder
	default:
		return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format(format))
		}
	}
}

// zapLog is a Logger backed by a zap logger. levels has one entry per output.
type zapLog struct {
	levels []zap.AtomicLevel
	logger *zap.Logger
}

// With returns a Logger adding fields to every entry.
func (l *zapLog) With(fields ...Field) Logger {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return &zapLog{levels: l.levels, logger: l.logger.With(zf...)}
}

// write formats the message only once some core accepts lvl.
func (l *zapLog) write(lvl zapcore.Level, format string, args []interface{}) {
	ce := l.logger.Check(lvl, "")
	if ce == nil {
		return
	}
	if format == "" {
		msg := fmt.Sprintln(args...)
		ce.Message = msg[:len(msg)-1]
	} else {
		ce.Message = fmt.Sprintf(format, args...)
	}
	ce.Write()
}

// Trace logs at debug level, zap has no trace level.
func (l *zapLog) Trace(args ...interface{}) { l.write(zapcore.DebugLevel, "", args) }

func (l *zapLog) Tracef(format string, args ...interface{}) { l.write(zapcore.DebugLevel, format, args) }

func (l *zapLog) Debug(args ...interface{}) { l.write(zapcore.DebugLevel, "", args) }

func (l *zapLog) Debugf(format string, args ...interface{}) { l.write(zapcore.DebugLevel, format, args) }

func (l *zapLog) Info(args ...interface{}) { l.write(zapcore.InfoLevel, "", args) }

func (l *zapLog) Infof(format string, args ...interface{}) { l.write(zapcore.InfoLevel, format, args) }

func (l *zapLog) Warn(args ...interface{}) { l.write(zapcore.WarnLevel, "", args) }

func (l *zapLog) Warnf(format string, args ...interface{}) { l.write(zapcore.WarnLevel, format, args) }

func (l *zapLog) Error(args ...interface{}) { l.write(zapcore.ErrorLevel, "", args) }

func (l *zapLog) Errorf(format string, args ...interface{}) { l.write(zapcore.ErrorLevel, format, args) }

// Sync flushes buffered entries of every output.
func (l *zapLog) Sync() error {
	return l.logger.Sync()
}

// output parses the output index used by SetLevel and GetLevel.
func (l *zapLog) output(name string) (zap.AtomicLevel, bool) {
	i, err := strconv.Atoi(name)
	if err != nil || i < 0 || i >= len(l.levels) {
		return zap.AtomicLevel{}, false
	}
	return l.levels[i], true
}

// SetLevel sets the level of output, the index of the output in the log config.
// Unknown outputs are ignored.
func (l *zapLog) SetLevel(output string, level Level) {
	if lvl, ok := l.output(output); ok {
		lvl.SetLevel(levelToZapLevel[level])
	}
}

// GetLevel returns the level of output, debug for unknown outputs.
func (l *zapLog) GetLevel(output string) Level {
	lvl, ok := l.output(output)
	if !ok {
		return LevelDebug
	}
	return zapLevelToLevel[lvl.Level()]
}
