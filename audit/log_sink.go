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
	"strings"

	"trpc.group/trpc-go/trpc-registry/log"
)

// LogSink writes each record as one structured line of a logger.
type LogSink struct {
	logger log.Logger
}

// NewLogSink creates a LogSink writing to logger.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write implements Sink.
func (s *LogSink) Write(r *Record) error {
	s.logger.With(
		log.Field{Key: "id", Value: r.ID},
		log.Field{Key: "op", Value: r.Op},
		log.Field{Key: "service", Value: r.ServiceID},
		log.Field{Key: "caller", Value: r.CallerIP},
		log.Field{Key: "station", Value: r.Station},
		log.Field{Key: "set", Value: r.SetID},
		log.Field{Key: "code", Value: r.Code},
		log.Field{Key: "active", Value: r.Active},
		log.Field{Key: "inactive", Value: r.Inactive},
		log.Field{Key: "found", Value: r.Found},
		log.Field{Key: "degraded", Value: strings.Join(r.Degraded, ",")},
		log.Field{Key: "cost", Value: r.Latency.String()},
	).Info(r.Trace)
	return nil
}

// Close syncs the logger.
func (s *LogSink) Close() error {
	return s.logger.Sync()
}
