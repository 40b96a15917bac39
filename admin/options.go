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

package admin

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/query"
)

// Option Service configuration options.
type Option func(*configuration)

// WithAddr returns an Option which sets the address bound to admin, default: "127.0.0.1:9028".
func WithAddr(addr string) Option {
	return func(config *configuration) {
		config.addr = addr
	}
}

// WithVersion returns an Option which sets the version number.
func WithVersion(version string) Option {
	return func(config *configuration) {
		config.version = version
	}
}

// WithReadTimeout returns an Option which sets read timeout.
func WithReadTimeout(readTimeout time.Duration) Option {
	return func(config *configuration) {
		if readTimeout > 0 {
			config.readTimeout = readTimeout
		}
	}
}

// WithWriteTimeout returns an Option which sets write timeout.
func WithWriteTimeout(writeTimeout time.Duration) Option {
	return func(config *configuration) {
		if writeTimeout > 0 {
			config.writeTimeout = writeTimeout
		}
	}
}

// WithConfigPath returns an Option which sets the configuration file path shown by /cmds/config.
func WithConfigPath(configPath string) Option {
	return func(config *configuration) {
		config.configPath = configPath
	}
}

// WithSkipServe sets whether to skip starting the admin service.
func WithSkipServe(isSkip bool) Option {
	return func(config *configuration) {
		config.skipServe = isSkip
	}
}

// WithDirectory enables the directory stats and clear commands.
func WithDirectory(dir *directory.Directory) Option {
	return func(config *configuration) {
		config.dir = dir
	}
}

// WithFacade enables the resolve command.
func WithFacade(f *query.Facade) Option {
	return func(config *configuration) {
		config.facade = f
	}
}

// WithRefresher enables the reload command and adds the refresh status to stats.
func WithRefresher(r Refresher) Option {
	return func(config *configuration) {
		config.refresher = r
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(config *configuration) {
		config.metrics = h
	}
}

// WithHealthCheck shares hc with the components reporting to it.
func WithHealthCheck(hc *healthcheck.HealthCheck) Option {
	return func(config *configuration) {
		config.healthCheck = hc
	}
}

// WithRateLimit limits the directory commands to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(config *configuration) {
		config.rateLimit = r
		config.rateBurst = burst
	}
}
