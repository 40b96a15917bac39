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

const (
	defaultListenAddr   = "127.0.0.1:9028" // Default listening port.
	defaultReadTimeout  = time.Second * 3
	defaultWriteTimeout = time.Second * 60
	defaultSkipServe    = false
	defaultRateLimit    = rate.Limit(100)
	defaultRateBurst    = 20
)

func newDefaultConfig() *configuration {
	return &configuration{
		skipServe:    defaultSkipServe,
		addr:         defaultListenAddr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		rateLimit:    defaultRateLimit,
		rateBurst:    defaultRateBurst,
	}
}

// configuration manages the admin server configuration.
type configuration struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	version      string
	configPath   string
	skipServe    bool

	rateLimit rate.Limit
	rateBurst int

	dir         *directory.Directory
	facade      *query.Facade
	refresher   Refresher
	metrics     http.Handler
	healthCheck *healthcheck.HealthCheck
}
