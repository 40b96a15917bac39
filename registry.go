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

// Package registry assembles the service directory: the topology index, the
// directory tables fed by a source plugin, the query facade and the admin server.
package registry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-registry/admin"
	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
	"trpc.group/trpc-go/trpc-registry/metrics/prometheus"
	"trpc.group/trpc-go/trpc-registry/naming/discovery"
	"trpc.group/trpc-go/trpc-registry/query"
	"trpc.group/trpc-go/trpc-registry/source"
	"trpc.group/trpc-go/trpc-registry/topology"
)

// DiscoveryName is the name the directory registers itself under in package discovery.
const DiscoveryName = "directory"

// Registry is one running directory.
type Registry struct {
	Topology  *topology.Index
	Directory *directory.Directory
	Facade    *query.Facade
	Refresher *source.Refresher
	Admin     *admin.Server
	Health    *healthcheck.HealthCheck

	cfg           *Config
	sink          metrics.Sink
	closePlugins  func() error
	restoreStdLog func()
}

// New sets up the plugins of cfg and wires a Registry. Nothing is loaded
// from the source until Run.
func New(cfg *Config) (*Registry, error) {
	closePlugins, err := SetupPlugins(cfg.Plugins)
	if err != nil {
		return nil, errs.Wrap(err, errs.RetConfigInvalid, "setup plugins")
	}
	r := &Registry{
		cfg:          cfg,
		Health:       healthcheck.New(),
		Topology:     topology.NewIndex(),
		closePlugins: closePlugins,
	}
	r.setupGlobal()
	if err := r.setup(); err != nil {
		if cerr := closePlugins(); cerr != nil {
			log.Errorf("close plugins: %v", cerr)
		}
		r.release()
		return nil, err
	}
	return r, nil
}

// setupGlobal applies the process wide switches of the global section, after
// the log plugins so the std log reaches the configured default logger.
func (r *Registry) setupGlobal() {
	g := r.cfg.Global
	if g.TraceableErrors {
		errs.EnableTrace(g.ErrorStackFilter)
	}
	if g.TraceLog {
		log.EnableTrace()
	}
	if !g.RedirectStdLog {
		return
	}
	restore, err := log.RedirectStdLog(log.GetDefaultLogger(), log.LevelInfo)
	if err != nil {
		log.Warnf("std log stays on stderr: %v", err)
		return
	}
	r.restoreStdLog = restore
}

func (r *Registry) setup() error {
	cfg := r.cfg
	src := source.Get(cfg.Directory.Source)
	if src == nil {
		return errs.Newf(errs.RetConfigInvalid,
			"directory source %q is not set up, configure plugins.source.%s", cfg.Directory.Source, cfg.Directory.Source)
	}

	topoUpdate, err := r.Health.Register(healthcheck.Topology)
	if err != nil {
		return err
	}
	dirUpdate, err := r.Health.Register(healthcheck.Directory)
	if err != nil {
		return err
	}
	metricsHandler := r.setupMetrics()
	if err := LoadTopology(cfg.Topology, r.Topology, topoUpdate); err != nil {
		return err
	}

	r.Directory = directory.New(directory.WithTopology(r.Topology))
	r.Refresher = source.NewRefresher(r.Directory, src,
		source.WithInterval(cfg.Directory.refreshInterval()),
		source.WithFullRefreshEvery(cfg.Directory.FullRefreshEvery),
		source.WithHealthUpdate(dirUpdate),
	)
	r.Facade = query.New(r.Directory, query.WithTraceLog(cfg.Directory.Trace))
	discovery.Register(DiscoveryName, discovery.NewDirectoryDiscovery(r.Facade))

	adminCfg := cfg.Server.Admin
	r.Admin = admin.NewServer(
		admin.WithAddr(cfg.adminAddr()),
		admin.WithVersion(Version()),
		admin.WithConfigPath(cfg.Path()),
		admin.WithReadTimeout(getMillisecond(adminCfg.ReadTimeout)),
		admin.WithWriteTimeout(getMillisecond(adminCfg.WriteTimeout)),
		admin.WithRateLimit(rate.Limit(adminCfg.RateLimit), adminCfg.RateBurst),
		admin.WithSkipServe(adminCfg.Disabled),
		admin.WithDirectory(r.Directory),
		admin.WithFacade(r.Facade),
		admin.WithRefresher(r.Refresher),
		admin.WithMetricsHandler(metricsHandler),
		admin.WithHealthCheck(r.Health),
	)
	return nil
}

func (r *Registry) setupMetrics() http.Handler {
	switch r.cfg.Metrics.Sink {
	case "prometheus":
		s := prometheus.NewSink(r.cfg.Metrics.Namespace)
		r.sink = s
		metrics.RegisterMetricsSink(s)
		return s.Handler()
	case "console":
		r.sink = metrics.NewConsoleSink()
		metrics.RegisterMetricsSink(r.sink)
	}
	return nil
}

// release undoes the process wide registrations of the Registry.
func (r *Registry) release() {
	if r.sink != nil {
		metrics.UnregisterMetricsSink(r.sink.Name())
	}
	if r.restoreStdLog != nil {
		r.restoreStdLog()
		r.restoreStdLog = nil
	}
}

// Run refreshes the directory and serves the admin api until ctx is done or
// one of them fails. Plugins are closed before Run returns.
func (r *Registry) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Refresher.Run(ctx)
	})
	g.Go(r.Admin.Serve)
	g.Go(func() error {
		<-ctx.Done()
		if wait := getMillisecond(r.cfg.Server.CloseWaitTime); wait > 0 {
			log.Infof("registry stopping, waiting %s", wait)
			time.Sleep(wait)
		}
		return r.Admin.Close(nil)
	})
	err := g.Wait()

	var result *multierror.Error
	if err != nil && !errors.Is(err, context.Canceled) {
		result = multierror.Append(result, err)
	}
	if cerr := r.closePlugins(); cerr != nil {
		result = multierror.Append(result, cerr)
	}
	r.release()
	log.Sync()
	return result.ErrorOrNil()
}
