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

// Package admin provides management capabilities for the registry,
// including health checks, log levels, directory inspection, metrics and profiling.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sync"

	"github.com/go-playground/form/v4"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-registry/config"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/healthcheck"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/query"
	"trpc.group/trpc-go/trpc-registry/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ServiceName is the service name of admin service.
const ServiceName = "admin"

// Patterns.
const (
	patternCmds             = "/cmds"
	patternVersion          = "/version"
	patternLoglevel         = "/cmds/loglevel"
	patternConfig           = "/cmds/config"
	patternHealthCheck      = "/is_healthy/"
	patternHealthComponent  = "/is_healthy/{component}"
	patternMetrics          = "/metrics"
	patternDirectoryStats   = "/cmds/directory/stats"
	patternDirectoryClear   = "/cmds/directory/clear"
	patternDirectoryReload  = "/cmds/directory/reload"
	patternDirectoryResolve = "/cmds/directory/resolve"
)

// Pprof patterns.
const (
	pprofPprof   = "/debug/pprof/"
	pprofCmdline = "/debug/pprof/cmdline"
	pprofProfile = "/debug/pprof/profile"
	pprofSymbol  = "/debug/pprof/symbol"
	pprofTrace   = "/debug/pprof/trace"
)

// Return parameters.
const (
	retErrCode    = "errorcode"
	retMessage    = "message"
	errCodeServer = 1
)

// Refresher is the part of the directory refresher driven by admin commands.
type Refresher interface {
	Trigger(ctx context.Context) error
	Status() source.Status
}

// Server structure provides utilities related to administration.
type Server struct {
	config  *configuration
	mu      sync.Mutex
	server  *http.Server
	ln      net.Listener
	closed  bool
	limiter *rate.Limiter
	decoder *form.Decoder

	router      *router
	healthCheck *healthcheck.HealthCheck

	closeOnce sync.Once
	closeErr  error
}

// NewServer returns a new admin Server.
func NewServer(opts ...Option) *Server {
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		config:      cfg,
		healthCheck: cfg.healthCheck,
		limiter:     rate.NewLimiter(cfg.rateLimit, cfg.rateBurst),
		decoder:     form.NewDecoder(),
	}
	if s.healthCheck == nil {
		s.healthCheck = healthcheck.New()
	}
	s.router = s.configRouter(newRouter())
	return s
}

func (s *Server) configRouter(r *router) *router {
	r.add(patternCmds, s.handleCmds)       // Admin Command List.
	r.add(patternVersion, s.handleVersion) // Registry version.
	r.add(patternConfig, s.handleConfig)   // View configuration file.
	r.add(patternLoglevel, s.handleLogLevel, http.MethodGet, http.MethodPut)
	r.add(patternHealthCheck, s.handleHealthCheck)
	r.add(patternHealthComponent, s.handleHealthCheck)

	if s.config.dir != nil {
		r.add(patternDirectoryStats, s.handleDirectoryStats, http.MethodGet)
		r.add(patternDirectoryClear, s.limited(s.handleDirectoryClear), http.MethodPost)
	}
	if s.config.refresher != nil {
		r.add(patternDirectoryReload, s.limited(s.handleDirectoryReload), http.MethodPost)
	}
	if s.config.facade != nil {
		r.add(patternDirectoryResolve, s.limited(s.handleDirectoryResolve), http.MethodGet)
	}
	if s.config.metrics != nil {
		r.add(patternMetrics, s.config.metrics.ServeHTTP)
	}

	r.add(pprofCmdline, pprof.Cmdline)
	r.add(pprofProfile, pprof.Profile)
	r.add(pprofSymbol, pprof.Symbol)
	r.add(pprofTrace, pprof.Trace)
	r.add(pprofPprof, pprof.Index)
	r.addPrefix(pprofPprof, http.HandlerFunc(pprof.Index))

	for pattern, handler := range pattern2Handler {
		r.add(pattern, handler)
	}
	return r
}

// RegisterHealthCheck registers a component and returns two functions, one for unregistering it and one for
// updating its status.
func (s *Server) RegisterHealthCheck(
	name string,
) (unregister func(), update func(healthcheck.Status), err error) {
	update, err = s.healthCheck.Register(name)
	return func() {
		s.healthCheck.Unregister(name)
	}, update, err
}

// ServeHTTP serves the admin commands.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve starts the admin HTTP server.
func (s *Server) Serve() error {
	cfg := s.config
	if cfg.skipServe {
		return nil
	}
	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return fmt.Errorf("admin listen error: %w", err)
	}
	srv := &http.Server{
		Addr:         ln.Addr().String(),
		ReadTimeout:  cfg.readTimeout,
		WriteTimeout: cfg.writeTimeout,
		Handler:      s.router,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ln.Close()
	}
	s.server, s.ln = srv, ln
	s.mu.Unlock()
	log.Infof("admin server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close shuts down server.
func (s *Server) Close(ch chan struct{}) error {
	pid := os.Getpid()
	s.closeOnce.Do(s.close)
	log.Infof("process:%d, admin server, closed", pid)
	if ch != nil {
		ch <- struct{}{}
	}
	return s.closeErr
}

// WatchStatus registers a status watcher for a health check component.
func (s *Server) WatchStatus(name string, onStatusChanged func(healthcheck.Status)) {
	s.healthCheck.Watch(name, onStatusChanged)
}

var pattern2Handler = make(map[string]http.HandlerFunc)

// HandleFunc registers the handler function for the given pattern.
// Each time NewServer is called, all handlers registered through HandleFunc will be in effect.
func HandleFunc(patten string, handler http.HandlerFunc) {
	pattern2Handler[patten] = handler
}

// HandleFunc registers the handler function for the given pattern.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	_ = s.router.add(pattern, handler)
}

func (s *Server) close() {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return
	}
	s.closeErr = srv.Close()
}

// limited rejects requests beyond the configured rate.
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			setCommonHeaders(w)
			w.WriteHeader(http.StatusTooManyRequests)
			ErrorOutput(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		h(w, r)
	}
}

// ErrorOutput normalizes the error output.
func ErrorOutput(w http.ResponseWriter, error string, code int) {
	ret := newDefaultRes()
	ret[retErrCode] = code
	ret[retMessage] = error
	_ = json.NewEncoder(w).Encode(ret)
}

// handleCmds gives a list of all currently available administrative commands.
func (s *Server) handleCmds(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)
	ret := newDefaultRes()
	ret["cmds"] = s.router.list()
	_ = json.NewEncoder(w).Encode(ret)
}

// newDefaultRes returns admin Default output format.
func newDefaultRes() map[string]interface{} {
	return map[string]interface{}{
		retErrCode: 0,
		retMessage: "",
	}
}

// handleVersion gives the current version number.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)

	ret := newDefaultRes()
	ret["version"] = s.config.version
	_ = json.NewEncoder(w).Encode(ret)
}

// getLevel returns the level of logger's output stream.
func getLevel(logger log.Logger, output string) string {
	return log.LevelStrings[logger.GetLevel(output)]
}

// handleLogLevel returns or sets the output level of a logger.
func (s *Server) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)

	if err := r.ParseForm(); err != nil {
		ErrorOutput(w, err.Error(), errCodeServer)
		return
	}

	name := r.Form.Get("logger")
	if name == "" {
		name = "default"
	}
	output := r.Form.Get("output")
	if output == "" {
		output = "0" // If no output is given in the request parameters, the first output is used.
	}

	logger := log.Get(name)
	if logger == nil {
		ErrorOutput(w, fmt.Sprintf("logger %s not found", name), errCodeServer)
		return
	}

	ret := newDefaultRes()
	if r.Method == http.MethodPut {
		level, ok := log.LevelNames[r.PostForm.Get("value")]
		if !ok {
			ErrorOutput(w, fmt.Sprintf("unknown level %q", r.PostForm.Get("value")), errCodeServer)
			return
		}
		ret["prelevel"] = getLevel(logger, output)
		logger.SetLevel(output, level)
	}
	ret["level"] = getLevel(logger, output)
	_ = json.NewEncoder(w).Encode(ret)
}

// handleConfig outputs the content of the current configuration file.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)

	buf, err := os.ReadFile(s.config.configPath)
	if err != nil {
		ErrorOutput(w, err.Error(), errCodeServer)
		return
	}

	codec := config.GetCodec("yaml")
	if codec == nil {
		ErrorOutput(w, "cannot find yaml codec", errCodeServer)
		return
	}

	conf := make(map[string]interface{})
	if err = codec.Unmarshal(buf, &conf); err != nil {
		ErrorOutput(w, err.Error(), errCodeServer)
		return
	}
	ret := newDefaultRes()
	ret["content"] = conf
	_ = json.NewEncoder(w).Encode(ret)
}

// handleHealthCheck handles health check requests for the server or one component.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	check := s.healthCheck.CheckServer
	if component := mux.Vars(r)["component"]; component != "" {
		check = func() healthcheck.Status {
			return s.healthCheck.CheckComponent(component)
		}
	}
	switch check() {
	case healthcheck.Serving:
		w.WriteHeader(http.StatusOK)
	case healthcheck.NotServing:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleDirectoryStats gives the generation and size of every table.
func (s *Server) handleDirectoryStats(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)
	ret := newDefaultRes()
	ret["directory"] = s.config.dir.Stats()
	ret["health"] = s.healthCheck.Components()
	if s.config.refresher != nil {
		ret["refresh"] = s.config.refresher.Status()
	}
	_ = json.NewEncoder(w).Encode(ret)
}

// handleDirectoryClear empties the endpoint tables until the next full refresh.
func (s *Server) handleDirectoryClear(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)
	s.config.dir.ClearAll()
	log.Warnf("directory cleared by admin command from %s", r.RemoteAddr)
	_ = json.NewEncoder(w).Encode(newDefaultRes())
}

// handleDirectoryReload runs a full refresh and waits for it.
func (s *Server) handleDirectoryReload(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)
	if err := s.config.refresher.Trigger(r.Context()); err != nil {
		newResponse("", err).print(w)
		return
	}
	ret := newDefaultRes()
	ret["refresh"] = s.config.refresher.Status()
	_ = json.NewEncoder(w).Encode(ret)
}

type resolveForm struct {
	ID      string `form:"id"`
	IP      string `form:"ip"`
	Station string `form:"station"`
	Set     string `form:"set"`
	Op      string `form:"op"`
}

// handleDirectoryResolve runs one lookup, e.g. /cmds/directory/resolve?id=svc.Echo&ip=10.0.0.1&op=find_object_by_id_4_all.
func (s *Server) handleDirectoryResolve(w http.ResponseWriter, r *http.Request) {
	setCommonHeaders(w)
	var in resolveForm
	if err := s.decoder.Decode(&in, r.URL.Query()); err != nil {
		newResponse("", errs.Wrap(err, errs.RetInvalidArgument, "decode query")).print(w)
		return
	}
	f := s.config.facade
	lookups := map[string]func(context.Context, query.Request) (*query.Response, error){
		query.OpFindObjectByID:                f.FindObjectByID,
		query.OpFindObjectByID4Any:            f.FindObjectByID4Any,
		query.OpFindObjectByID4All:            f.FindObjectByID4All,
		query.OpFindObjectByIDInSameGroup:     f.FindObjectByIDInSameGroup,
		query.OpFindObjectByIDInGroupPriority: f.FindObjectByIDInGroupPriority,
		query.OpFindObjectByIDInSameStation:   f.FindObjectByIDInSameStation,
		query.OpFindObjectByIDInSameSet:       f.FindObjectByIDInSameSet,
	}
	if in.Op == "" {
		in.Op = query.OpFindObjectByID4Any
	}
	lookup, ok := lookups[in.Op]
	if !ok {
		newResponse("", errs.Newf(errs.RetInvalidArgument, "unknown op %q", in.Op)).print(w)
		return
	}
	rsp, err := lookup(r.Context(), query.Request{ID: in.ID, CallerIP: in.IP, Station: in.Station, SetID: in.Set})
	if err != nil {
		newResponse("", err).print(w)
		return
	}
	ret := newDefaultRes()
	ret["code"] = rsp.Code
	ret["active"] = rsp.Active
	ret["inactive"] = rsp.Inactive
	_ = json.NewEncoder(w).Encode(ret)
}

type response struct {
	content string
	err     error
}

func newResponse(content string, err error) response {
	return response{
		content: content,
		err:     err,
	}
}

func (r response) print(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.err != nil {
		e := struct {
			ErrCode    errs.Code `json:"err-code"`
			ErrMessage string    `json:"err-message"`
		}{
			ErrCode:    errs.CodeOf(r.err),
			ErrMessage: errs.Msg(r.err),
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(e); err != nil {
			log.Trace("json.Encode failed when write to http.ResponseWriter")
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(r.content)); err != nil {
		log.Trace("http.ResponseWriter write error")
	}
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}
