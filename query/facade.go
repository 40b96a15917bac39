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

// Package query is the entry point of directory lookups. It validates requests,
// runs the matching resolution and audits every call.
package query

import (
	"context"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-registry/audit"
	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// Operation names, used in audit records and metric names.
const (
	OpFindObjectByID                = "find_object_by_id"
	OpFindObjectByID4Any            = "find_object_by_id_4_any"
	OpFindObjectByID4All            = "find_object_by_id_4_all"
	OpFindObjectByIDInSameGroup     = "find_object_by_id_in_same_group"
	OpFindObjectByIDInGroupPriority = "find_object_by_id_in_group_priority"
	OpFindObjectByIDInSameStation   = "find_object_by_id_in_same_station"
	OpFindObjectByIDInSameSet       = "find_object_by_id_in_same_set"
)

// Request is one lookup.
type Request struct {
	// ID is the service identifier, required.
	ID string
	// CallerIP locates the requester for group based variants.
	CallerIP string
	// Station is the requester station for the station variant.
	Station string
	// SetID is "name.area.group" for the set variant.
	SetID string
	// Records, when set, are filtered by SetID instead of the set table.
	Records []directory.SetRecord
}

// Response is the result of a lookup. Code is RetOK, or RetNotFound when no
// table knows the identifier; both come with a nil error.
type Response struct {
	Code     errs.Code
	Active   []registry.Endpoint
	Inactive []registry.Endpoint
}

// Facade answers lookups from a Directory. It never writes to it.
type Facade struct {
	dir   *directory.Directory
	sink  audit.Sink
	load  directory.LoadMetric
	trace bool
}

// Option configures a Facade.
type Option func(*Facade)

// WithAuditSink sets the audit sink, audit.Default() otherwise.
func WithAuditSink(s audit.Sink) Option {
	return func(f *Facade) {
		f.sink = s
	}
}

// WithLoadMetric annotates returned endpoints with their load.
func WithLoadMetric(l directory.LoadMetric) Option {
	return func(f *Facade) {
		f.load = l
	}
}

// WithTraceLog logs the resolution trace of every lookup at info level.
func WithTraceLog(enable bool) Option {
	return func(f *Facade) {
		f.trace = enable
	}
}

// New creates a Facade over dir.
func New(dir *directory.Directory, opts ...Option) *Facade {
	f := &Facade{dir: dir}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FindObjectByID returns the active endpoints of req.ID.
func (f *Facade) FindObjectByID(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByID, req, func(tr *directory.Trace) directory.Result {
		all := f.dir.ResolveAll(req.ID, directory.WithTrace(tr))
		return directory.Result{Active: all.Active, Found: all.Found}
	})
}

// FindObjectByID4Any returns every active and inactive endpoint of req.ID.
func (f *Facade) FindObjectByID4Any(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByID4Any, req, func(tr *directory.Trace) directory.Result {
		return f.dir.ResolveAll(req.ID, directory.WithTrace(tr))
	})
}

// FindObjectByID4All walks the priority chain of the caller's group.
func (f *Facade) FindObjectByID4All(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByID4All, req, func(tr *directory.Trace) directory.Result {
		return f.dir.ResolveInPriorityChain(req.ID, req.CallerIP, directory.WithTrace(tr))
	})
}

// FindObjectByIDInSameGroup returns the endpoints working in the caller's group.
func (f *Facade) FindObjectByIDInSameGroup(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByIDInSameGroup, req, func(tr *directory.Trace) directory.Result {
		return f.dir.ResolveInGroup(req.ID, req.CallerIP, directory.MatchAssignedGroup, directory.WithTrace(tr))
	})
}

// FindObjectByIDInGroupPriority walks the priority chain of the caller's group.
func (f *Facade) FindObjectByIDInGroupPriority(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByIDInGroupPriority, req, func(tr *directory.Trace) directory.Result {
		return f.dir.ResolveInPriorityChain(req.ID, req.CallerIP, directory.WithTrace(tr))
	})
}

// FindObjectByIDInSameStation returns the endpoints located in req.Station.
func (f *Facade) FindObjectByIDInSameStation(ctx context.Context, req Request) (*Response, error) {
	return f.do(ctx, OpFindObjectByIDInSameStation, req, func(tr *directory.Trace) directory.Result {
		return f.dir.ResolveInStation(req.ID, req.Station, directory.WithTrace(tr))
	})
}

// FindObjectByIDInSameSet returns the endpoints registered in set req.SetID.
// An empty set id resolves to every endpoint, a malformed one is rejected.
// Records given with the request replace the set table lookup.
func (f *Facade) FindObjectByIDInSameSet(ctx context.Context, req Request) (*Response, error) {
	if req.SetID != "" {
		if _, err := registry.ParseSetDescriptor(req.SetID); err != nil {
			return f.reject(ctx, OpFindObjectByIDInSameSet, req, "set id %q: %v", req.SetID, err)
		}
	}
	return f.do(ctx, OpFindObjectByIDInSameSet, req, func(tr *directory.Trace) directory.Result {
		if req.Records != nil {
			return f.dir.ResolveInSetRecords(req.SetID, req.Records, directory.WithTrace(tr))
		}
		return f.dir.ResolveInSet(req.ID, []string{req.SetID}, directory.WithTrace(tr))
	})
}

func (f *Facade) do(
	ctx context.Context,
	op string,
	req Request,
	resolve func(*directory.Trace) directory.Result,
) (*Response, error) {
	if strings.TrimSpace(req.ID) == "" {
		return f.reject(ctx, op, req, "empty service id")
	}
	start := time.Now()
	tr := &directory.Trace{}
	res := resolve(tr)

	rsp := &Response{Code: errs.RetOK, Active: res.Active, Inactive: res.Inactive}
	if !res.Found {
		rsp.Code = errs.RetNotFound
	}
	if f.load != nil {
		rsp.Active = f.dir.AnnotateWeight(rsp.Active, f.load)
		rsp.Inactive = f.dir.AnnotateWeight(rsp.Inactive, f.load)
	}

	metrics.IncrCounter(metrics.ResolvePrefix+op, 1)
	for _, reason := range tr.Degraded {
		metrics.IncrCounter(metrics.FallbackPrefix+reason, 1)
	}
	rec := newRecord(op, req, rsp.Code)
	rec.Active, rec.Inactive, rec.Found = len(rsp.Active), len(rsp.Inactive), res.Found
	rec.Degraded = tr.Degraded
	rec.Trace = tr.String()
	rec.Latency = time.Since(start)
	f.emit(ctx, rec)
	logf := log.DebugContextf
	if f.trace {
		logf = log.InfoContextf
	}
	logf(ctx, "%s %s caller:%s active:%d inactive:%d %s",
		op, req.ID, req.CallerIP, rec.Active, rec.Inactive, rec.Trace)
	return rsp, nil
}

func (f *Facade) reject(ctx context.Context, op string, req Request, format string, args ...interface{}) (*Response, error) {
	err := errs.Wrapf(errs.ErrInvalidArgument, errs.RetInvalidArgument, format, args...)
	f.emit(ctx, newRecord(op, req, errs.RetInvalidArgument))
	return nil, err
}

func newRecord(op string, req Request, code errs.Code) *audit.Record {
	rec := audit.NewRecord(op, req.ID)
	rec.CallerIP = req.CallerIP
	rec.Station = req.Station
	rec.SetID = req.SetID
	rec.Code = int32(code)
	return rec
}

func (f *Facade) emit(ctx context.Context, rec *audit.Record) {
	sink := f.sink
	if sink == nil {
		sink = audit.Default()
	}
	if err := sink.Write(rec); err != nil {
		log.WarnContextf(ctx, "audit %s %s: %v", rec.Op, rec.ID, err)
	}
}
