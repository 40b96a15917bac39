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

package discovery

import (
	"context"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/query"
)

// DirectoryDiscovery lists the active endpoints resolved by a query facade.
// The options pick the lookup: set, then station, then caller group, then all.
type DirectoryDiscovery struct {
	facade *query.Facade
}

// NewDirectoryDiscovery creates a DirectoryDiscovery over f.
func NewDirectoryDiscovery(f *query.Facade) *DirectoryDiscovery {
	return &DirectoryDiscovery{facade: f}
}

// List implements Discovery. An unknown service returns a RetNotFound error.
func (d *DirectoryDiscovery) List(serviceName string, opt ...Option) ([]registry.Endpoint, error) {
	opts := &Options{Ctx: context.Background()}
	for _, o := range opt {
		o(opts)
	}
	req := query.Request{ID: serviceName, CallerIP: opts.CallerIP, Station: opts.Station, SetID: opts.SetID}

	lookup := d.facade.FindObjectByID
	switch {
	case opts.SetID != "":
		lookup = d.facade.FindObjectByIDInSameSet
	case opts.Station != "":
		lookup = d.facade.FindObjectByIDInSameStation
	case opts.CallerIP != "" && opts.Priority:
		lookup = d.facade.FindObjectByIDInGroupPriority
	case opts.CallerIP != "":
		lookup = d.facade.FindObjectByIDInSameGroup
	}
	rsp, err := lookup(opts.Ctx, req)
	if err != nil {
		return nil, err
	}
	if rsp.Code == errs.RetNotFound {
		return nil, errs.Newf(errs.RetNotFound, "service %s not found", serviceName)
	}
	return rsp.Active, nil
}
