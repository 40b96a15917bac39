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
	"net"
	"strconv"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

// IPDiscovery treats the service name as a host:port address.
type IPDiscovery struct{}

// List returns the address itself as the only endpoint.
func (*IPDiscovery) List(serviceName string, opt ...Option) ([]registry.Endpoint, error) {
	host, p, err := net.SplitHostPort(serviceName)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidArgument, errs.RetInvalidArgument, err.Error())
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidArgument, errs.RetInvalidArgument, "port %q", p)
	}
	return []registry.Endpoint{{Host: host, Port: port, Transport: registry.TransportTCP}}, nil
}
