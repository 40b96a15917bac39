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

package registry

import (
	"net"
	"sync"
)

// nicAddrs holds the addresses of one network interface.
type nicAddrs struct {
	ipv4 []string
	ipv6 []string
}

// first prefers ipv4 over ipv6.
func (a *nicAddrs) first() string {
	if len(a.ipv4) > 0 {
		return a.ipv4[0]
	}
	if len(a.ipv6) > 0 {
		return a.ipv6[0]
	}
	return ""
}

// interfaces enumerates the local nics once.
type interfaces struct {
	once  sync.Once
	addrs map[string]*nicAddrs
	list  func() ([]net.Interface, error)
}

func (p *interfaces) load() map[string]*nicAddrs {
	p.once.Do(func() {
		p.addrs = make(map[string]*nicAddrs)
		ifs, err := p.list()
		if err != nil {
			return
		}
		for _, i := range ifs {
			addrs, err := i.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				p.add(i.Name, addr)
			}
		}
	})
	return p.addrs
}

func (p *interfaces) add(nic string, addr net.Addr) {
	ipNet, ok := addr.(*net.IPNet)
	if !ok {
		return
	}
	a, ok := p.addrs[nic]
	if !ok {
		a = &nicAddrs{}
		p.addrs[nic] = a
	}
	if ipNet.IP.To4() != nil {
		a.ipv4 = append(a.ipv4, ipNet.IP.String())
	} else if ipNet.IP.To16() != nil {
		a.ipv6 = append(a.ipv6, ipNet.IP.String())
	}
}

// localNics records the local nic name to address mapping.
var localNics = &interfaces{list: net.Interfaces}

// getIP returns the ip of nic, empty when the nic is unknown.
func getIP(nic string) string {
	a, ok := localNics.load()[nic]
	if !ok {
		return ""
	}
	return a.first()
}
