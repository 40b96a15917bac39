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

package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
)

func TestSetsFromEndpoints(t *testing.T) {
	a := registry.Endpoint{Host: "10.0.0.1", Port: 1, Set: "app.sz.1"}
	b := registry.Endpoint{Host: "10.0.0.1", Port: 2, Set: "app.sz"}
	c := registry.Endpoint{Host: "10.0.0.1", Port: 3}
	bad := registry.Endpoint{Host: "10.0.0.1", Port: 4, Set: "*.x"}
	got := SetsFromEndpoints(
		directory.Table{"svc.Echo": {a, c, bad}, "svc.Plain": {c}},
		directory.Table{"svc.Echo": {b}},
	)
	want := directory.SetTable{
		"svc.Echo": {"app": {
			{Area: "sz", Group: "1", Active: true, Endpoint: a},
			{Area: "sz", Group: "*", Active: false, Endpoint: b},
		}},
		"svc.Plain": {},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sets mismatch (-want +got):\n%s", diff)
	}
}
