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

package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-registry/directory"
	"trpc.group/trpc-go/trpc-registry/naming/registry"
	"trpc.group/trpc-go/trpc-registry/plugin"
	"trpc.group/trpc-go/trpc-registry/source"
	"trpc.group/trpc-go/trpc-registry/source/file"
)

const content = `
active:
  svc.Echo:
    - {host: 10.1.0.1, port: 8000, transport: tcp, assigned_group: 1, declared_group: 1, set: app.sz.1}
    - {host: ${ECHO_HOST}, port: 8001, transport: tcp, station: sh}
inactive:
  svc.Echo:
    - {host: 10.1.0.3, port: 8000, transport: tcp}
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestLoad(t *testing.T) {
	t.Setenv("ECHO_HOST", "10.1.0.2")
	path := filepath.Join(t.TempDir(), "directory.yaml")
	writeFile(t, path, content)

	s, err := file.New(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	u, err := s.Load(context.Background(), true)
	require.NoError(t, err)
	require.True(t, u.Full)
	require.Len(t, u.Active["svc.Echo"], 2)
	assert.Equal(t, "10.1.0.2", u.Active["svc.Echo"][1].Host)
	assert.Equal(t, 1, u.Active["svc.Echo"][0].AssignedGroup)
	assert.Equal(t, []registry.Endpoint{{Host: "10.1.0.3", Port: 8000, Transport: registry.TransportTCP}},
		u.Inactive["svc.Echo"])
	require.Len(t, u.Sets["svc.Echo"]["app"], 1)
	assert.Equal(t, "sz", u.Sets["svc.Echo"]["app"][0].Area)

	u, err = s.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, u, "unchanged file")

	writeFile(t, path, "active:\n  svc.Other:\n    - {host: 10.2.0.1, port: 9000}\n")
	u, err = s.Load(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.Full)
	assert.Len(t, u.Active, 1)
	assert.Contains(t, u.Active, "svc.Other")
}

func TestExplicitSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	writeFile(t, path, `
active:
  svc.Echo:
    - {host: 10.1.0.1, port: 8000, set: app.sz.1}
sets:
  svc.Echo:
    app:
      - {area: gz, group: "*", active: true, endpoint: {host: 10.1.0.9, port: 8000}}
`)
	s, err := file.New(path)
	require.NoError(t, err)
	u, err := s.Load(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, u.Sets["svc.Echo"]["app"], 1)
	assert.Equal(t, "gz", u.Sets["svc.Echo"]["app"][0].Area)
	assert.Equal(t, "10.1.0.9", u.Sets["svc.Echo"]["app"][0].Endpoint.Host)
}

func TestMissingFile(t *testing.T) {
	_, err := file.New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWatchNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	writeFile(t, path, "active: {}\n")
	s, err := file.New(path, file.WithWatch())
	require.NoError(t, err)

	changed := make(chan struct{}, 1)
	s.Notify(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	writeFile(t, path, "active:\n  svc.Echo:\n    - {host: 10.1.0.1, port: 8000}\n")
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	dir := directory.New()
	r := source.NewRefresher(dir, s)
	require.NoError(t, r.Trigger(context.Background()))
	assert.Len(t, dir.Resolve("svc.Echo"), 1)
}

func TestPluginSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	writeFile(t, path, "active: {}\n")
	var cfg plugin.Config
	require.NoError(t, yaml.Unmarshal([]byte(`
source:
  file:
    path: `+path+`
`), &cfg))
	_, err := cfg.SetupClosables()
	require.NoError(t, err)
	s, ok := source.Get("file").(*file.Source)
	require.True(t, ok)
	u, err := s.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, u.Active)
}
