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

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topologyYAML = `
refresh: 30s
groups:
  - id: 1
    name: sz-idc
    ips: ["10.0.0.1", "10.0.1.*"]
limits:
  max_chain: 8
  ratio: 0.5
  strict: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndGetters(t *testing.T) {
	path := writeFile(t, t.TempDir(), "topology.yaml", topologyYAML)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, c.GetDuration("refresh", time.Second))
	assert.Equal(t, 8, c.GetInt("limits.max_chain", 0))
	assert.Equal(t, int64(8), c.GetInt64("limits.max_chain", 0))
	assert.Equal(t, uint32(8), c.GetUint32("limits.max_chain", 0))
	assert.Equal(t, 0.5, c.GetFloat64("limits.ratio", 0))
	assert.True(t, c.GetBool("limits.strict", false))
	assert.Equal(t, "30s", c.GetString("refresh", ""))
	assert.True(t, c.IsSet("limits.ratio"))
	assert.False(t, c.IsSet("limits.absent"))
	assert.False(t, c.IsSet("refresh.deeper"))
	assert.Equal(t, "def", c.Get("nope", "def"))
	assert.Equal(t, 7, c.GetInt("refresh", 7))
	assert.NotEmpty(t, c.Bytes())

	var out struct {
		Groups []struct {
			ID   int      `yaml:"id"`
			Name string   `yaml:"name"`
			IPs  []string `yaml:"ips"`
		} `yaml:"groups"`
	}
	require.NoError(t, c.Unmarshal(&out))
	require.Len(t, out.Groups, 1)
	assert.Equal(t, "sz-idc", out.Groups[0].Name)

	again, err := Load(path)
	require.NoError(t, err)
	assert.Same(t, c, again)
	require.NoError(t, Reload(path))
	assert.ErrorIs(t, Reload(path, WithCodec("json")), ErrConfigNotExist)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/no/such/file.yaml")
	assert.Error(t, err)
	_, err = Load("x", WithCodec("no-codec"))
	assert.Equal(t, ErrCodecNotExist, err)
	_, err = Load("x", WithProvider("no-provider"))
	assert.Equal(t, ErrProviderNotExist, err)

	path := writeFile(t, t.TempDir(), "bad.yaml", "a: [")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestCodecs(t *testing.T) {
	dir := t.TempDir()
	j, err := Load(writeFile(t, dir, "c.json", `{"a":{"b":3}}`), WithCodec("json"))
	require.NoError(t, err)
	assert.Equal(t, 3, j.GetInt("a.b", 0))

	tm, err := Load(writeFile(t, dir, "c.toml", "[a]\nb = \"x\"\n"), WithCodec("toml"))
	require.NoError(t, err)
	assert.Equal(t, "x", tm.GetString("a.b", ""))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("REGISTRY_TEST_STATION", "sz")
	path := writeFile(t, t.TempDir(), "env.yaml", "station: ${REGISTRY_TEST_STATION}\n")
	c, err := Load(path, WithExpandEnv())
	require.NoError(t, err)
	assert.Equal(t, "sz", c.GetString("station", ""))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "watch.yaml", "version: 1\n")

	var (
		mu   sync.Mutex
		msgs []WatchMessage
	)
	c, err := Load(path, WithWatch(), WithWatchHook(func(m WatchMessage) {
		mu.Lock()
		msgs = append(msgs, m)
		mu.Unlock()
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, c.GetInt("version", 0))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0644))
	assert.Eventually(t, func() bool {
		return c.GetInt("version", 0) == 2
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "file", msgs[len(msgs)-1].Provider)
	assert.NoError(t, msgs[len(msgs)-1].Error)
}

func TestIsModified(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mod.yaml")
	p := newFileProvider()
	got, ok := p.isModified(fsnotify.Event{Name: filename})
	assert.Zero(t, got)
	assert.False(t, ok)

	got, ok = p.isModified(fsnotify.Event{Op: fsnotify.Write, Name: filename})
	assert.Zero(t, got)
	assert.False(t, ok)

	p.cache[filepath.Clean(filename)] = filename
	got, ok = p.isModified(fsnotify.Event{Op: fsnotify.Write, Name: filename})
	assert.Zero(t, got)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filename, []byte("test"), 0644))
	got, ok = p.isModified(fsnotify.Event{Op: fsnotify.Create, Name: filename})
	assert.NotZero(t, got)
	assert.True(t, ok)

	p.modTime[filename] = got + 10000
	got, ok = p.isModified(fsnotify.Event{Op: fsnotify.Write, Name: filename})
	assert.Zero(t, got)
	assert.False(t, ok)
}
