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

	"github.com/fsnotify/fsnotify"

	"trpc.group/trpc-go/trpc-registry/log"
)

func init() {
	RegisterProvider(newFileProvider())
}

func newFileProvider() *FileProvider {
	fp := &FileProvider{
		cb:              make(chan ProviderCallback),
		disabledWatcher: true,
		cache:           make(map[string]string),
		modTime:         make(map[string]int64),
	}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		fp.disabledWatcher = false
		fp.watcher = watcher
		go fp.run()
		return fp
	}
	log.Debugf("fsnotify.NewWatcher err: %+v", err)
	return fp
}

// FileProvider is a config provider which gets config from file system.
type FileProvider struct {
	disabledWatcher bool
	watcher         *fsnotify.Watcher
	cb              chan ProviderCallback
	cache           map[string]string // clean path => path as passed to Read
	modTime         map[string]int64
	mu              sync.RWMutex
}

// Name returns file provider's name.
func (*FileProvider) Name() string {
	return "file"
}

// Read reads the specific path file and starts watching its directory.
func (fp *FileProvider) Read(path string) ([]byte, error) {
	if !fp.disabledWatcher {
		if err := fp.watcher.Add(filepath.Dir(path)); err != nil {
			return nil, err
		}
		fp.mu.Lock()
		fp.cache[filepath.Clean(path)] = path
		fp.mu.Unlock()
	}
	return os.ReadFile(path)
}

// Watch registers a callback for file changes.
func (fp *FileProvider) Watch(cb ProviderCallback) {
	if !fp.disabledWatcher {
		fp.cb <- cb
	}
}

func (fp *FileProvider) run() {
	var fn []ProviderCallback
	for {
		select {
		case i := <-fp.cb:
			fn = append(fn, i)
		case e, ok := <-fp.watcher.Events:
			if !ok {
				return
			}
			if t, ok := fp.isModified(e); ok {
				fp.trigger(e, t, fn)
			}
		}
	}
}

// isModified accepts write and create events, the latter covers editors and
// config syncers that replace the file by rename.
func (fp *FileProvider) isModified(e fsnotify.Event) (int64, bool) {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return 0, false
	}
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	if _, ok := fp.cache[filepath.Clean(e.Name)]; !ok {
		return 0, false
	}
	fi, err := os.Stat(e.Name)
	if err != nil {
		return 0, false
	}
	if fi.ModTime().UnixNano() > fp.modTime[e.Name] {
		return fi.ModTime().UnixNano(), true
	}
	return 0, false
}

func (fp *FileProvider) trigger(e fsnotify.Event, t int64, fn []ProviderCallback) {
	data, err := os.ReadFile(e.Name)
	if err != nil {
		return
	}
	fp.mu.Lock()
	path := fp.cache[filepath.Clean(e.Name)]
	fp.modTime[e.Name] = t
	fp.mu.Unlock()
	for _, f := range fn {
		go f(path, data)
	}
}
