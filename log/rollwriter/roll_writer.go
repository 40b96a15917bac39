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

// Package rollwriter provides a rolling file writer for the registry logs.
// It backs both the framework log and the per-day query audit log:
//  1. rolling by datetime pattern (e.g. one file per day).
//  2. rolling by file size.
//  3. scavenging expired or redundant backups.
package rollwriter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/strftime"
)

const (
	backupTimeFormat = "bk-20060102-150405.00000"
	reopenInterval   = 10 // seconds
)

var _ io.WriteCloser = (*RollWriter)(nil)

// Options are the RollWriter options.
type Options struct {
	// MaxSize is the max size of a single file in bytes, 0 disables rolling by size.
	MaxSize int64
	// MaxBackups is the max number of rolled files to keep.
	MaxBackups int
	// MaxAge is the max days to keep a rolled file.
	MaxAge int
	// TimeFormat is the strftime suffix appended to the file name, e.g. ".%Y%m%d".
	TimeFormat string
}

// Option modifies the Options.
type Option func(*Options)

// WithMaxSize returns an Option which sets the max size in MB.
func WithMaxSize(n int) Option {
	return func(o *Options) {
		o.MaxSize = int64(1024 * 1024 * n)
	}
}

// WithMaxBackups returns an Option which sets the max number of backups.
func WithMaxBackups(n int) Option {
	return func(o *Options) {
		o.MaxBackups = n
	}
}

// WithMaxAge returns an Option which sets the max age in days.
func WithMaxAge(n int) Option {
	return func(o *Options) {
		o.MaxAge = n
	}
}

// WithRotationTime returns an Option which sets the strftime suffix.
func WithRotationTime(s string) Option {
	return func(o *Options) {
		o.TimeFormat = s
	}
}

// RollWriter is a file writer which rolls by size or datetime.
type RollWriter struct {
	filePath string
	opts     *Options

	pattern  *strftime.Strftime
	currDir  string
	currPath string
	currSize int64
	currFile atomic.Value
	openTime int64

	mu         sync.Mutex
	notifyOnce sync.Once
	notifyCh   chan struct{}
}

// NewRollWriter creates a new RollWriter.
func NewRollWriter(filePath string, opt ...Option) (*RollWriter, error) {
	if filePath == "" {
		return nil, errors.New("invalid file path")
	}
	opts := &Options{}
	for _, o := range opt {
		o(opts)
	}
	pattern, err := strftime.New(filePath + opts.TimeFormat)
	if err != nil {
		return nil, errors.New("invalid time pattern")
	}
	w := &RollWriter{
		filePath: filePath,
		opts:     opts,
		pattern:  pattern,
		currDir:  filepath.Dir(filePath),
	}
	if err := os.MkdirAll(w.currDir, 0755); err != nil {
		return nil, err
	}
	return w, nil
}

// Write writes to the current file, reopening it when the time pattern moves on.
func (w *RollWriter) Write(v []byte) (int, error) {
	if w.getCurrFile() == nil || time.Now().Unix()-atomic.LoadInt64(&w.openTime) > reopenInterval {
		w.mu.Lock()
		w.reopenFile()
		w.mu.Unlock()
	}
	f := w.getCurrFile()
	if f == nil {
		return 0, errors.New("open file fail")
	}
	n, err := f.Write(v)
	if atomic.AddInt64(&w.currSize, int64(n)) >= w.opts.MaxSize && w.opts.MaxSize > 0 {
		w.mu.Lock()
		w.backupFile()
		w.mu.Unlock()
	}
	return n, err
}

// Close closes the current file.
func (w *RollWriter) Close() error {
	f := w.getCurrFile()
	if f == nil {
		return nil
	}
	w.currFile.Store((*os.File)(nil))
	return f.Close()
}

// CurrentPath returns the path of the file being written.
func (w *RollWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currPath
}

func (w *RollWriter) getCurrFile() *os.File {
	if f, ok := w.currFile.Load().(*os.File); ok {
		return f
	}
	return nil
}

func (w *RollWriter) reopenFile() {
	if w.getCurrFile() != nil && time.Now().Unix()-atomic.LoadInt64(&w.openTime) <= reopenInterval {
		return
	}
	currPath := w.pattern.FormatString(time.Now())
	if w.currPath != currPath {
		w.currPath = currPath
		w.notify()
	}
	if err := w.doReopenFile(currPath); err != nil {
		fmt.Printf("rollwriter: reopen %s err: %+v\n", currPath, err)
	}
}

func (w *RollWriter) doReopenFile(path string) error {
	atomic.StoreInt64(&w.openTime, time.Now().Unix())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return fmt.Errorf("os.OpenFile %s err: %w", path, err)
	}
	last := w.getCurrFile()
	w.currFile.Store(f)
	if last != nil {
		// Writers that loaded the old handle may still be mid-write.
		time.AfterFunc(20*time.Millisecond, func() { _ = last.Close() })
	}
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("os.Stat %s err: %w", path, err)
	}
	atomic.StoreInt64(&w.currSize, st.Size())
	return nil
}

func (w *RollWriter) backupFile() {
	if atomic.LoadInt64(&w.currSize) < w.opts.MaxSize {
		return
	}
	atomic.StoreInt64(&w.currSize, 0)
	backup := w.currPath + "." + time.Now().Format(backupTimeFormat)
	if _, err := os.Stat(w.currPath); err == nil {
		if err := os.Rename(w.currPath, backup); err != nil {
			fmt.Printf("rollwriter: rename %s to %s err: %+v\n", w.currPath, backup, err)
		}
	}
	if err := w.doReopenFile(w.currPath); err != nil {
		fmt.Printf("rollwriter: reopen %s err: %+v\n", w.currPath, err)
	}
	w.notify()
}

func (w *RollWriter) notify() {
	w.notifyOnce.Do(func() {
		w.notifyCh = make(chan struct{}, 1)
		go w.runCleanFiles()
	})
	select {
	case w.notifyCh <- struct{}{}:
	default:
	}
}

func (w *RollWriter) runCleanFiles() {
	for range w.notifyCh {
		if w.opts.MaxBackups == 0 && w.opts.MaxAge == 0 {
			continue
		}
		w.cleanFiles()
	}
}

// cleanFiles removes backups beyond MaxBackups and older than MaxAge.
func (w *RollWriter) cleanFiles() {
	files, err := w.oldLogFiles()
	if err != nil {
		fmt.Printf("rollwriter: list %s err: %+v\n", w.currDir, err)
		return
	}
	var remove []logInfo
	if w.opts.MaxBackups > 0 && len(files) > w.opts.MaxBackups {
		remove = append(remove, files[w.opts.MaxBackups:]...)
		files = files[:w.opts.MaxBackups]
	}
	if w.opts.MaxAge > 0 {
		cutoff := time.Now().Add(-24 * time.Hour * time.Duration(w.opts.MaxAge))
		for _, f := range files {
			if f.modTime.Before(cutoff) {
				remove = append(remove, f)
			}
		}
	}
	for _, f := range remove {
		if err := os.Remove(filepath.Join(w.currDir, f.name)); err != nil {
			fmt.Printf("rollwriter: remove %s err: %+v\n", f.name, err)
		}
	}
}

// oldLogFiles returns the rolled files newest first, excluding the current one.
func (w *RollWriter) oldLogFiles() ([]logInfo, error) {
	entries, err := os.ReadDir(w.currDir)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(w.filePath)
	current := filepath.Base(w.currPath)
	var files []logInfo
	for _, e := range entries {
		if e.IsDir() || e.Name() == current || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logInfo{name: e.Name(), modTime: fi.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	return files, nil
}

type logInfo struct {
	name    string
	modTime time.Time
}
