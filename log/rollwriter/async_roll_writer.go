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

package rollwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

const (
	defaultLogQueueSize     = 10000
	defaultWriteLogSize     = 4 * 1024 // 4KB
	defaultWriteLogInterval = 100 * time.Millisecond
)

// AsyncOptions are the AsyncRollWriter options.
type AsyncOptions struct {
	LogQueueSize     int
	WriteLogSize     int
	WriteLogInterval time.Duration
	// DropLog drops lines instead of blocking when the queue is full.
	DropLog bool
}

// AsyncOption modifies the AsyncOptions.
type AsyncOption func(*AsyncOptions)

// WithLogQueueSize returns an AsyncOption which sets the queue size.
func WithLogQueueSize(n int) AsyncOption {
	return func(o *AsyncOptions) {
		o.LogQueueSize = n
	}
}

// WithDropLog returns an AsyncOption which sets whether to drop on a full queue.
func WithDropLog(b bool) AsyncOption {
	return func(o *AsyncOptions) {
		o.DropLog = b
	}
}

// AsyncRollWriter batches writes to an underlying writer in a single goroutine.
type AsyncRollWriter struct {
	logger io.WriteCloser
	opts   *AsyncOptions

	dropped  atomic.Int64
	logQueue chan []byte
	sync     chan struct{}
	syncErr  chan error
	close    chan struct{}
	closeErr chan error
}

// NewAsyncRollWriter creates a new AsyncRollWriter.
func NewAsyncRollWriter(logger io.WriteCloser, opt ...AsyncOption) *AsyncRollWriter {
	opts := &AsyncOptions{
		LogQueueSize:     defaultLogQueueSize,
		WriteLogSize:     defaultWriteLogSize,
		WriteLogInterval: defaultWriteLogInterval,
	}
	for _, o := range opt {
		o(opts)
	}
	w := &AsyncRollWriter{
		logger:   logger,
		opts:     opts,
		logQueue: make(chan []byte, opts.LogQueueSize),
		sync:     make(chan struct{}),
		syncErr:  make(chan error),
		close:    make(chan struct{}),
		closeErr: make(chan error),
	}
	go w.batchWriteLog()
	return w
}

// Write enqueues a copy of data.
func (w *AsyncRollWriter) Write(data []byte) (int, error) {
	line := make([]byte, len(data))
	copy(line, data)
	if w.opts.DropLog {
		select {
		case w.logQueue <- line:
		default:
			w.dropped.Inc()
			return 0, errors.New("async roll writer: log queue is full")
		}
		return len(data), nil
	}
	w.logQueue <- line
	return len(data), nil
}

// Dropped returns the number of lines dropped on a full queue.
func (w *AsyncRollWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Sync flushes everything queued so far.
func (w *AsyncRollWriter) Sync() error {
	w.sync <- struct{}{}
	return <-w.syncErr
}

// Close flushes and closes the underlying writer.
func (w *AsyncRollWriter) Close() error {
	err := w.Sync()
	close(w.close)
	return multierror.Append(err, <-w.closeErr).ErrorOrNil()
}

func (w *AsyncRollWriter) batchWriteLog() {
	buffer := bytes.NewBuffer(make([]byte, 0, w.opts.WriteLogSize*2))
	ticker := time.NewTicker(w.opts.WriteLogInterval)
	defer ticker.Stop()

	flush := func() error {
		if buffer.Len() == 0 {
			return nil
		}
		_, err := w.logger.Write(buffer.Bytes())
		buffer.Reset()
		return err
	}
	for {
		select {
		case <-ticker.C:
			handleErr(flush(), "flush on tick")
		case data := <-w.logQueue:
			buffer.Write(data)
			if buffer.Len() >= w.opts.WriteLogSize {
				handleErr(flush(), "flush on full buffer")
			}
		case <-w.sync:
			var err error
			for size := len(w.logQueue); size > 0; size-- {
				buffer.Write(<-w.logQueue)
			}
			err = multierror.Append(err, flush()).ErrorOrNil()
			w.syncErr <- err
		case <-w.close:
			w.closeErr <- w.logger.Close()
			return
		}
	}
}

func handleErr(err error, msg string) {
	if err == nil {
		return
	}
	// The log writer itself is failing, so stdout is the only place left.
	fmt.Printf("async roll writer err: %+v, msg: %s\n", err, msg)
}
