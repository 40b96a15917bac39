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

package errs

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
)

// Stack capture is switched once at startup, see EnableTrace.
var (
	traceable   bool
	traceFilter string
)

const (
	maxStackDepth = 32
	// runtime.Callers, callers and the constructor.
	callerSkip = 3
)

// EnableTrace makes errors created afterwards record the stack of their
// creator. %+v prints it; a non empty filter keeps only the frames whose
// function or file contains filter, such as "trpc-registry/source".
// It is not safe to call concurrently with error creation.
func EnableTrace(filter string) {
	traceable = true
	traceFilter = filter
}

// DisableTrace stops stack capture.
func DisableTrace() {
	traceable = false
	traceFilter = ""
}

// stackTrace holds program counters from the innermost call outwards.
type stackTrace []uintptr

func callers() stackTrace {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(callerSkip, pcs)
	return pcs[:n]
}

func (st stackTrace) frames() []runtime.Frame {
	var out []runtime.Frame
	it := runtime.CallersFrames(st)
	for {
		f, more := it.Next()
		if traceFilter == "" || strings.Contains(f.Function, traceFilter) || strings.Contains(f.File, traceFilter) {
			out = append(out, f)
		}
		if !more {
			return out
		}
	}
}

// Format prints "\nfunction\n\tfile:line" per frame for %+v and
// "[file:line file:line]" for the other verbs.
func (st stackTrace) Format(s fmt.State, verb rune) {
	frames := st.frames()
	if verb == 'v' && s.Flag('+') {
		for _, f := range frames {
			fmt.Fprintf(s, "\n%s\n\t%s:%d", f.Function, f.File, f.Line)
		}
		return
	}
	short := make([]string, len(frames))
	for i, f := range frames {
		short[i] = fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
	}
	io.WriteString(s, "["+strings.Join(short, " ")+"]")
}
