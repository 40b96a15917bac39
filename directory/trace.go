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

package directory

import (
	"fmt"
	"strings"
)

// Degrade reasons recorded when a resolution falls back to a broader result.
const (
	ReasonTopologyMiss = "topology_miss"
	ReasonEmptyFilter  = "empty_filter"
	ReasonNoSetBucket  = "no_set_bucket"
	ReasonBadSet       = "bad_set"
)

// Step is one filter stage of a resolution.
type Step struct {
	Filter string `json:"filter"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Note   string `json:"note,omitempty"`
}

// Trace collects the stages of one resolution call. A nil *Trace records nothing.
type Trace struct {
	Steps    []Step   `json:"steps"`
	Degraded []string `json:"degraded,omitempty"`
}

func (t *Trace) step(filter string, before, after int, note string) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, Step{Filter: filter, Before: before, After: after, Note: note})
}

func (t *Trace) degrade(reason string) {
	if t == nil {
		return
	}
	t.Degraded = append(t.Degraded, reason)
}

// String renders the trace on one line, such as "group(3->0 assigned=[5]) degraded:empty_filter".
func (t *Trace) String() string {
	if t == nil || (len(t.Steps) == 0 && len(t.Degraded) == 0) {
		return ""
	}
	var b strings.Builder
	for i, s := range t.Steps {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s(%d->%d", s.Filter, s.Before, s.After)
		if s.Note != "" {
			b.WriteString(" " + s.Note)
		}
		b.WriteByte(')')
	}
	if len(t.Degraded) > 0 {
		b.WriteString(" degraded:" + strings.Join(t.Degraded, ","))
	}
	return b.String()
}

// ResolveOption configures one resolution call.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	trace *Trace
}

// WithTrace records the filter stages of the call into t.
func WithTrace(t *Trace) ResolveOption {
	return func(o *resolveOptions) {
		o.trace = t
	}
}

func newResolveOptions(opts []ResolveOption) resolveOptions {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
