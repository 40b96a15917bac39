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

package metrics

// ICounter is the interface that emits counter type metrics.
type ICounter interface {
	// Incr increments the counter by one.
	Incr()
	// IncrBy increments the counter by delta.
	IncrBy(delta float64)
}

type counter struct {
	name string
}

// Incr increments the counter by one.
func (c *counter) Incr() {
	c.IncrBy(1)
}

// IncrBy increments the counter by v.
func (c *counter) IncrBy(v float64) {
	report(c.name, v, PolicySUM)
}
