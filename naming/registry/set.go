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
	"errors"
	"strings"
)

// SetWildcard matches any area or group of a set.
const SetWildcard = "*"

// ErrInvalidSet is returned when a set descriptor cannot be parsed.
var ErrInvalidSet = errors.New("registry: invalid set descriptor")

// SetDescriptor names a set partition as name.area.group.
// Empty area or group, or SetWildcard, match anything.
type SetDescriptor struct {
	Name  string
	Area  string
	Group string
}

// ParseSetDescriptor parses "name", "name.area" or "name.area.group".
// The name must be concrete and no part may be blank.
func ParseSetDescriptor(s string) (SetDescriptor, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > 3 {
		return SetDescriptor{}, ErrInvalidSet
	}
	for _, p := range parts {
		if p == "" {
			return SetDescriptor{}, ErrInvalidSet
		}
	}
	if parts[0] == SetWildcard {
		return SetDescriptor{}, ErrInvalidSet
	}
	d := SetDescriptor{Name: parts[0]}
	if len(parts) > 1 {
		d.Area = parts[1]
	}
	if len(parts) > 2 {
		d.Group = parts[2]
	}
	return d, nil
}

// String returns the dotted form, omitting trailing unset parts.
func (d SetDescriptor) String() string {
	switch {
	case d.Group != "":
		return d.Name + "." + orWildcard(d.Area) + "." + d.Group
	case d.Area != "":
		return d.Name + "." + d.Area
	default:
		return d.Name
	}
}

// AnyArea reports whether the descriptor accepts every area.
func (d SetDescriptor) AnyArea() bool {
	return d.Area == "" || d.Area == SetWildcard
}

// AnyGroup reports whether the descriptor accepts every group.
func (d SetDescriptor) AnyGroup() bool {
	return d.Group == "" || d.Group == SetWildcard
}

func orWildcard(s string) string {
	if s == "" {
		return SetWildcard
	}
	return s
}
