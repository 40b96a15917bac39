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

package topology

import (
	"encoding/binary"
	"net"
	"strings"
)

const wildcardSuffix = ".*"

// IPToUint32 parses a dotted IPv4 address into its 32-bit big endian value.
func IPToUint32(ip string) (uint32, bool) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return 0, false
	}
	v4 := parsed.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// Uint32ToIP formats a 32-bit value as a dotted IPv4 address.
func Uint32ToIP(ip uint32) string {
	b := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(b, ip)
	return b.String()
}

// StarString returns the a.b.c.* wildcard form covering ip.
func StarString(ip uint32) string {
	s := Uint32ToIP(ip)
	return s[:strings.LastIndexByte(s, '.')] + wildcardSuffix
}

// parseRule parses an ip rule, "a.b.c.d" or "a.b.c.*".
// Wildcard rules are keyed by the address with the last octet cleared.
func parseRule(rule string) (key uint32, wildcard bool, ok bool) {
	rule = strings.TrimSpace(rule)
	if strings.HasSuffix(rule, wildcardSuffix) {
		key, ok = IPToUint32(strings.TrimSuffix(rule, wildcardSuffix) + ".0")
		return key, true, ok
	}
	key, ok = IPToUint32(rule)
	return key, false, ok
}
