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

// Package expandenv replaces ${key} in config bytes with environment values.
package expandenv

import (
	"bytes"
	"os"
)

// ExpandEnv looks for ${var} in s and replaces it with the value of the env var.
// ${var:-def} yields def when var is unset or empty. $var without braces is kept.
// A ${ that is never closed, or whose name contains a space, new line or quote, is kept as is.
// ${} is removed.
func ExpandEnv(s []byte) []byte {
	var out []byte
	last := 0
	for j := 0; j+2 < len(s); j++ {
		if s[j] != '$' || s[j+1] != '{' {
			continue
		}
		end, ok := closing(s[j+2:])
		if !ok {
			continue
		}
		if out == nil {
			out = make([]byte, 0, 2*len(s))
		}
		out = append(out, s[last:j]...)
		out = append(out, lookup(s[j+2:j+2+end])...)
		j += 2 + end
		last = j + 1
	}
	if out == nil {
		return s
	}
	return append(out, s[last:]...)
}

// closing returns the offset of the '}' ending the expression at the head of s.
func closing(s []byte) (int, bool) {
	for i, c := range s {
		switch c {
		case ' ', '\n', '"':
			return 0, false
		case '}':
			return i, true
		}
	}
	return 0, false
}

func lookup(expr []byte) string {
	if len(expr) == 0 {
		return ""
	}
	name, def, hasDef := bytes.Cut(expr, []byte(":-"))
	v := os.Getenv(string(name))
	if v == "" && hasDef {
		return string(def)
	}
	return v
}
