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

package admin

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"

	"github.com/gorilla/mux"

	"trpc.group/trpc-go/trpc-registry/log"
	"trpc.group/trpc-go/trpc-registry/metrics"
)

// PanicBufLen is the length of the buffer used for stack trace logging
// when goroutine panics, default is 1024.
const panicBufLen = 1024

const metricPanic = "admin.panic"

// newRouter creates a new Router.
func newRouter() *router {
	return &router{
		Router: mux.NewRouter(),
	}
}

type router struct {
	*mux.Router

	sync.RWMutex
	patterns map[string]struct{}
}

// add adds a routing pattern and handler function, restricted to methods if any.
func (r *router) add(pattern string, handler http.HandlerFunc, methods ...string) *mux.Route {
	r.Lock()
	defer r.Unlock()

	route := r.Router.HandleFunc(pattern, handler)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
	if r.patterns == nil {
		r.patterns = make(map[string]struct{})
	}
	r.patterns[pattern] = struct{}{}
	return route
}

// addPrefix routes every path under prefix to handler.
func (r *router) addPrefix(prefix string, handler http.Handler) {
	r.Lock()
	defer r.Unlock()
	r.Router.PathPrefix(prefix).Handler(handler)
}

// ServeHTTP handles incoming HTTP requests.
func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, panicBufLen)
			buf = buf[:runtime.Stack(buf, false)]
			log.Errorf("[PANIC]%v\n%s\n", err, buf)
			metrics.IncrCounter(metricPanic, 1)
			ret := newDefaultRes()
			ret[retErrCode] = http.StatusInternalServerError
			ret[retMessage] = fmt.Sprintf("PANIC : %v", err)
			_ = json.NewEncoder(w).Encode(ret)
		}
	}()
	r.Router.ServeHTTP(w, req)
}

// list returns the sorted list of configured patterns.
func (r *router) list() []string {
	r.RLock()
	defer r.RUnlock()
	l := make([]string, 0, len(r.patterns))
	for p := range r.patterns {
		l = append(l, p)
	}
	sort.Strings(l)
	return l
}
