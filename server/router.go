// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/exp/maps"
)

var ErrDuplicateRoute = errors.New("duplicate route")

type router struct {
	lock   sync.RWMutex
	router *mux.Router

	routes map[string]map[string]http.Handler // base -> endpoint -> handler
}

func newRouter() *router {
	return &router{
		router: mux.NewRouter(),
		routes: make(map[string]map[string]http.Handler),
	}
}

func (r *router) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	r.router.ServeHTTP(writer, request)
}

func (r *router) AddRouter(base, endpoint string, handler http.Handler) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	endpoints, ok := r.routes[base]
	if !ok {
		endpoints = make(map[string]http.Handler)
		r.routes[base] = endpoints
	}
	if _, ok := endpoints[endpoint]; ok {
		return fmt.Errorf("%w: %s%s", ErrDuplicateRoute, base, endpoint)
	}
	endpoints[endpoint] = handler
	r.router.Handle(base+endpoint, handler)
	return nil
}

// Routes returns the endpoints registered under [base].
func (r *router) Routes(base string) []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return maps.Keys(r.routes[base])
}
