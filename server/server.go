// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout"`
}

func NewDefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Config describes how a [Server] exposes its routes.
type Config struct {
	// BaseURL prefixes every route, e.g. "/ext".
	BaseURL         string
	HTTP            HTTPConfig
	AllowedOrigins  []string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
}

// Middleware decorates the root handler. The first middleware passed to
// [New] is the outermost.
type Middleware func(http.Handler) http.Handler

// Server serves every registered route under [Config.BaseURL].
type Server struct {
	config   Config
	log      logging.Logger
	router   *router
	listener net.Listener
	srv      *http.Server
}

func New(config Config, log logging.Logger, listener net.Listener, middleware ...Middleware) *Server {
	router := newRouter()
	handler := filterInvalidHosts(router, config.AllowedHosts)
	handler = cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowCredentials: true,
	}).Handler(handler)
	handler = gziphandler.GzipHandler(handler)
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}

	log.Info("created API server",
		zap.String("baseURL", config.BaseURL),
		zap.Strings("allowedOrigins", config.AllowedOrigins),
		zap.Strings("allowedHosts", config.AllowedHosts),
		zap.Stringer("addr", listener.Addr()),
	)
	return &Server{
		config:   config,
		log:      log,
		router:   router,
		listener: listener,
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       config.HTTP.ReadTimeout,
			ReadHeaderTimeout: config.HTTP.ReadHeaderTimeout,
			WriteTimeout:      config.HTTP.WriteTimeout,
			IdleTimeout:       config.HTTP.IdleTimeout,
		},
	}
}

// AddRoute serves [handler] at [BaseURL]/[base][endpoint].
func (s *Server) AddRoute(handler http.Handler, base, endpoint string) error {
	prefix := fmt.Sprintf("%s/%s", s.config.BaseURL, base)
	if err := s.router.AddRouter(prefix, endpoint, handler); err != nil {
		return err
	}
	s.log.Info("added route", zap.String("path", prefix+endpoint))
	return nil
}

// Routes lists the endpoints registered under [base].
func (s *Server) Routes(base string) []string {
	return s.router.Routes(fmt.Sprintf("%s/%s", s.config.BaseURL, base))
}

// Dispatch blocks serving requests until [Shutdown] is called, then returns
// [http.ErrServerClosed].
func (s *Server) Dispatch() error {
	return s.srv.Serve(s.listener)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown waits up to [Config.ShutdownTimeout] for in-flight requests and
// then closes the server regardless.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	_ = s.srv.Close()
	return err
}
