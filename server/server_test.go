// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"
)

type echoService struct{}

type EchoArgs struct {
	Msg string `json:"msg"`
}

type EchoReply struct {
	Msg string `json:"msg"`
}

func (*echoService) Echo(_ *http.Request, args *EchoArgs, reply *EchoReply) error {
	reply.Msg = args.Msg
	return nil
}

func TestServerRoutes(t *testing.T) {
	require := require.New(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	served := make(chan string, 1)
	s := New(
		Config{
			BaseURL:         "/ext",
			HTTP:            NewDefaultHTTPConfig(),
			AllowedOrigins:  []string{"*"},
			AllowedHosts:    []string{"localhost"},
			ShutdownTimeout: time.Second,
		},
		logging.NoLog{},
		listener,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				served <- r.URL.Path
				next.ServeHTTP(w, r)
			})
		},
		LogRequests(logging.NoLog{}),
	)

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	require.NoError(s.AddRoute(h, "counter", "/health"))
	require.ErrorIs(s.AddRoute(h, "counter", "/health"), ErrDuplicateRoute)
	require.Equal([]string{"/health"}, s.Routes("counter"))

	done := make(chan error, 1)
	go func() {
		done <- s.Dispatch()
	}()

	resp, err := http.Get("http://" + s.Addr().String() + "/ext/counter/health")
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("ok", string(body))
	require.Equal("/ext/counter/health", <-served)

	require.NoError(s.Shutdown())
	require.ErrorIs(<-done, http.ErrServerClosed)
}

func TestFilterInvalidHosts(t *testing.T) {
	require := require.New(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := filterInvalidHosts(ok, []string{"localhost"})

	for host, code := range map[string]int{
		"localhost:9650":   http.StatusOK,
		"LOCALHOST":        http.StatusOK,
		"127.0.0.1:9650":   http.StatusOK,
		"evil.example:443": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(code, rec.Code, host)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "evil.example"
	rec := httptest.NewRecorder()
	filterInvalidHosts(ok, []string{"*"}).ServeHTTP(rec, req)
	require.Equal(http.StatusOK, rec.Code)
}

func TestNewHandler(t *testing.T) {
	require := require.New(t)

	h, err := NewHandler(&echoService{}, "echo")
	require.NoError(err)

	body := `{"jsonrpc":"2.0","id":1,"method":"echo.echo","params":{"msg":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `"msg":"hi"`)
}

func TestLogRequestsStatus(t *testing.T) {
	require := require.New(t)

	h := LogRequests(logging.NoLog{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(http.StatusTeapot, rec.Code)

	_, _, err := (&statusRecorder{ResponseWriter: rec}).Hijack()
	require.ErrorIs(err, ErrHijackUnsupported)
}
