// SPDX-License-Identifier: MPL-2.0

package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/pkg/types"
)

// DefaultBindHost is the host status listeners bind to when none is configured.
const DefaultBindHost = "0.0.0.0"

type (
	// HTTPConfig configures an HTTP status listener.
	HTTPConfig struct {
		// Endpoint names the catalog entry to bind to. Nil selects endpoint.Default.
		Endpoint *types.EndpointName
		// Host is the bind host (default: 0.0.0.0).
		Host string
		// ReadHeaderTimeout bounds request header reads (default: 10s).
		ReadHeaderTimeout time.Duration
	}

	// HTTPListener serves instance status over HTTP.
	//
	//	GET /health   JSON Status; 503 unless the instance is running
	//	GET /healthz  plain "ok"
	HTTPListener struct {
		Base

		cfg    HTTPConfig
		ep     endpoint.Endpoint
		sc     ServiceContext
		logger *log.Logger

		mu        sync.Mutex
		srv       *http.Server
		addr      string
		serveDone chan struct{}
	}
)

// HTTP returns a Factory producing HTTP status listeners.
func HTTP(cfg HTTPConfig) Factory {
	return func(sc ServiceContext) (Listener, error) {
		l, err := NewHTTP(sc, cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// NewHTTP resolves the configured endpoint and builds an HTTP listener.
// Endpoint configuration errors surface here, before anything is bound.
func NewHTTP(sc ServiceContext, cfg HTTPConfig) (*HTTPListener, error) {
	ep, err := sc.Resolve(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("http listener: %w", err)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultBindHost
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}

	return &HTTPListener{
		cfg:       cfg,
		ep:        ep,
		sc:        sc,
		logger:    sc.logger("http"),
		serveDone: make(chan struct{}),
	}, nil
}

// Open binds the endpoint and starts serving. The returned address has the
// form <protocol>://+:<port> with the port actually bound.
func (l *HTTPListener) Open(ctx context.Context) (string, error) {
	if err := l.checkOpen(); err != nil {
		return "", err
	}

	bind := l.ep.BindAddress(l.cfg.Host)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", bind)
	if err != nil {
		l.markFaulted()
		return "", fmt.Errorf("failed to listen on %s: %w", bind, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", l.handleHealth)
	mux.HandleFunc("GET /healthz", l.handleHealthz)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: l.cfg.ReadHeaderTimeout,
	}

	l.mu.Lock()
	l.srv = srv
	l.addr = ln.Addr().String()
	l.mu.Unlock()

	if !l.markOpened() {
		_ = ln.Close()
		return "", fmt.Errorf("%w (state: %s)", ErrAlreadyOpened, l.State())
	}

	go l.serve(srv, ln)

	url := l.ep.WithPort(boundPort(ln)).URL()
	l.logger.Info("listening", "endpoint", l.ep.Name, "address", url)
	return url, nil
}

// Close shuts the server down gracefully. When ctx ends first the server is
// force-closed and the context error is returned.
func (l *HTTPListener) Close(ctx context.Context) error {
	if !l.beginClose() {
		return nil
	}
	srv := l.server()

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		<-l.serveDone
		l.markFaulted()
		return fmt.Errorf("graceful shutdown of %s: %w", l.Addr(), err)
	}
	<-l.serveDone
	l.logger.Debug("closed", "address", l.Addr())
	return nil
}

// Abort closes the server and every open connection without waiting.
func (l *HTTPListener) Abort() error {
	if !l.beginClose() {
		return nil
	}
	return l.server().Close()
}

// Addr returns the bound host:port, or "" before Open.
func (l *HTTPListener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *HTTPListener) server() *http.Server {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.srv
}

func (l *HTTPListener) serve(srv *http.Server, ln net.Listener) {
	defer close(l.serveDone)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("serve error", "error", err)
	}
}

// handleHealth writes the instance status as JSON.
func (l *HTTPListener) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := l.sc.snapshot()
	code := http.StatusOK
	if !st.Running {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}

// handleHealthz responds with 200 OK for liveness checks.
func (l *HTTPListener) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// boundPort returns the port ln is actually bound to.
func boundPort(ln net.Listener) types.ListenPort {
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		return types.ListenPort(tcp.Port)
	}
	return 0
}
