// SPDX-License-Identifier: MPL-2.0

package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/pkg/types"
)

type (
	// SSHConfig configures an SSH status listener.
	SSHConfig struct {
		// Endpoint names the catalog entry to bind to. It must use the tcp
		// protocol. Nil selects endpoint.Default with protocol tcp.
		Endpoint *types.EndpointName
		// Host is the bind host (default: 0.0.0.0).
		Host string
		// HostKeyPath is the PEM host key. It is generated when missing.
		// Empty uses an in-memory key.
		HostKeyPath string
	}

	// SSHListener prints the instance status to every SSH session.
	// Sessions are read-only and need no authentication.
	SSHListener struct {
		Base

		cfg    SSHConfig
		ep     endpoint.Endpoint
		sc     ServiceContext
		logger *log.Logger

		mu        sync.Mutex
		srv       *ssh.Server
		addr      string
		serveDone chan struct{}
	}
)

// SSH returns a Factory producing SSH status listeners.
func SSH(cfg SSHConfig) Factory {
	return func(sc ServiceContext) (Listener, error) {
		l, err := NewSSH(sc, cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// NewSSH resolves the configured endpoint and builds an SSH listener.
func NewSSH(sc ServiceContext, cfg SSHConfig) (*SSHListener, error) {
	ep, err := sc.Resolve(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("ssh listener: %w", err)
	}
	switch {
	case cfg.Endpoint == nil:
		ep.Protocol = types.ProtocolTCP
	case ep.Protocol.Normalize() != types.ProtocolTCP:
		return nil, fmt.Errorf("ssh listener: %w: endpoint %q uses %s, want %s", ErrProtocolMismatch, ep.Name, ep.Protocol, types.ProtocolTCP)
	}
	if cfg.Host == "" {
		cfg.Host = DefaultBindHost
	}

	return &SSHListener{
		cfg:       cfg,
		ep:        ep,
		sc:        sc,
		logger:    sc.logger("ssh"),
		serveDone: make(chan struct{}),
	}, nil
}

// Open binds the endpoint and starts the wish server.
func (l *SSHListener) Open(ctx context.Context) (string, error) {
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

	opts := []ssh.Option{
		wish.WithAddress(ln.Addr().String()),
		wish.WithMiddleware(l.statusMiddleware()),
	}
	if l.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(l.cfg.HostKeyPath))
	}
	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = ln.Close()
		l.markFaulted()
		if l.cfg.HostKeyPath != "" {
			return "", fmt.Errorf("failed to create SSH server: %w: %s: %w", ErrHostKey, l.cfg.HostKeyPath, err)
		}
		return "", fmt.Errorf("failed to create SSH server: %w", err)
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

// Close waits for open sessions to finish or ctx to end.
func (l *SSHListener) Close(ctx context.Context) error {
	if !l.beginClose() {
		return nil
	}
	srv := l.server()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		_ = srv.Close()
		<-l.serveDone
		l.markFaulted()
		return fmt.Errorf("graceful shutdown of %s: %w", l.Addr(), err)
	}
	<-l.serveDone
	l.logger.Debug("closed", "address", l.Addr())
	return nil
}

// Abort closes the server and every session without waiting.
func (l *SSHListener) Abort() error {
	if !l.beginClose() {
		return nil
	}
	if err := l.server().Close(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound host:port, or "" before Open.
func (l *SSHListener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *SSHListener) server() *ssh.Server {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.srv
}

func (l *SSHListener) serve(srv *ssh.Server, ln net.Listener) {
	defer close(l.serveDone)
	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		l.logger.Error("serve error", "error", err)
	}
}

// statusMiddleware writes the status report and ends the session.
func (l *SSHListener) statusMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			l.logger.Debug("session", "user", sess.User(), "remote", sess.RemoteAddr())
			if err := RenderText(sess, l.sc.snapshot()); err != nil {
				l.logger.Warn("writing status", "error", err)
				_ = sess.Exit(1)
				return
			}
			_ = sess.Exit(0)
		}
	}
}
