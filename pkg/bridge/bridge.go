// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package bridge repeats Ethernet frames between two interfaces over a
// single AF_PACKET socket.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mbeema/wlbr/pkg/health"
)

// FlagController changes interface flags.
type FlagController interface {
	EnablePromiscuous(name string) error
}

// Socket is a Conn that can also set interface flags through its fd.
type Socket interface {
	Conn
	FlagController
}

// Config holds bridge construction parameters.
type Config struct {
	Wireless string // uplink side
	Client   string // wired side, put into promiscuous mode
	Wait     bool

	Recheck <-chan struct{}
	Lookup  LookupFunc
	Open    func() (Socket, error)
	Stats   *health.Stats
	Logger  *zap.Logger

	// OnRunning is called once the forward loop is about to start.
	OnRunning func(wireless, client Handle)
}

// Bridge resolves the interfaces, opens the socket and runs the engine.
type Bridge struct {
	cfg      *Config
	logger   *zap.Logger
	resolver *Resolver

	mu       sync.Mutex
	session  *Session
	stopping atomic.Bool
}

func New(cfg *Config) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := NewResolver(cfg.Lookup, logger)
	r.Wait = cfg.Wait
	r.Recheck = cfg.Recheck

	return &Bridge{
		cfg:      cfg,
		logger:   logger,
		resolver: r,
	}
}

// Run blocks for the lifetime of the bridge. It returns nil after a shutdown
// request or a clean end of stream, ctx.Err() if cancelled while waiting for
// interfaces, and a *Error for every fatal condition.
func (b *Bridge) Run(ctx context.Context) error {
	wireless, client, sock, err := b.setup(ctx)
	if err != nil {
		return err
	}

	session, err := NewSession(sock, wireless, client)
	if err != nil {
		sock.Close()
		return err
	}

	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
	defer session.Shutdown()

	// A shutdown requested before the session existed had nothing to close.
	if b.stopping.Load() || ctx.Err() != nil {
		return nil
	}
	stop := context.AfterFunc(ctx, func() { session.Shutdown() })
	defer stop()

	b.logger.Info("bridge running",
		zap.String("wireless", wireless.Name),
		zap.String("client", client.Name),
	)
	if b.cfg.OnRunning != nil {
		b.cfg.OnRunning(wireless, client)
	}

	return NewEngine(session, b.cfg.Stats, b.logger).Run(ctx)
}

// Shutdown closes the active session's socket, if any. Safe to call from
// any goroutine and any number of times.
func (b *Bridge) Shutdown() error {
	b.stopping.Store(true)
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Shutdown()
}

// Setup runs every startup step that can fail: resolving both interfaces,
// opening the socket and enabling promiscuous mode on the client. The caller
// owns the returned socket. A daemonizing parent uses it to report startup
// failures before detaching.
func (b *Bridge) Setup(ctx context.Context) (Socket, error) {
	_, _, sock, err := b.setup(ctx)
	return sock, err
}

func (b *Bridge) setup(ctx context.Context) (Handle, Handle, Socket, error) {
	wireless, client, err := b.resolver.Resolve(ctx, b.cfg.Wireless, b.cfg.Client)
	if err != nil {
		return Handle{}, Handle{}, nil, err
	}

	b.logger.Info("opening packet socket")
	sock, err := b.open()
	if err != nil {
		return Handle{}, Handle{}, nil, err
	}

	b.logger.Info("putting client interface into promiscuous mode", zap.String("interface", client.Name))
	if err := sock.EnablePromiscuous(client.Name); err != nil {
		sock.Close()
		return Handle{}, Handle{}, nil, err
	}
	return wireless, client, sock, nil
}

func (b *Bridge) open() (Socket, error) {
	if b.cfg.Open != nil {
		return b.cfg.Open()
	}
	sock, err := OpenPacketSocket()
	if err != nil {
		return nil, err
	}
	return sock, nil
}
