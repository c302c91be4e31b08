// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"fmt"
	"sync/atomic"
)

// Session owns the packet socket for the lifetime of one bridge.
type Session struct {
	Wireless Handle
	Client   Handle

	conn    Conn
	running atomic.Bool
}

// NewSession takes ownership of conn. The two handles must name distinct
// interfaces.
func NewSession(conn Conn, wireless, client Handle) (*Session, error) {
	if wireless.Index == client.Index {
		return nil, newError(KindConfig, "create session", "",
			fmt.Errorf("%w: %s and %s (index %d)", ErrSameInterface, wireless.Name, client.Name, wireless.Index))
	}
	s := &Session{
		Wireless: wireless,
		Client:   client,
		conn:     conn,
	}
	s.running.Store(true)
	return s, nil
}

// Running reports whether the socket is still open.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Shutdown closes the socket. Only the first call closes; later and
// concurrent calls return nil. Safe to call from any goroutine, which is what
// unblocks an Engine parked in ReadFrame.
func (s *Session) Shutdown() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	return s.conn.Close()
}
