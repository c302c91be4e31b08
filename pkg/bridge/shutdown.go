// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Shutdowner is anything that can be asked to release its socket.
type Shutdowner interface {
	Shutdown() error
}

// Coordinator turns termination signals into a single shutdown request.
// The notification path only closes the socket and cancels the run context;
// logging of the event is left to the main goroutine via Signal.
type Coordinator struct {
	target Shutdowner
	cancel context.CancelFunc

	requested atomic.Bool
	signal    atomic.Value // os.Signal

	sigCh    chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
}

// NewCoordinator creates a coordinator that shuts target down and calls
// cancel on the first request.
func NewCoordinator(target Shutdowner, cancel context.CancelFunc) *Coordinator {
	return &Coordinator{
		target: target,
		cancel: cancel,
		sigCh:  make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
}

// Start begins listening for sigs.
func (c *Coordinator) Start(sigs ...os.Signal) {
	signal.Notify(c.sigCh, sigs...)
	go func() {
		for {
			select {
			case sig := <-c.sigCh:
				c.Request(sig)
			case <-c.done:
				return
			}
		}
	}()
}

// Stop stops listening for signals.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.sigCh)
		close(c.done)
	})
}

// Request performs the shutdown as if sig had been delivered. Only the first
// call acts; it reports whether this call was the one that did.
func (c *Coordinator) Request(sig os.Signal) bool {
	if !c.requested.CompareAndSwap(false, true) {
		return false
	}
	if sig != nil {
		c.signal.Store(sig)
	}
	c.target.Shutdown()
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

// Requested reports whether a shutdown has been requested.
func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Signal returns the signal that triggered shutdown, or nil.
func (c *Coordinator) Signal() os.Signal {
	sig, _ := c.signal.Load().(os.Signal)
	return sig
}
