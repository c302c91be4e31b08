// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// Triggers merges recheck notifications from signals, link events and
// trigger files into the single channel a Resolver waits on. Notifications
// that arrive while one is already pending are coalesced.
type Triggers struct {
	ch    chan struct{}
	count atomic.Int64
}

func NewTriggers() *Triggers {
	return &Triggers{ch: make(chan struct{}, 1)}
}

// C is the channel to hand to Resolver.Recheck.
func (t *Triggers) C() <-chan struct{} {
	return t.ch
}

// Notify requests a recheck. Never blocks.
func (t *Triggers) Notify() {
	t.count.Add(1)
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// Count returns the number of Notify calls so far.
func (t *Triggers) Count() int64 {
	return t.count.Load()
}

// WatchSignals notifies on each delivery of sigs until ctx ends.
func (t *Triggers) WatchSignals(ctx context.Context, sigs ...os.Signal) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				t.Notify()
			}
		}
	}()
}
