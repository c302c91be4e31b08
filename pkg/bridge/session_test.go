// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"errors"
	"sync"
	"syscall"
	"testing"
)

func TestNewSessionRejectsSameIndex(t *testing.T) {
	_, err := NewSession(newFakeSocket(), Handle{Name: "a", Index: 4}, Handle{Name: "b", Index: 4})
	if !errors.Is(err, ErrSameInterface) || KindOf(err) != KindConfig {
		t.Fatalf("expected KindConfig ErrSameInterface, got %v", err)
	}
}

func TestSessionShutdownOnce(t *testing.T) {
	sock := newFakeSocket()
	s, err := NewSession(sock, wlan, eth)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if !s.Running() {
		t.Fatal("new session should be running")
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Shutdown()
		}()
	}
	wg.Wait()

	if s.Running() {
		t.Error("session still running after Shutdown")
	}
	if got := sock.closeCalls.Load(); got != 1 {
		t.Errorf("Close called %d times, want 1", got)
	}
}

type countingTarget struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTarget) Shutdown() error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return nil
}

func TestCoordinatorFirstRequestWins(t *testing.T) {
	target := &countingTarget{}
	cancels := 0
	c := NewCoordinator(target, func() { cancels++ })

	if c.Requested() || c.Signal() != nil {
		t.Fatal("fresh coordinator should have no request")
	}
	if !c.Request(syscall.SIGINT) {
		t.Fatal("first request should act")
	}
	if c.Request(syscall.SIGTERM) {
		t.Error("second request should be ignored")
	}

	if c.Signal() != syscall.SIGINT {
		t.Errorf("Signal = %v, want SIGINT", c.Signal())
	}
	if target.calls != 1 || cancels != 1 {
		t.Errorf("shutdown calls=%d cancels=%d, want 1 and 1", target.calls, cancels)
	}
}

func TestCoordinatorHandlesSignal(t *testing.T) {
	target := &countingTarget{}
	done := make(chan struct{})
	c := NewCoordinator(target, func() { close(done) })
	c.Start(syscall.SIGUSR2)
	defer c.Stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatalf("kill: %v", err)
	}
	waitFor(t, "shutdown request", c.Requested)
	<-done
	if c.Signal() != syscall.SIGUSR2 {
		t.Errorf("Signal = %v, want SIGUSR2", c.Signal())
	}
	c.Stop()
}
