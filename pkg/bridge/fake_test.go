// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFrame struct {
	data []byte
	meta Meta
}

type fakeWrite struct {
	data    []byte
	ifindex int
}

// fakeSocket feeds queued frames to ReadFrame and records writes. Closing
// the frames channel simulates a zero-length read.
type fakeSocket struct {
	frames  chan fakeFrame
	reading chan struct{}
	closed  chan struct{}

	closeOnce  sync.Once
	closeCalls atomic.Int32

	mu       sync.Mutex
	writes   []fakeWrite
	promisc  []string
	writeN   func(n int) int // bytes reported written; nil means all
	writeErr error
	readErr  error
	flagErr  error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		frames:  make(chan fakeFrame, 64),
		reading: make(chan struct{}, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeSocket) push(data []byte, ifindex int, pktType uint8) {
	f.frames <- fakeFrame{data: data, meta: Meta{Ifindex: ifindex, PktType: pktType}}
}

func (f *fakeSocket) ReadFrame(b []byte) (int, Meta, error) {
	select {
	case f.reading <- struct{}{}:
	default:
	}
	if f.readErr != nil {
		return 0, Meta{}, f.readErr
	}
	select {
	case <-f.closed:
		return 0, Meta{}, os.ErrClosed
	default:
	}
	select {
	case fr, ok := <-f.frames:
		if !ok {
			return 0, Meta{}, nil
		}
		return copy(b, fr.data), fr.meta, nil
	case <-f.closed:
		return 0, Meta{}, os.ErrClosed
	}
}

func (f *fakeSocket) WriteTo(b []byte, ifindex int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{data: append([]byte(nil), b...), ifindex: ifindex})
	if f.writeN != nil {
		return f.writeN(len(b)), nil
	}
	return len(b), nil
}

func (f *fakeSocket) Close() error {
	f.closeCalls.Add(1)
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSocket) EnablePromiscuous(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flagErr != nil {
		return f.flagErr
	}
	f.promisc = append(f.promisc, name)
	return nil
}

func (f *fakeSocket) recordedWrites() []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeWrite(nil), f.writes...)
}

func (f *fakeSocket) promiscuous() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.promisc...)
}

// fakeLinks is a mutable name -> index table.
type fakeLinks struct {
	mu    sync.Mutex
	links map[string]int
	calls int
}

func newFakeLinks(links map[string]int) *fakeLinks {
	return &fakeLinks{links: links}
}

func (l *fakeLinks) add(name string, index int) {
	l.mu.Lock()
	l.links[name] = index
	l.mu.Unlock()
}

func (l *fakeLinks) lookup(name string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if idx, ok := l.links[name]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
}

func frameOf(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill + byte(i)
	}
	return b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}
