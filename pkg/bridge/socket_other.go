// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !linux

package bridge

import (
	"errors"
	"fmt"
	"os"
)

var errUnsupportedPlatform = fmt.Errorf("%w: AF_PACKET sockets need linux", errors.ErrUnsupported)

// PacketSocket is unavailable outside linux; every method fails.
type PacketSocket struct{}

func OpenPacketSocket() (*PacketSocket, error) {
	return nil, newError(KindResource, "open packet socket", "", errUnsupportedPlatform)
}

func AdoptPacketSocket(fd uintptr) (*PacketSocket, error) {
	return nil, newError(KindResource, "adopt packet socket", "", errUnsupportedPlatform)
}

func (s *PacketSocket) File() *os.File { return nil }

func (s *PacketSocket) ReadFrame(b []byte) (int, Meta, error) {
	return 0, Meta{}, errUnsupportedPlatform
}

func (s *PacketSocket) WriteTo(b []byte, ifindex int) (int, error) {
	return 0, errUnsupportedPlatform
}

func (s *PacketSocket) Close() error { return nil }

func (s *PacketSocket) EnablePromiscuous(name string) error {
	return newError(KindResource, "set promiscuous flag on", name, errUnsupportedPlatform)
}
