// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package bridge

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// PacketSocket is an unbound AF_PACKET/SOCK_RAW socket receiving every
// protocol on every interface. The fd is non-blocking and registered with the
// runtime poller, so Close from another goroutine wakes a pending ReadFrame
// with os.ErrClosed.
type PacketSocket struct {
	file *os.File
	raw  syscall.RawConn

	closeOnce sync.Once
	closeErr  error
}

// OpenPacketSocket opens the raw socket. Requires CAP_NET_RAW.
func OpenPacketSocket() (*PacketSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, newError(KindResource, "open packet socket", "", err)
	}

	return newPacketSocket(uintptr(fd), "open packet socket")
}

// AdoptPacketSocket wraps an AF_PACKET socket inherited from a parent
// process, as handed over by a daemonizing parent.
func AdoptPacketSocket(fd uintptr) (*PacketSocket, error) {
	domain, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_DOMAIN)
	if err != nil {
		return nil, newError(KindResource, "adopt packet socket", "", err)
	}
	if domain != unix.AF_PACKET {
		return nil, newError(KindResource, "adopt packet socket", "",
			fmt.Errorf("descriptor %d is not an AF_PACKET socket (domain %d)", fd, domain))
	}
	// Handing the fd to exec.Cmd left the shared description blocking.
	if err := unix.SetNonblock(int(fd), true); err != nil {
		return nil, newError(KindResource, "adopt packet socket", "", err)
	}
	unix.CloseOnExec(int(fd))
	return newPacketSocket(fd, "adopt packet socket")
}

func newPacketSocket(fd uintptr, op string) (*PacketSocket, error) {
	f := os.NewFile(fd, "packet")
	raw, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, newError(KindResource, op, "", err)
	}
	return &PacketSocket{file: f, raw: raw}, nil
}

// File returns the underlying file, for passing the socket to a child
// process. The socket still owns it.
func (s *PacketSocket) File() *os.File {
	return s.file
}

func (s *PacketSocket) ReadFrame(b []byte) (int, Meta, error) {
	var (
		n    int
		from unix.Sockaddr
		rerr error
	)
	err := s.raw.Read(func(fd uintptr) bool {
		n, from, rerr = unix.Recvfrom(int(fd), b, 0)
		return rerr != unix.EAGAIN
	})
	if err != nil {
		return 0, Meta{}, err
	}
	if rerr != nil {
		return 0, Meta{}, os.NewSyscallError("recvfrom", rerr)
	}

	var meta Meta
	if sll, ok := from.(*unix.SockaddrLinklayer); ok {
		meta.Ifindex = sll.Ifindex
		meta.PktType = sll.Pkttype
	}
	return n, meta, nil
}

func (s *PacketSocket) WriteTo(b []byte, ifindex int) (int, error) {
	to := &unix.SockaddrLinklayer{
		Ifindex: ifindex,
		Halen:   6,
	}
	var (
		n    int
		werr error
	)
	err := s.raw.Write(func(fd uintptr) bool {
		n, werr = unix.SendmsgN(int(fd), b, nil, to, 0)
		return werr != unix.EAGAIN
	})
	if err != nil {
		return 0, err
	}
	if werr != nil {
		return n, os.NewSyscallError("sendto", werr)
	}
	return n, nil
}

// Close releases the fd once; repeated calls return the first result.
func (s *PacketSocket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}

// EnablePromiscuous adds IFF_PROMISC to the interface's existing flags.
func (s *PacketSocket) EnablePromiscuous(name string) error {
	var ioErr error
	err := s.raw.Control(func(fd uintptr) {
		ioErr = setPromiscuous(int(fd), name)
	})
	if err != nil {
		return newError(KindResource, "access packet socket for", name, err)
	}
	return ioErr
}

func setPromiscuous(fd int, name string) error {
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return newError(KindConfig, "build interface request for", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return newError(KindResource, "read interface flags of", name, err)
	}
	ifr.SetUint16(ifr.Uint16() | unix.IFF_PROMISC)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return newError(KindResource, "set promiscuous flag on", name, err)
	}
	return nil
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
