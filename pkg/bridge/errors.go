// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Kind classifies a fatal bridge failure so the CLI can map it to an exit status.
type Kind int

const (
	KindNone Kind = iota
	KindUsage
	KindConfig
	KindResource
	KindIO
)

// Exit statuses follow sysexits.h.
const (
	ExitOK       = 0
	ExitUsage    = 64
	ExitConfig   = 78
	ExitOSError  = 71
	ExitIOError  = 74
	ExitSoftware = 70
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindResource:
		return "resource"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit status for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindNone:
		return ExitOK
	case KindUsage:
		return ExitUsage
	case KindConfig:
		return ExitConfig
	case KindResource:
		return ExitOSError
	case KindIO:
		return ExitIOError
	default:
		return ExitSoftware
	}
}

var (
	// ErrInterfaceNotFound is wrapped by resolver errors for names with no
	// matching link.
	ErrInterfaceNotFound = errors.New("interface not found")

	// ErrShortWrite reports a transmit that accepted fewer bytes than the frame.
	ErrShortWrite = errors.New("short write")

	// ErrSameInterface reports both sides resolving to one index.
	ErrSameInterface = errors.New("both sides resolve to the same interface")
)

// Error is a fatal bridge failure with enough context to log and exit on.
type Error struct {
	Kind  Kind
	Op    string // operation that failed
	Iface string // interface name, when relevant
	Err   error
}

func (e *Error) Error() string {
	var msg strings.Builder
	msg.WriteString(e.Op)
	if e.Iface != "" {
		msg.WriteString(" ")
		msg.WriteString(e.Iface)
	}
	if e.Err != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Err.Error())
	}
	return msg.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode lets main map the error straight to an exit status.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

// Hint returns an operator hint for common OS failures, or "".
func (e *Error) Hint() string {
	switch {
	case errors.Is(e.Err, unix.EPERM), errors.Is(e.Err, unix.EACCES):
		return "run as root or grant CAP_NET_RAW and CAP_NET_ADMIN"
	case errors.Is(e.Err, ErrInterfaceNotFound), errors.Is(e.Err, unix.ENODEV):
		return fmt.Sprintf("list interfaces with 'ip link show'; use -w to wait for %s", e.Iface)
	case errors.Is(e.Err, unix.ENETDOWN):
		return "bring the interface up with 'ip link set <if> up'"
	}
	return ""
}

func newError(kind Kind, op, iface string, err error) *Error {
	return &Error{Kind: kind, Op: op, Iface: iface, Err: err}
}

// KindOf reports the Kind carried by err, or KindNone when err is nil or untyped.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindNone
}
