// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// LinkIndex looks name up in the kernel link table over netlink.
func LinkIndex(name string) (int, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, unix.ENODEV) {
			return 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
		}
		return 0, err
	}
	return link.Attrs().Index, nil
}

// WatchLinks turns kernel RTM_NEWLINK notifications into rechecks, so a
// hot-plugged adapter is picked up without an operator signal. The
// subscription ends with ctx.
func (t *Triggers) WatchLinks(ctx context.Context) error {
	updates := make(chan netlink.LinkUpdate, 16)
	done := make(chan struct{})
	if err := netlink.LinkSubscribe(updates, done); err != nil {
		return newError(KindResource, "subscribe to link updates", "", err)
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				if u.Header.Type == unix.RTM_NEWLINK {
					t.Notify()
				}
			}
		}
	}()
	return nil
}
