// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !linux

package bridge

import "context"

// LinkIndex needs the linux link table.
func LinkIndex(name string) (int, error) {
	return 0, errUnsupportedPlatform
}

// WatchLinks needs linux netlink notifications.
func (t *Triggers) WatchLinks(ctx context.Context) error {
	return newError(KindResource, "subscribe to link updates", "", errUnsupportedPlatform)
}
