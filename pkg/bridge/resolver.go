// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Handle is a resolved interface. Immutable once created.
type Handle struct {
	Name  string
	Index int
}

func (h Handle) String() string {
	return fmt.Sprintf("%s(%d)", h.Name, h.Index)
}

// LookupFunc maps an interface name to its OS index. It returns an error
// wrapping ErrInterfaceNotFound when no such interface exists.
type LookupFunc func(name string) (int, error)

// Resolver turns the two configured names into Handles.
type Resolver struct {
	lookup LookupFunc
	logger *zap.Logger

	// Wait makes missing interfaces block on Recheck instead of failing.
	Wait bool
	// Recheck delivers retry notifications in wait mode. A nil channel
	// blocks until the context ends.
	Recheck <-chan struct{}
}

// NewResolver creates a strict resolver. A nil lookup uses the OS link table.
func NewResolver(lookup LookupFunc, logger *zap.Logger) *Resolver {
	if lookup == nil {
		lookup = LinkIndex
	}
	return &Resolver{
		lookup: lookup,
		logger: logger,
	}
}

// Resolve resolves both names. In strict mode the first missing name fails
// with a KindConfig error. In wait mode it logs the missing names and blocks
// until a Recheck notification, then retries, indefinitely. Cancelling ctx
// ends the wait with ctx.Err().
func (r *Resolver) Resolve(ctx context.Context, wireless, client string) (Handle, Handle, error) {
	for {
		w, werr := r.resolveOne(wireless)
		c, cerr := r.resolveOne(client)

		if werr == nil && cerr == nil {
			if w.Index == c.Index {
				return Handle{}, Handle{}, newError(KindConfig, "resolve interfaces", "",
					fmt.Errorf("%w: %s and %s (index %d)", ErrSameInterface, wireless, client, w.Index))
			}
			r.logger.Debug("interfaces resolved",
				zap.Stringer("wireless", w),
				zap.Stringer("client", c),
			)
			return w, c, nil
		}

		// Anything other than a missing interface cannot be waited out.
		for _, err := range []error{werr, cerr} {
			if err != nil && !errors.Is(err, ErrInterfaceNotFound) {
				return Handle{}, Handle{}, err
			}
		}

		if !r.Wait {
			if werr != nil {
				return Handle{}, Handle{}, werr
			}
			return Handle{}, Handle{}, cerr
		}

		if werr != nil {
			r.logger.Info("interface not found", zap.String("interface", wireless))
		}
		if cerr != nil {
			r.logger.Info("interface not found", zap.String("interface", client))
		}
		r.logger.Info("waiting for recheck signal before checking again")

		select {
		case <-ctx.Done():
			return Handle{}, Handle{}, ctx.Err()
		case <-r.Recheck:
			r.logger.Info("recheck requested, resolving interfaces again")
		}
	}
}

func (r *Resolver) resolveOne(name string) (Handle, error) {
	index, err := r.lookup(name)
	if err != nil {
		if errors.Is(err, ErrInterfaceNotFound) {
			return Handle{}, newError(KindConfig, "resolve interface", name, err)
		}
		return Handle{}, newError(KindResource, "resolve interface", name, err)
	}
	if index <= 0 {
		return Handle{}, newError(KindConfig, "resolve interface", name, ErrInterfaceNotFound)
	}
	return Handle{Name: name, Index: index}, nil
}
