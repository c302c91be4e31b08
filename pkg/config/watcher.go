// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses bursts of events on the trigger file.
const DefaultDebounce = 500 * time.Millisecond

// TriggerWatcher calls onTrigger whenever a trigger file is created, written
// or touched. It lets udev rules or scripts request an interface recheck with
// "touch /run/wlbr/recheck" instead of sending a signal.
type TriggerWatcher struct {
	path      string
	onTrigger func()
	logger    *zap.Logger
	debounce  time.Duration

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewTriggerWatcher creates a watcher for path. The parent directory must
// exist; the file itself need not.
func NewTriggerWatcher(path string, onTrigger func(), logger *zap.Logger) *TriggerWatcher {
	return &TriggerWatcher{
		path:      filepath.Clean(path),
		onTrigger: onTrigger,
		logger:    logger,
		debounce:  DefaultDebounce,
		stopCh:    make(chan struct{}),
	}
}

// Start begins watching the trigger file's directory.
func (w *TriggerWatcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	// Watch the directory so the file can be created after we start.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	go w.loop(ctx)
	w.logger.Info("trigger file watcher started", zap.String("file", w.path))
	return nil
}

// Stop shuts down the watcher.
func (w *TriggerWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *TriggerWatcher) loop(ctx context.Context) {
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) == 0 {
				continue
			}
			w.logger.Debug("trigger file event", zap.String("op", event.Op.String()))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.onTrigger)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("trigger file watcher error", zap.Error(err))

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
