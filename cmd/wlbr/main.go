// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/mbeema/wlbr/pkg/bridge"
	"github.com/mbeema/wlbr/pkg/config"
	"github.com/mbeema/wlbr/pkg/daemon"
	"github.com/mbeema/wlbr/pkg/health"
	"github.com/mbeema/wlbr/pkg/logging"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseArgs(args)
	if errors.Is(err, config.ErrVersion) {
		fmt.Fprintf(stdout, "wlbr %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return bridge.ExitOK
	}
	if err != nil {
		return configExit(err, stdout, stderr)
	}

	detached := daemon.IsDetached()
	logger, err := logging.New(cfg.LogLevel, cfg.Syslog || detached, "wlbr")
	if err != nil {
		fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return bridge.ExitOSError
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stats := health.NewStats()
	triggers := bridge.NewTriggers()
	stats.Rechecks = triggers.Count

	var hs *health.Server
	bcfg := &bridge.Config{
		Wireless: cfg.Wireless,
		Client:   cfg.Client,
		Wait:     cfg.Wait,
		Recheck:  triggers.C(),
		Stats:    stats,
		Logger:   logger,
		OnRunning: func(wireless, client bridge.Handle) {
			if hs != nil {
				hs.SetInterfaces(wireless.Name, client.Name)
				hs.SetReady(true)
			}
		},
	}
	if fds := daemon.InheritedFDs(); detached && len(fds) > 0 {
		bcfg.Open = func() (bridge.Socket, error) {
			sock, err := bridge.AdoptPacketSocket(fds[0])
			if err != nil {
				return nil, err
			}
			return sock, nil
		}
	}
	br := bridge.New(bcfg)

	coord := bridge.NewCoordinator(br, cancel)
	coord.Start(syscall.SIGINT, syscall.SIGTERM)
	defer coord.Stop()

	logger.Info("starting wlbr",
		zap.String("version", version),
		zap.String("wireless", cfg.Wireless),
		zap.String("client", cfg.Client),
		zap.Bool("wait", cfg.Wait),
	)

	// SIGUSR1 is always caught so a stray recheck never kills a running bridge.
	triggers.WatchSignals(ctx, syscall.SIGUSR1)
	if cfg.Wait {
		startWaitTriggers(ctx, cfg, triggers, logger)
	}

	if cfg.Daemonize && !detached {
		return detach(ctx, br, coord, logger)
	}

	if cfg.Health.Enabled {
		hs = health.NewServer(cfg.Health.Addr, version, stats, logger)
		if err := hs.Start(ctx); err != nil {
			logger.Error("failed to start health server", zap.String("addr", cfg.Health.Addr), zap.Error(err))
			return bridge.ExitOSError
		}
		defer hs.Stop()
	}

	err = br.Run(ctx)
	if hs != nil {
		hs.SetReady(false)
	}
	if sig := coord.Signal(); sig != nil {
		logger.Info("received shutdown signal, closing bridge and packet socket", zap.String("signal", sig.String()))
	}

	if err != nil && !(coord.Requested() && errors.Is(err, context.Canceled)) {
		return fatal(logger, err)
	}

	snap := stats.Snapshot()
	logger.Info("bridge stopped",
		zap.Int64("frames_received", snap.FramesReceived),
		zap.Int64("frames_forwarded", snap.ForwardedToClient+snap.ForwardedToWireless),
	)
	return bridge.ExitOK
}

// detach completes startup in the foreground, so resolution, socket and
// promiscuous failures reach the terminal with their exit status, then hands
// the open socket to a detached copy of the process.
func detach(ctx context.Context, br *bridge.Bridge, coord *bridge.Coordinator, logger *zap.Logger) int {
	sock, err := br.Setup(ctx)
	if err != nil {
		if coord.Requested() && errors.Is(err, context.Canceled) {
			logger.Info("received shutdown signal before the bridge started")
			return bridge.ExitOK
		}
		return fatal(logger, err)
	}
	defer sock.Close()

	ps, ok := sock.(*bridge.PacketSocket)
	if !ok {
		return fatal(logger, fmt.Errorf("cannot hand %T to a detached process", sock))
	}

	logger.Info("daemonizing process")
	pid, err := daemon.Detach(ps.File())
	if err != nil {
		logger.Error("could not daemonize process", zap.Error(err))
		return bridge.ExitOSError
	}
	logger.Info("bridge detached", zap.Int("pid", pid))
	return bridge.ExitOK
}

func startWaitTriggers(ctx context.Context, cfg *config.Config, triggers *bridge.Triggers, logger *zap.Logger) {
	if cfg.Triggers.Netlink {
		if err := triggers.WatchLinks(ctx); err != nil {
			logger.Warn("link notifications unavailable, relying on SIGUSR1", zap.Error(err))
		}
	}
	if cfg.Triggers.File != "" {
		w := config.NewTriggerWatcher(cfg.Triggers.File, triggers.Notify, logger)
		if err := w.Start(ctx); err != nil {
			logger.Warn("trigger file watcher unavailable, relying on SIGUSR1",
				zap.String("file", cfg.Triggers.File),
				zap.Error(err),
			)
			return
		}
		go func() {
			<-ctx.Done()
			w.Stop()
		}()
	}
}

// configExit reports a configuration failure before any logger exists.
func configExit(err error, stdout, stderr io.Writer) int {
	switch {
	case errors.Is(err, config.ErrHelp):
		fmt.Fprint(stdout, config.Usage)
		fmt.Fprint(stdout, config.FlagUsages())
		return bridge.ExitOK
	case errors.Is(err, config.ErrUsage):
		fmt.Fprintf(stderr, "Error: %v\n%s", err, config.Usage)
		return bridge.ExitUsage
	case errors.Is(err, config.ErrFile):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return bridge.ExitIOError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return bridge.ExitConfig
	}
}

// fatal logs err with its context and returns the matching exit status.
func fatal(logger *zap.Logger, err error) int {
	fields := []zap.Field{
		zap.Error(err),
		zap.Stringer("kind", bridge.KindOf(err)),
	}

	var be *bridge.Error
	if errors.As(err, &be) {
		if be.Iface != "" {
			fields = append(fields, zap.String("interface", be.Iface))
		}
		if hint := be.Hint(); hint != "" {
			fields = append(fields, zap.String("hint", hint))
		}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		fields = append(fields, zap.Int("errno", int(errno)))
	}
	logger.Error("bridge failed", fields...)

	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return bridge.ExitSoftware
}
