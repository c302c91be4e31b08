// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package bridge

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mbeema/wlbr/pkg/health"
)

const (
	// MaxFrameSize is the receive buffer size; larger frames are truncated by
	// the kernel.
	MaxFrameSize = 2048

	// PacketOutgoing is the sll_pkttype the kernel sets on frames this host
	// transmitted itself (PACKET_OUTGOING in linux/if_packet.h).
	PacketOutgoing uint8 = 4
)

// Meta is the arrival metadata of a captured frame.
type Meta struct {
	Ifindex int
	PktType uint8
}

// Conn is a link-layer socket that sees frames from every interface.
type Conn interface {
	// ReadFrame blocks until a frame arrives and copies it into b.
	ReadFrame(b []byte) (int, Meta, error)
	// WriteTo transmits b unmodified out of the interface with index ifindex
	// and returns the number of bytes the kernel accepted.
	WriteTo(b []byte, ifindex int) (int, error)
	Close() error
}

type verdict int

const (
	dropOutgoing verdict = iota
	dropUnknown
	toClient
	toWireless
)

func (v verdict) String() string {
	switch v {
	case dropOutgoing:
		return "drop_outgoing"
	case dropUnknown:
		return "drop_unknown"
	case toClient:
		return "to_client"
	case toWireless:
		return "to_wireless"
	default:
		return "unknown"
	}
}

// route decides what happens to one frame. Each frame gets exactly one
// verdict, and a forward never targets the side it arrived on.
func route(meta Meta, wireless, client Handle) verdict {
	if meta.PktType == PacketOutgoing {
		return dropOutgoing
	}
	switch meta.Ifindex {
	case wireless.Index:
		return toClient
	case client.Index:
		return toWireless
	default:
		return dropUnknown
	}
}

// Engine runs the receive-classify-forward loop for one Session.
type Engine struct {
	session *Session
	logger  *zap.Logger
	stats   *health.Stats
}

// NewEngine creates an engine bound to session. stats may be nil.
func NewEngine(session *Session, stats *health.Stats, logger *zap.Logger) *Engine {
	if stats == nil {
		stats = health.NewStats()
	}
	return &Engine{
		session: session,
		logger:  logger,
		stats:   stats,
	}
}

// Run forwards frames in arrival order until the socket reports end of
// stream, the session is shut down, or an I/O error occurs. A shutdown
// request or a zero-length read returns nil; everything else is a KindIO
// error, after which the session is already closed.
func (e *Engine) Run(ctx context.Context) error {
	wireless, client := e.session.Wireless, e.session.Client
	conn := e.session.conn
	buf := make([]byte, MaxFrameSize)

	for {
		n, meta, err := conn.ReadFrame(buf)
		if err != nil {
			if !e.session.Running() || ctx.Err() != nil {
				return nil
			}
			e.session.Shutdown()
			return newError(KindIO, "receive frame", "", err)
		}
		if n == 0 {
			e.logger.Info("packet socket returned end of stream")
			return nil
		}
		e.stats.FramesReceived.Add(1)

		var dst Handle
		switch v := route(meta, wireless, client); v {
		case dropOutgoing:
			e.stats.DroppedOutgoing.Add(1)
			continue
		case dropUnknown:
			e.stats.DroppedUnknown.Add(1)
			continue
		case toClient:
			dst = client
		case toWireless:
			dst = wireless
		}

		frame := buf[:n]
		sent, err := conn.WriteTo(frame, dst.Index)
		if err != nil {
			if !e.session.Running() {
				return nil
			}
			e.session.Shutdown()
			return newError(KindIO, "send frame to", dst.Name, err)
		}
		if sent != n {
			e.session.Shutdown()
			return newError(KindIO, "send frame to", dst.Name,
				fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, sent, n))
		}

		if dst.Index == client.Index {
			e.stats.ForwardedToClient.Add(1)
		} else {
			e.stats.ForwardedToWireless.Add(1)
		}
		e.stats.BytesForwarded.Add(int64(n))

		if ce := e.logger.Check(zapcore.DebugLevel, "forwarded frame"); ce != nil {
			ce.Write(
				zap.Int("ifindex", meta.Ifindex),
				zap.String("to", dst.Name),
				zap.Int("bytes", n),
				zap.String("ethernet", summarizeFrame(frame)),
			)
		}
	}
}

// summarizeFrame renders the Ethernet header for debug logs.
func summarizeFrame(b []byte) string {
	pkt := gopacket.NewPacket(b, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return "undecodable"
	}
	return fmt.Sprintf("%s > %s %s", eth.SrcMAC, eth.DstMAC, eth.EthernetType)
}
