// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package health

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// Stats tracks forwarding counters for the bridge.
type Stats struct {
	startTime time.Time

	FramesReceived      atomic.Int64
	ForwardedToClient   atomic.Int64
	ForwardedToWireless atomic.Int64
	DroppedOutgoing     atomic.Int64
	DroppedUnknown      atomic.Int64
	BytesForwarded      atomic.Int64

	// Rechecks reports the number of readiness rechecks requested so far.
	Rechecks func() int64
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// Uptime returns process uptime.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds       float64
	Goroutines          int
	FramesReceived      int64
	ForwardedToClient   int64
	ForwardedToWireless int64
	DroppedOutgoing     int64
	DroppedUnknown      int64
	BytesForwarded      int64
	Rechecks            int64
}

// Snapshot returns current stats.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		UptimeSeconds:       s.Uptime().Seconds(),
		Goroutines:          runtime.NumGoroutine(),
		FramesReceived:      s.FramesReceived.Load(),
		ForwardedToClient:   s.ForwardedToClient.Load(),
		ForwardedToWireless: s.ForwardedToWireless.Load(),
		DroppedOutgoing:     s.DroppedOutgoing.Load(),
		DroppedUnknown:      s.DroppedUnknown.Load(),
		BytesForwarded:      s.BytesForwarded.Load(),
	}
	if s.Rechecks != nil {
		snap.Rechecks = s.Rechecks()
	}
	return snap
}

// InterfaceCounters are the kernel's packet counters for one interface.
type InterfaceCounters struct {
	Name        string
	PacketsRecv uint64
	PacketsSent uint64
	DropIn      uint64
	DropOut     uint64
}

func prometheusFormat(snap Snapshot, ifaces []InterfaceCounters) string {
	var b []byte
	b = appendMetric(b, "wlbr_uptime_seconds", "gauge", "Bridge uptime in seconds", nil, snap.UptimeSeconds)
	b = appendMetric(b, "wlbr_goroutines", "gauge", "Number of goroutines", nil, float64(snap.Goroutines))
	b = appendMetric(b, "wlbr_frames_received_total", "counter", "Frames read from the packet socket", nil, float64(snap.FramesReceived))
	b = appendHeader(b, "wlbr_frames_forwarded_total", "counter", "Frames forwarded, by destination side")
	b = appendSample(b, "wlbr_frames_forwarded_total", []string{"direction", "to_client"}, float64(snap.ForwardedToClient))
	b = appendSample(b, "wlbr_frames_forwarded_total", []string{"direction", "to_wireless"}, float64(snap.ForwardedToWireless))
	b = appendMetric(b, "wlbr_frames_dropped_outgoing_total", "counter", "Locally transmitted frames ignored", nil, float64(snap.DroppedOutgoing))
	b = appendMetric(b, "wlbr_frames_dropped_unknown_total", "counter", "Frames from neither bridged interface", nil, float64(snap.DroppedUnknown))
	b = appendMetric(b, "wlbr_bytes_forwarded_total", "counter", "Bytes forwarded", nil, float64(snap.BytesForwarded))
	b = appendMetric(b, "wlbr_recheck_total", "counter", "Interface recheck requests", nil, float64(snap.Rechecks))

	if len(ifaces) > 0 {
		b = appendHeader(b, "wlbr_interface_rx_packets_total", "counter", "Kernel receive packet counter")
		for _, c := range ifaces {
			b = appendSample(b, "wlbr_interface_rx_packets_total", []string{"interface", c.Name}, float64(c.PacketsRecv))
		}
		b = appendHeader(b, "wlbr_interface_tx_packets_total", "counter", "Kernel transmit packet counter")
		for _, c := range ifaces {
			b = appendSample(b, "wlbr_interface_tx_packets_total", []string{"interface", c.Name}, float64(c.PacketsSent))
		}
		b = appendHeader(b, "wlbr_interface_dropped_total", "counter", "Kernel drop counter, in and out")
		for _, c := range ifaces {
			b = appendSample(b, "wlbr_interface_dropped_total", []string{"interface", c.Name}, float64(c.DropIn+c.DropOut))
		}
	}
	return string(b)
}

func appendMetric(b []byte, name, typ, help string, labels []string, value float64) []byte {
	b = appendHeader(b, name, typ, help)
	return appendSample(b, name, labels, value)
}

func appendHeader(b []byte, name, typ, help string) []byte {
	b = append(b, "# HELP "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, help...)
	b = append(b, '\n')
	b = append(b, "# TYPE "...)
	b = append(b, name...)
	b = append(b, ' ')
	b = append(b, typ...)
	b = append(b, '\n')
	return b
}

// appendSample writes one sample line. labels alternate name, value.
func appendSample(b []byte, name string, labels []string, value float64) []byte {
	b = append(b, name...)
	if len(labels) >= 2 {
		b = append(b, '{')
		for i := 0; i+1 < len(labels); i += 2 {
			if i > 0 {
				b = append(b, ',')
			}
			b = append(b, labels[i]...)
			b = append(b, '=')
			b = strconv.AppendQuote(b, labels[i+1])
		}
		b = append(b, '}')
	}
	b = append(b, ' ')
	b = strconv.AppendFloat(b, value, 'f', -1, 64)
	b = append(b, '\n')
	return b
}
