// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestHealthEndpoint(t *testing.T) {
	stats := NewStats()
	srv := NewServer(":0", "1.0.0-test", stats, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var hr healthResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if hr.Status != "healthy" {
		t.Errorf("expected status=healthy, got %q", hr.Status)
	}
	if hr.Version != "1.0.0-test" {
		t.Errorf("expected version=1.0.0-test, got %q", hr.Version)
	}
}

func TestReadyEndpoint(t *testing.T) {
	srv := NewServer(":0", "test", NewStats(), zap.NewNop())

	w := httptest.NewRecorder()
	srv.handleReady(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the bridge runs, got %d", w.Code)
	}

	srv.SetReady(true)
	w = httptest.NewRecorder()
	srv.handleReady(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 while running, got %d", w.Code)
	}

	srv.SetReady(false)
	w = httptest.NewRecorder()
	srv.handleReady(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	stats := NewStats()
	stats.FramesReceived.Add(10)
	stats.ForwardedToClient.Add(6)
	stats.ForwardedToWireless.Add(2)
	stats.DroppedOutgoing.Add(2)
	stats.BytesForwarded.Add(512)
	stats.Rechecks = func() int64 { return 3 }

	srv := NewServer(":0", "test", stats, zap.NewNop())
	srv.counters = func(names []string) ([]InterfaceCounters, error) {
		out := make([]InterfaceCounters, 0, len(names))
		for _, n := range names {
			out = append(out, InterfaceCounters{Name: n, PacketsRecv: 100, PacketsSent: 50, DropIn: 1})
		}
		return out, nil
	}
	srv.SetInterfaces("wlan0", "eth0")

	w := httptest.NewRecorder()
	srv.handleMetrics(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	for _, want := range []string{
		"wlbr_frames_received_total 10",
		`wlbr_frames_forwarded_total{direction="to_client"} 6`,
		`wlbr_frames_forwarded_total{direction="to_wireless"} 2`,
		"wlbr_frames_dropped_outgoing_total 2",
		"wlbr_bytes_forwarded_total 512",
		"wlbr_recheck_total 3",
		`wlbr_interface_rx_packets_total{interface="wlan0"} 100`,
		`wlbr_interface_tx_packets_total{interface="eth0"} 50`,
		`wlbr_interface_dropped_total{interface="eth0"} 1`,
		"wlbr_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestMetricsEndpointCountersUnavailable(t *testing.T) {
	srv := NewServer(":0", "test", NewStats(), zap.NewNop())
	srv.counters = func([]string) ([]InterfaceCounters, error) {
		return nil, errors.New("no /proc")
	}
	srv.SetInterfaces("wlan0")

	w := httptest.NewRecorder()
	srv.handleMetrics(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "wlbr_interface_rx_packets_total") {
		t.Error("interface counters should be omitted when unavailable")
	}
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "test", NewStats(), zap.NewNop())

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
