package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/questengine/internal/config"
)

func TestSessionsDefaultLimits(t *testing.T) {
	cfg := config.DefaultConfig().Connections
	if cfg.MaxPerIP != 3 || cfg.MaxTotal != 100 {
		t.Fatalf("defaults = %d per IP, %d total; want 3 and 100", cfg.MaxPerIP, cfg.MaxTotal)
	}
	s := newSessions(cfg)

	for i := 0; i < cfg.MaxPerIP; i++ {
		if err := s.admit("203.0.113.7"); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if err := s.admit("203.0.113.7"); !errors.Is(err, errIPSessionsFull) {
		t.Fatalf("admit past per-IP limit = %v, want %v", err, errIPSessionsFull)
	}
	if err := s.admit("203.0.113.8"); err != nil {
		t.Errorf("another address should still get a slot: %v", err)
	}

	open, fromIP := s.counts("203.0.113.7")
	if open != 4 || fromIP != 3 {
		t.Errorf("counts = %d open, %d from IP; want 4 and 3", open, fromIP)
	}
}

func TestSessionsTotalLimit(t *testing.T) {
	s := newSessions(config.DefaultConfig().Connections)

	for i := 0; i < 100; i++ {
		if err := s.admit(fmt.Sprintf("10.0.%d.%d", i/256, i%256)); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if err := s.admit("192.0.2.1"); !errors.Is(err, errSessionsFull) {
		t.Fatalf("admit past total limit = %v, want %v", err, errSessionsFull)
	}

	s.leave("10.0.0.0")
	if err := s.admit("192.0.2.1"); err != nil {
		t.Errorf("admit after leave: %v", err)
	}
}

func TestSessionsLeave(t *testing.T) {
	s := newSessions(config.ConnectionsConfig{MaxPerIP: 1})

	if err := s.admit("198.51.100.1"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	s.leave("198.51.100.1")
	s.leave("198.51.100.1")
	s.leave("198.51.100.99")

	if open, fromIP := s.counts("198.51.100.1"); open != 0 || fromIP != 0 {
		t.Fatalf("counts = %d, %d; want 0, 0", open, fromIP)
	}
	if err := s.admit("198.51.100.1"); err != nil {
		t.Errorf("slot should be free again: %v", err)
	}
}

func TestSessionsUnlimited(t *testing.T) {
	s := newSessions(config.ConnectionsConfig{})
	for i := 0; i < 500; i++ {
		if err := s.admit("127.0.0.1"); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"socket peer", "", "", "192.0.2.10:51000", "192.0.2.10"},
		{"ipv6 socket peer", "", "", "[2001:db8::1]:51000", "2001:db8::1"},
		{"peer without port", "", "", "192.0.2.10", "192.0.2.10"},
		{"forwarded client first", "203.0.113.5, 10.0.0.2, 10.0.0.3", "", "10.0.0.1:4000", "203.0.113.5"},
		{"forwarded before real ip", "203.0.113.5", "198.51.100.9", "10.0.0.1:4000", "203.0.113.5"},
		{"real ip", "", " 198.51.100.9 ", "10.0.0.1:4000", "198.51.100.9"},
		{"garbage forwarded falls to real ip", "unknown", "198.51.100.9", "10.0.0.1:4000", "198.51.100.9"},
		{"garbage headers fall to peer", "unknown", "proxy", "10.0.0.1:4000", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// dialAs opens a websocket claiming to come from ip and returns the
// handshake status.
func dialAs(t *testing.T, ts *testServer, ip string) (*websocket.Conn, int) {
	t.Helper()
	header := http.Header{"X-Forwarded-For": []string{ip}}
	conn, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), header)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		resp.Body.Close()
	}
	if err != nil {
		return nil, status
	}
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, evtSnapshot)
	return conn, status
}

func TestUpgradeCountsForwardedAddress(t *testing.T) {
	ts := startServer(t, func(cfg *config.EngineConfig) {
		cfg.Connections.MaxPerIP = 1
	})

	if conn, _ := dialAs(t, ts, "203.0.113.5"); conn == nil {
		t.Fatal("first session from 203.0.113.5 should be admitted")
	}
	if conn, _ := dialAs(t, ts, "203.0.113.6"); conn == nil {
		t.Fatal("a different forwarded address should be admitted")
	}
	if conn, status := dialAs(t, ts, "203.0.113.5"); conn != nil || status != http.StatusTooManyRequests {
		t.Fatalf("repeat address: status %d, want 429", status)
	}
}

func TestFailedUpgradeReleasesSession(t *testing.T) {
	ts := startServer(t, nil)

	resp, err := http.Get(ts.http.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("plain GET status = %d, want 400", resp.StatusCode)
	}
	if open, _ := ts.sessions.counts(""); open != 0 {
		t.Errorf("open sessions = %d after failed upgrade, want 0", open)
	}
}

func TestDisconnectReleasesSession(t *testing.T) {
	ts := startServer(t, func(cfg *config.EngineConfig) {
		cfg.Connections.MaxPerIP = 1
	})

	conn, _ := dialAs(t, ts, "203.0.113.5")
	if conn == nil {
		t.Fatal("first session should be admitted")
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, fromIP := ts.sessions.counts("203.0.113.5"); fromIP == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("slot was not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if conn, status := dialAs(t, ts, "203.0.113.5"); conn == nil {
		t.Fatalf("reconnect: status %d, want admitted", status)
	}
}
