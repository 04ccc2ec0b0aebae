package server

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/questengine/internal/config"
)

var (
	errSessionsFull   = errors.New("server is at its session limit")
	errIPSessionsFull = errors.New("too many sessions from this address")
)

// sessions counts open websocket sessions. A slot is taken before the
// upgrade and held until serveClient returns.
type sessions struct {
	mu   sync.Mutex
	cfg  config.ConnectionsConfig
	open int
	byIP map[string]int
}

func newSessions(cfg config.ConnectionsConfig) *sessions {
	return &sessions{cfg: cfg, byIP: make(map[string]int)}
}

// admit takes a slot for ip. Zero limits are unlimited.
func (s *sessions) admit(ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cfg.MaxTotal > 0 && s.open >= s.cfg.MaxTotal:
		return errSessionsFull
	case s.cfg.MaxPerIP > 0 && s.byIP[ip] >= s.cfg.MaxPerIP:
		return errIPSessionsFull
	}
	s.byIP[ip]++
	s.open++
	return nil
}

// leave gives back a slot held by ip. An ip with no slot is ignored.
func (s *sessions) leave(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.byIP, ip)
	} else {
		s.byIP[ip] = n - 1
	}
	s.open--
}

// counts returns the open sessions in total and those held by ip.
func (s *sessions) counts(ip string) (open, fromIP int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.byIP[ip]
}

// clientIP returns the address a session is counted against: the first
// X-Forwarded-For entry, then X-Real-IP, then the socket peer. Header values
// that are not IP addresses are skipped.
func clientIP(r *http.Request) string {
	forwarded, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{forwarded, r.Header.Get("X-Real-IP")} {
		if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
