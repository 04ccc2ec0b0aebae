// Package server exposes a running world to browser clients over
// WebSocket. Clients send JSON commands and receive every presentation
// event the world emits.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/questengine/internal/config"
	"github.com/lawnchairsociety/questengine/internal/logger"
	"github.com/lawnchairsociety/questengine/internal/world"
)

const commandTimeout = 5 * time.Second

// Server serves the websocket endpoint for one world.
type Server struct {
	cfg         *config.EngineConfig
	world       *world.World
	hub         *Hub
	sessions    *sessions
	rejects     *RejectLimiter
	upgrader    websocket.Upgrader

	mu           sync.Mutex
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New creates a server. hub must be the Sink the world was built with.
func New(cfg *config.EngineConfig, w *world.World, hub *Hub) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:         cfg,
		world:       w,
		hub:         hub,
		sessions:    newSessions(cfg.Connections),
		rejects:     NewRejectLimiter(cfg.RateLimit),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Handler returns the HTTP routes: /ws for clients and /snapshot for a
// one-off JSON dump of the scene.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	return mux
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe(address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and disconnects every client.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
		s.hub.closeAll()
		s.rejects.Stop()
		open, _ := s.sessions.counts("")
		logger.Info("Server shutdown complete", "open_sessions", open)
	})
	return err
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	snap, err := s.world.Snapshot(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logger.Error("Failed to write snapshot", "error", err)
	}
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if err := s.sessions.admit(ip); err != nil {
		logger.Warning("WebSocket connection rejected",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip,
			"reason", err.Error())
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.sessions.leave(ip)
		return
	}

	go s.serveClient(NewWebSocketClient(conn, ip))
}

func (s *Server) serveClient(c *WebSocketClient) {
	defer func() {
		s.hub.remove(c)
		s.sessions.leave(c.ip)
		logger.Info("Client disconnected", "client_ip", c.ip)
	}()

	c.prepareRead(s.cfg.WebSocket.MaxMessageSize)
	go c.writePump()
	s.hub.add(c)
	logger.Info("Client connected", "client_ip", c.ip)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	snap, err := s.world.Snapshot(ctx)
	cancel()
	if err != nil {
		logger.Warning("Initial snapshot failed", "client_ip", c.ip, "error", err)
		return
	}
	s.send(c, snapshotMessage{Type: evtSnapshot, Scene: snap})

	for {
		payload, err := c.ReadMessage()
		if err != nil {
			return
		}
		if !s.handleMessage(c, payload) {
			return
		}
	}
}

// handleMessage processes one frame. It returns false when the client
// should be disconnected.
func (s *Server) handleMessage(c *WebSocketClient, payload []byte) bool {
	if locked, remaining := s.rejects.IsLocked(c.ip); locked {
		s.send(c, rejectMessage{Type: evtReject, Reason: "locked out for " + remaining.Round(time.Second).String()})
		return true
	}

	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.Debug("Discarding malformed message", "client_ip", c.ip, "error", err)
		return s.reject(c, 0, "malformed message")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	err := s.dispatch(ctx, c, msg)
	cancel()

	if errors.Is(err, world.ErrStopped) {
		s.send(c, rejectMessage{Type: evtReject, Seq: msg.Seq, Reason: err.Error()})
		return false
	}
	if err != nil {
		logger.Debug("Command rejected", "client_ip", c.ip, "type", msg.Type, "error", err)
		return s.reject(c, msg.Seq, err.Error())
	}

	s.rejects.RecordAccept(c.ip)
	if msg.Seq > 0 {
		s.send(c, ackMessage{Type: evtAck, Seq: msg.Seq})
	}
	return true
}

func (s *Server) reject(c *WebSocketClient, seq uint64, reason string) bool {
	s.send(c, rejectMessage{Type: evtReject, Seq: seq, Reason: reason})
	if locked, d := s.rejects.RecordReject(c.ip); locked {
		logger.Warning("Client locked out after rejected commands",
			"client_ip", c.ip,
			"lockout", d.String())
	}
	return true
}

func (s *Server) send(c *WebSocketClient, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal response", "client_ip", c.ip, "error", err)
		return
	}
	c.enqueue(data)
}
