// Package ws handles WebSocket connection management: upgrading HTTP
// connections, running one reader goroutine per connection, and reporting
// messages and disconnects to the application layer.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/crosstalk/debate-app/internal/metrics"
)

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	ListenAddr     string        // address to listen on, e.g. ":8080"
	MaxConnections int           // hard cap on total connections
	WriteTimeout   time.Duration // timeout for WebSocket write operations
}

// DefaultServerConfig returns a ServerConfig with sensible production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     ":8080",
		MaxConnections: 100000,
		WriteTimeout:   10 * time.Second,
	}
}

// Server upgrades HTTP connections to WebSocket and runs one lightweight
// reader goroutine per connection. All cross-connection state lives in the
// application layer; the server only tracks live connections for the
// connection cap, the heartbeat, and shutdown.
type Server struct {
	config       ServerConfig
	onMessage    func(conn *Connection, data []byte)
	onDisconnect func(conn *Connection)

	mu    sync.Mutex
	conns map[*Connection]struct{}

	httpServer *http.Server
	done       chan struct{}
	startedAt  time.Time
}

// NewServer creates a Server with the given configuration and callbacks. The
// onMessage function is called from the connection's reader goroutine for
// every complete text frame; onDisconnect is called exactly once when a
// connection's reader exits.
func NewServer(config ServerConfig, onMessage func(conn *Connection, data []byte), onDisconnect func(conn *Connection)) *Server {
	return &Server{
		config:       config,
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
		conns:        make(map[*Connection]struct{}),
		done:         make(chan struct{}),
	}
}

// Handler returns the http.Handler for the WebSocket upgrade endpoint and
// the health check, for mounting on the caller's mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start begins accepting WebSocket connections on the configured address and
// starts the heartbeat monitor. It blocks on http.Server.ListenAndServe.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddr,
		Handler: s.Handler(),
	}

	StartHeartbeat(s, DefaultHeartbeatConfig())

	log.Printf("[ws] server listening on %s (max_conns=%d)",
		s.config.ListenAddr, s.config.MaxConnections)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ws: http server error: %w", err)
	}
	return nil
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection using the
// gobwas/ws zero-copy upgrader and starts the connection's reader goroutine.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	netConn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := newConnection(netConn, s.config.WriteTimeout)

	s.mu.Lock()
	s.conns[c] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()
	metrics.ConnectionsTotal.Set(float64(total))

	log.Printf("[ws] new connection %s (total=%d)", netConn.RemoteAddr(), total)
	go s.readLoop(c)
}

// readLoop reads frames from one connection until it fails or closes.
// wsutil.ReadClientData answers control frames (ping/pong/close) internally,
// so only data frames reach the message callback.
func (s *Server) readLoop(c *Connection) {
	defer s.remove(c)

	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return
		}
		c.touch()

		if op != ws.OpText || len(data) == 0 {
			continue
		}
		if s.onMessage != nil {
			s.onMessage(c, data)
		}
	}
}

// remove takes the connection out of the live set, fires the disconnect
// callback once, and closes the socket.
func (s *Server) remove(c *Connection) {
	s.mu.Lock()
	_, ok := s.conns[c]
	if ok {
		delete(s.conns, c)
	}
	total := len(s.conns)
	s.mu.Unlock()

	if !ok {
		return // already removed (shutdown raced with a read error)
	}
	metrics.ConnectionsTotal.Set(float64(total))

	if s.onDisconnect != nil {
		s.onDisconnect(c)
	}
	_ = c.Close()
	log.Printf("[ws] connection closed (total=%d)", total)
}

// all returns a snapshot of the live connections.
func (s *Server) all() []*Connection {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	return conns
}

// Count returns the current number of active connections.
func (s *Server) Count() int {
	s.mu.Lock()
	n := len(s.conns)
	s.mu.Unlock()
	return n
}

// handleHealth responds with the server's health status as JSON, including
// the current connection count and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// Shutdown performs a graceful shutdown: it stops the HTTP listener, signals
// the heartbeat to exit, and closes all active connections (each reader then
// exits and fires its disconnect callback).
func (s *Server) Shutdown() error {
	log.Println("[ws] shutting down server...")

	close(s.done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[ws] http shutdown error: %v", err)
		}
	}

	for _, c := range s.all() {
		_ = c.Close()
	}

	log.Printf("[ws] server stopped, all connections closed")
	return nil
}
