// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dashboard serves a real-time WebSocket feed of sync activity.
//
// Connected clients receive every lifecycle event of a sync cycle as it
// happens: cycle start, per-note progress, per-note failures, and the
// closing summary. The feed is observational only; clients cannot start
// or stop cycles through it.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType names a dashboard event.
type MessageType string

const (
	// MessageTypeSyncStarted announces a new sync cycle.
	MessageTypeSyncStarted MessageType = "sync_started"

	// MessageTypeNoteSynced reports one note written to the vault.
	MessageTypeNoteSynced MessageType = "note_synced"

	// MessageTypeNoteFailed reports one note that could not be written.
	MessageTypeNoteFailed MessageType = "note_failed"

	// MessageTypeSyncComplete carries the summary of a finished cycle.
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeSyncError reports a cycle that aborted before writing.
	MessageTypeSyncError MessageType = "sync_error"

	// MessageTypeStatus is the greeting sent to a freshly connected client.
	MessageTypeStatus MessageType = "status"
)

// Message is the JSON envelope broadcast to every connected client.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncStartedData identifies the trigger that opened a cycle.
type SyncStartedData struct {
	Trigger string `json:"trigger"`
}

// NoteSyncedData reports progress through the note set.
type NoteSyncedData struct {
	NoteID    string `json:"note_id"`
	Title     string `json:"title"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// NoteFailedData carries a per-note failure reason.
type NoteFailedData struct {
	NoteID string `json:"note_id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// SyncErrorData describes an aborted cycle.
type SyncErrorData struct {
	Trigger string `json:"trigger"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
}

// StatusData is the greeting payload.
type StatusData struct {
	Clients int `json:"clients"`
}

// Server accepts WebSocket clients and fans dashboard messages out to them.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8686" or "127.0.0.1:8686".
	Addr string

	// Logger receives server activity (default: log.Default()).
	Logger *log.Logger
}

// DefaultConfig returns the stock dashboard configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8686",
		Logger: log.Default(),
	}
}

// NewServer creates a dashboard server. Call Start to begin serving.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      config.Addr,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start binds the listen address and begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("dashboard server error: %v", err)
		}
	}()

	return nil
}

// Stop closes all client connections and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down dashboard: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Broadcast queues a message for every connected client. It never blocks;
// when the queue is full the message is dropped with a warning.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Println("dashboard broadcast queue full, dropping message")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("marshaling dashboard message: %v", err)
				continue
			}

			// Snapshot under the read lock, write outside it, so one slow
			// client cannot stall new connections.
			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("dashboard client connected (total: %d)", clientCount)

	greeting, _ := json.Marshal(StatusData{Clients: clientCount})
	welcome, _ := json.Marshal(Message{
		Type:      MessageTypeStatus,
		Timestamp: time.Now(),
		Data:      greeting,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcome)
	cancel()

	go s.readLoop(conn)
}

// readLoop drains inbound frames so pings are answered and disconnects
// are noticed. Client payloads are ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("dashboard client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clientCount,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Klarity Sync</title>
</head>
<body>
    <h1>Klarity Sync Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Connect a WebSocket client to follow sync cycles in real time.</p>
</body>
</html>`, r.Host)
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount reports the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
