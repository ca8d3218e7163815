// Package server exposes a localhost-only diagnostic status feed: a
// WebSocket stream of process registry changes plus a health endpoint.
// The GUI subscribes to it to keep its process list current without
// polling the snapshot file.
package server

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scriptkit/host/internal/proc"
)

// channelBufferSize is each client's send queue. Broadcasts to a client
// with a full queue are dropped; the next registry change carries the
// full state anyway.
const channelBufferSize = 16

// Event is one status feed message: the complete registry after a change.
type Event struct {
	Type      string             `json:"type"` // always "processes"
	Processes []proc.ProcessInfo `json:"processes"`
	At        string             `json:"at"` // RFC3339
}

type client struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
}

// Server broadcasts registry changes to connected WebSocket clients.
type Server struct {
	upgrader websocket.Upgrader
	listener net.Listener
	httpSrv  *http.Server

	mu      sync.RWMutex
	clients map[*client]bool
	// last holds the most recent registry state, replayed to new clients
	// so they don't wait for the next change.
	last []proc.ProcessInfo
}

// New creates a status feed server. Wire it to a manager with
// mgr.SetOnChange(srv.Broadcast).
func New() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed binds to loopback only; cross-origin pages can't
			// reach it and local tools shouldn't be blocked.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// Start begins listening on addr and serving in a background goroutine.
// Use Addr to learn the bound address (useful with a ":0" port).
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("server: status feed stopped: %v", err)
		}
	}()

	log.Printf("server: status feed listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and disconnects every client.
func (s *Server) Stop() error {
	s.mu.Lock()
	for c := range s.clients {
		close(c.done)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.httpSrv != nil {
		return s.httpSrv.Close()
	}
	return nil
}

// Broadcast queues the current registry state to every connected client.
// Matches the proc.Manager OnChange callback signature.
func (s *Server) Broadcast(infos []proc.ProcessInfo) {
	event := Event{
		Type:      "processes",
		Processes: infos,
		At:        time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.last = infos
	for c := range s.clients {
		select {
		case c.send <- event:
		default:
			// Slow client: drop this event rather than block the
			// process registry.
		}
	}
	s.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, channelBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = true
	// Replay current state so the client renders immediately.
	c.send <- Event{
		Type:      "processes",
		Processes: s.last,
		At:        time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

// writePump sends queued events until the client goes away.
func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("server: encoding event: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.drop(c)
				return
			}
		}
	}
}

// readPump discards inbound frames; its job is detecting disconnects.
func (s *Server) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.drop(c)
			return
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.done)
	}
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}
