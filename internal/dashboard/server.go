// Package dashboard provides a real-time WebSocket feed of sync
// activity for a scouting lead's monitor: cycle outcomes, staged
// records, and dataset statistics.
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

	"github.com/scoutforge/scoutsync/internal/schema"
)

// EventType defines the type of dashboard event.
type EventType string

const (
	// EventSyncStarted indicates a sync cycle began.
	EventSyncStarted EventType = "sync_started"

	// EventSyncComplete indicates a sync cycle reconciled successfully.
	EventSyncComplete EventType = "sync_complete"

	// EventSyncFailed indicates a sync cycle failed; staged records are
	// retained for the next attempt.
	EventSyncFailed EventType = "sync_failed"

	// EventRecordStaged indicates a scanned record entered the local
	// staging store.
	EventRecordStaged EventType = "record_staged"

	// EventStats carries current dataset statistics.
	EventStats EventType = "stats"
)

// Event represents a dashboard broadcast.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncCompleteData describes a successful cycle.
type SyncCompleteData struct {
	Teams    int    `json:"teams"`
	Matches  int    `json:"matches"`
	Outcome  string `json:"outcome"` // new-data, no-data
	Duration string `json:"duration"`
}

// SyncFailedData describes a failed cycle.
type SyncFailedData struct {
	Message string `json:"message"`
}

// RecordStagedData describes a record entering the staging store.
type RecordStagedData struct {
	Kind        string `json:"kind"` // pit, match
	TeamNumber  int    `json:"team_number"`
	MatchNumber int    `json:"match_number,omitempty"`
}

// StatsData summarizes the cached dataset.
type StatsData struct {
	Teams    int       `json:"teams"`
	Matches  int       `json:"matches"`
	LastSync time.Time `json:"last_sync"`
}

// Server manages WebSocket connections and broadcasts sync events.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8723)
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:   8723,
		Logger: log.Default(),
	}
}

// NewServer creates a dashboard WebSocket server.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard stopped")
	return nil
}

// Broadcast queues an event for all connected clients.
func (s *Server) Broadcast(evt Event) {
	select {
	case s.broadcast <- evt:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping event")
	}
}

// NotifySyncStarted broadcasts the start of a sync cycle.
func (s *Server) NotifySyncStarted() {
	s.Broadcast(Event{Type: EventSyncStarted})
}

// NotifySyncComplete broadcasts a successful cycle with its dataset
// summary and outcome classification.
func (s *Server) NotifySyncComplete(ds *schema.Dataset, outcome string, took time.Duration) {
	data, _ := json.Marshal(SyncCompleteData{
		Teams:    len(ds.Teams),
		Matches:  ds.MatchCount(),
		Outcome:  outcome,
		Duration: took.Round(time.Millisecond).String(),
	})
	s.Broadcast(Event{Type: EventSyncComplete, Data: data})
}

// NotifySyncFailed broadcasts a failed cycle with its status message.
func (s *Server) NotifySyncFailed(message string) {
	data, _ := json.Marshal(SyncFailedData{Message: message})
	s.Broadcast(Event{Type: EventSyncFailed, Data: data})
}

// NotifyRecordStaged broadcasts a record entering the staging store.
func (s *Server) NotifyRecordStaged(kind string, teamNumber, matchNumber int) {
	data, _ := json.Marshal(RecordStagedData{
		Kind:        kind,
		TeamNumber:  teamNumber,
		MatchNumber: matchNumber,
	})
	s.Broadcast(Event{Type: EventRecordStaged, Data: data})
}

// NotifyStats broadcasts current dataset statistics.
func (s *Server) NotifyStats(ds *schema.Dataset) {
	data, _ := json.Marshal(StatsData{
		Teams:    len(ds.Teams),
		Matches:  ds.MatchCount(),
		LastSync: ds.SyncedAt,
	})
	s.Broadcast(Event{Type: EventStats, Data: data})
}

// broadcastLoop fans queued events out to all clients.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case evt := <-s.broadcast:
			if evt.Timestamp.IsZero() {
				evt.Timestamp = time.Now()
			}

			data, err := json.Marshal(evt)
			if err != nil {
				s.logger.Printf("Failed to marshal event: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // dashboard runs on a trusted LAN
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Initial welcome event so clients render immediately.
	welcome := Event{Type: EventStats, Timestamp: time.Now()}
	welcomeData, _ := json.Marshal(welcome)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and handles client disconnects.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Client messages are ignored; the feed is one-way.
	}
}

// removeClient safely removes a client connection.
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
	})
}

// handleRoot returns basic server information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>ScoutSync Dashboard</title>
</head>
<body>
    <h1>ScoutSync Dashboard Server</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Connect a WebSocket client to receive real-time sync events.</p>
</body>
</html>`, r.Host)
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
