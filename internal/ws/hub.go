package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub maintains the set of active clients grouped by the run they follow
type Hub struct {
	// Registered clients by run ID
	clients map[string]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mutex sync.RWMutex

	logger *zerolog.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	conn *websocket.Conn

	// Buffered channel of outbound messages
	Send chan []byte

	// Run the client is following
	RunID string

	Hub *Hub

	ConnectedAt time.Time
	LastPing    time.Time
}

// RunProgress is pushed to followers as an analysis run advances
type RunProgress struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Attempt   int       `json:"attempt,omitempty"`
	Total     int       `json:"total,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message represents a generic WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin for now
		// In production, you should validate the origin
		return true
	},
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Global(),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.RunID] == nil {
		h.clients[client.RunID] = make(map[*Client]bool)
	}
	h.clients[client.RunID][client] = true

	metrics.Get().IncrementWSConnection()

	h.logger.Info().
		Str("run_id", client.RunID).
		Int("run_followers", len(h.clients[client.RunID])).
		Msg("WebSocket client registered")

	welcome := Message{
		Type:      "connection",
		Data:      map[string]string{"status": "connected", "run_id": client.RunID},
		Timestamp: time.Now(),
	}
	client.SendMessage(welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if clients, ok := h.clients[client.RunID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)

			metrics.Get().DecrementWSConnection()

			if len(clients) == 0 {
				delete(h.clients, client.RunID)
			}

			h.logger.Info().
				Str("run_id", client.RunID).
				Int("remaining_followers", len(clients)).
				Msg("WebSocket client unregistered")
		}
	}
}

// SendToRun sends a message to every follower of a run
func (h *Hub) SendToRun(runID string, message interface{}) {
	h.mutex.RLock()
	clients, exists := h.clients[runID]
	h.mutex.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("run_id", runID).
			Msg("Failed to marshal message for run followers")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range clients {
		select {
		case client.Send <- data:
			metrics.Get().IncrementWSMessageOut()
		default:
			h.logger.Warn().
				Str("run_id", runID).
				Msg("Failed to send message to client, closing connection")
			close(client.Send)
			delete(clients, client)
			metrics.Get().DecrementWSConnection()
		}
	}

	if len(clients) == 0 {
		delete(h.clients, runID)
	}
}

// SendProgress pushes a progress update to everyone following the run
func (h *Hub) SendProgress(progress RunProgress) {
	progress.Type = "progress"
	progress.Timestamp = time.Now()

	h.SendToRun(progress.RunID, progress)
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetRunFollowerCount returns the number of followers of a specific run
func (h *Hub) GetRunFollowerCount(runID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if clients, exists := h.clients[runID]; exists {
		return len(clients)
	}
	return 0
}

// RegisterClient is a public method to register a client (for testing)
func (h *Hub) RegisterClient(client *Client) {
	h.registerClient(client)
}

// UnregisterClient is a public method to unregister a client (for testing)
func (h *Hub) UnregisterClient(client *Client) {
	h.unregisterClient(client)
}
