package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/coderipple/coderipple-go/internal/model"
)

type hubOp int

const (
	opRegister hubOp = iota
	opUnregister
	opBroadcast
)

// hubCommand is one queued hub operation. client is set for register and
// unregister, message for broadcast.
type hubCommand struct {
	op      hubOp
	client  *Client
	message []byte
}

// Hub fans broadcast messages out to every connected member of one room.
// Clients survive the hub: removing a hub drops its members but leaves
// their connections open, since a player may go on to another room.
//
// All operations flow through a single command queue, so they are applied
// in call order. A broadcast queued before a client registers is never
// delivered to that client.
type Hub struct {
	roomID  model.RoomID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	commands chan hubCommand
	done     chan struct{}
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:   roomID,
		clients:  make(map[*Client]bool),
		logger:   logger.With(slog.String("room", string(roomID))),
		commands: make(chan hubCommand, 256),
		done:     make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case cmd := <-h.commands:
			h.apply(cmd)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			h.logger.Debug("ws hub stopped", slog.Int("detached_clients", clientCount))
			return
		}
	}
}

func (h *Hub) apply(cmd hubCommand) {
	switch cmd.op {
	case opRegister:
		h.mu.Lock()
		h.clients[cmd.client] = true
		clientCount := len(h.clients)
		h.mu.Unlock()
		h.logger.Debug("ws client registered",
			slog.String("connection", string(cmd.client.id)),
			slog.Int("total_clients", clientCount))

	case opUnregister:
		h.mu.Lock()
		if _, ok := h.clients[cmd.client]; !ok {
			h.mu.Unlock()
			return
		}
		delete(h.clients, cmd.client)
		clientCount := len(h.clients)
		h.mu.Unlock()
		duration := time.Since(cmd.client.connectedAt)
		h.logger.Debug("ws client unregistered",
			slog.String("connection", string(cmd.client.id)),
			slog.Duration("connection_duration", duration),
			slog.Int("total_clients", clientCount))

	case opBroadcast:
		h.mu.RLock()
		droppedCount := 0
		for client := range h.clients {
			if !client.Send(cmd.message) {
				droppedCount++
			}
		}
		h.mu.RUnlock()
		if droppedCount > 0 {
			h.logger.Warn("ws broadcast partial failure",
				slog.Int("dropped", droppedCount))
		}
	}
}

// Register adds a client to the hub. Broadcasts already queued when a
// client registers are not delivered to it.
func (h *Hub) Register(client *Client) {
	select {
	case h.commands <- hubCommand{op: opRegister, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.commands <- hubCommand{op: opUnregister, client: client}:
	case <-h.done:
	}
}

// Broadcast queues a message for every client currently in the room
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.commands <- hubCommand{op: opBroadcast, message: message}:
	case <-h.done:
	default:
		h.logger.Warn("ws broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all rooms
type HubManager struct {
	hubs   map[model.RoomID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomID]*Hub),
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// GetOrCreateHub returns the hub for a room, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(roomID model.RoomID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		return hub
	}

	hub := NewHub(roomID, m.logger)
	m.hubs[roomID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[roomID]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[roomID]; ok {
		hub.Close()
		delete(m.hubs, roomID)
		m.logger.Debug("ws hub removed", slog.String("room", string(roomID)))
	}
}
