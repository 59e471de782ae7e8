// Package events implements real-time WorkflowState delivery over
// WebSocket: one channel per session, subscribe/unsubscribe/broadcast.
// Broadcast fans out in-process only; cross-pod distribution is a
// deployment concern this single-process service does not carry.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// writeTimeout bounds how long a single client send may block.
const writeTimeout = 5 * time.Second

// ClientMessage is a command sent by a WebSocket client.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" | "unsubscribe" | "ping"
	Channel string `json:"channel,omitempty"`
}

// Connection is a single WebSocket client, owned by the goroutine
// running HandleConnection.
type Connection struct {
	ID            string
	conn          *websocket.Conn
	subscriptions map[string]bool
}

// Manager manages WebSocket connections and per-session-channel
// subscriptions for a single process.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection

	channelMu sync.RWMutex
	channels  map[string]map[string]bool // channel -> connection IDs
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		channels:    make(map[string]map[string]bool),
	}
}

// HandleConnection manages one WebSocket connection's lifecycle. Blocks
// until the connection closes or ctx is cancelled.
func (m *Manager) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	c := &Connection{
		ID:            uuid.NewString(),
		conn:          conn,
		subscriptions: make(map[string]bool),
	}

	m.register(c)
	defer m.unregister(c)

	m.sendJSON(c, map[string]string{"type": "connection.established", "connectionID": c.ID})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid websocket message", "connectionID", c.ID, "error", err)
			continue
		}
		m.handleClientMessage(c, msg)
	}
}

func (m *Manager) handleClientMessage(c *Connection, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			m.sendJSON(c, map[string]string{"type": "error", "message": "channel is required"})
			return
		}
		m.subscribe(c, msg.Channel)
		m.sendJSON(c, map[string]string{"type": "subscription.confirmed", "channel": msg.Channel})
	case "unsubscribe":
		if msg.Channel != "" {
			m.unsubscribe(c, msg.Channel)
		}
	case "ping":
		m.sendJSON(c, map[string]string{"type": "pong"})
	}
}

func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	m.channelMu.Lock()
	for channel, ids := range m.channels {
		delete(ids, c.ID)
		if len(ids) == 0 {
			delete(m.channels, channel)
		}
	}
	m.channelMu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func (m *Manager) subscribe(c *Connection, channel string) {
	m.channelMu.Lock()
	defer m.channelMu.Unlock()
	if _, ok := m.channels[channel]; !ok {
		m.channels[channel] = make(map[string]bool)
	}
	m.channels[channel][c.ID] = true
	c.subscriptions[channel] = true
}

func (m *Manager) unsubscribe(c *Connection, channel string) {
	m.channelMu.Lock()
	defer m.channelMu.Unlock()
	delete(m.channels[channel], c.ID)
	delete(c.subscriptions, channel)
}

// Broadcast sends event to every connection subscribed to channel (one
// channel per sessionID). Connection pointers are snapshotted under the
// registry lock, then sent without holding it, so a slow client never
// stalls subscribe/unsubscribe for everyone else.
func (m *Manager) Broadcast(channel string, event any) {
	m.channelMu.RLock()
	ids, ok := m.channels[channel]
	if !ok {
		m.channelMu.RUnlock()
		return
	}
	idList := make([]string, 0, len(ids))
	for id := range ids {
		idList = append(idList, id)
	}
	m.channelMu.RUnlock()

	m.mu.RLock()
	conns := make([]*Connection, 0, len(idList))
	for _, id := range idList {
		if c, ok := m.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		m.sendJSON(c, event)
	}
}

// ActiveConnections returns the current number of live WebSocket clients.
func (m *Manager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *Manager) sendJSON(c *Connection, v any) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, mustJSON(v)); err != nil {
		slog.Warn("failed to send to websocket client", "connectionID", c.ID, "error", err)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","message":"failed to encode event"}`)
	}
	return b
}
