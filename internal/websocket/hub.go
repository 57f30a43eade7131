// Package websocket pushes realtime events to connected users.
// Uses github.com/coder/websocket.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pusher delivers a message to every connection of a user. Handlers depend
// on this instead of *Hub.
type Pusher interface {
	SendToUser(userID string, message *Message)
}

// Hub keeps the live connections of each user
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	unicast    chan *unicastMessage

	mu sync.RWMutex

	stats *Stats

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	handlers map[string]MessageHandler

	rateLimit RateLimitConfig
}

// Stats counts connection activity since start
type Stats struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig is the per-connection token bucket for inbound frames
type RateLimitConfig struct {
	MessagesPerSecond float64
	Burst             int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MessagesPerSecond: 10, Burst: 20}
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.MessagesPerSecond), c.Burst)
}

type unicastMessage struct {
	userID  string
	message *Message
}

// MessageHandler processes an inbound frame of one type
type MessageHandler func(ctx context.Context, client *Client, message *Message) error

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		unicast:    make(chan *unicastMessage, 1024),
		stats:      &Stats{},
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		handlers:   make(map[string]MessageHandler),
		rateLimit:  DefaultRateLimitConfig(),
	}
}

// RegisterHandler routes inbound frames of msgType to handler
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Debug("Registered websocket handler", zap.String("type", msgType))
}

func (h *Hub) handler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run is the hub's event loop; it returns after Shutdown
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("WebSocket hub starting")
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case u := <-h.unicast:
			h.deliver(u.userID, u.message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.mu.Unlock()

	h.stats.TotalConnections.Add(1)
	active := h.stats.ActiveConnections.Add(1)
	metrics.Get().WebSocketConnections.Inc()
	logger.Log.Info("WebSocket client connected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.UserID]
	if ok {
		if _, ok = clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, client.UserID)
			}
			close(client.send)
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	active := h.stats.ActiveConnections.Add(-1)
	metrics.Get().WebSocketConnections.Dec()
	logger.Log.Info("WebSocket client disconnected", logger.WithUserID(client.UserID), zap.Int64("active", active))
}

func (h *Hub) deliver(userID string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.ErrorWithFields("Failed to marshal websocket message", err, zap.String("type", message.Type))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
			h.stats.MessagesSent.Add(1)
			metrics.Get().WebSocketMessagesTotal.WithLabelValues(message.Type, "out").Inc()
		default:
			h.stats.ConnectionsDropped.Add(1)
			go h.Unregister(client)
		}
	}
}

// SendToUser queues message for every connection of userID
func (h *Hub) SendToUser(userID string, message *Message) {
	select {
	case h.unicast <- &unicastMessage{userID: userID, message: message}:
	case <-h.ctx.Done():
	}
}

// NotifyTyping pushes user_typing or user_stop_typing to partnerID
func (h *Hub) NotifyTyping(userID, partnerID string, isTyping bool) {
	msgType := MessageTypeUserStopTyping
	if isTyping {
		msgType = MessageTypeUserTyping
	}
	h.SendToUser(partnerID, NewMessage(msgType, TypingPayload{UserID: userID, IsTyping: isTyping}))
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline reports whether userID has at least one connection
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Snapshot returns the current counters
func (h *Hub) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalConnections:   h.stats.TotalConnections.Load(),
		ActiveConnections:  h.stats.ActiveConnections.Load(),
		MessagesReceived:   h.stats.MessagesReceived.Load(),
		MessagesSent:       h.stats.MessagesSent.Load(),
		Errors:             h.stats.Errors.Load(),
		ConnectionsDropped: h.stats.ConnectionsDropped.Load(),
	}
}

type StatsSnapshot struct {
	TotalConnections   int64 `json:"totalConnections"`
	ActiveConnections  int64 `json:"activeConnections"`
	MessagesReceived   int64 `json:"messagesReceived"`
	MessagesSent       int64 `json:"messagesSent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connectionsDropped"`
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		s.ActiveConnections, s.TotalConnections, s.MessagesReceived, s.MessagesSent, s.Errors, s.ConnectionsDropped)
}

// Shutdown stops Run, which tells every client the server is going away
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		logger.Log.Info("WebSocket hub stopped", zap.String("stats", h.Snapshot().String()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))
	closed := 0
	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
			}
			close(client.send)
			closed++
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	metrics.Get().WebSocketConnections.Sub(float64(closed))
	logger.Log.Info("Closed websocket connections", zap.Int("count", closed))
}

// SetRateLimitConfig changes the bucket used for connections accepted later
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimit = config
}

func (h *Hub) rateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimit
}

var _ Pusher = (*Hub)(nil)

