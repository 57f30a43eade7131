package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one websocket connection of a user
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	UserID   string
	Username string

	// send is owned by the hub, which closes it on unregister
	send chan []byte
	// reply carries direct answers to this client's own frames
	reply chan []byte

	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	lastPingAt time.Time
	closed     bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		reply:       make(chan []byte, 16),
		ConnectedAt: time.Now().UTC(),
		limiter:     hub.rateLimitConfig().limiter(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads frames until the connection fails, then unregisters
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("WebSocket client closed", logger.WithUserID(c.UserID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("WebSocket read error", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.stats.Errors.Add(1)
			}
			return
		}

		if !c.limiter.Allow() {
			c.SendError("rate_limited", "Too many messages, please slow down")
			c.hub.stats.Errors.Add(1)
			continue
		}
		c.hub.stats.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.SendError("invalid_json", "Failed to parse message")
			continue
		}
		metrics.Get().WebSocketMessagesTotal.WithLabelValues(message.Type, "in").Inc()
		c.handleMessage(&message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "closing")
				return
			}
			if err := c.write(data); err != nil {
				return
			}

		case data := <-c.reply:
			if err := c.write(data); err != nil {
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			c.lastPingAt = time.Now().UTC()
			c.mu.Unlock()

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("WebSocket ping failed", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, writeWait)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if c.ctx.Err() == nil {
			logger.Log.Warn("WebSocket write error", logger.WithUserID(c.UserID), zap.Error(err))
			c.hub.stats.Errors.Add(1)
		}
		return err
	}
	return nil
}

func (c *Client) handleMessage(message *Message) {
	if message.Type == MessageTypePing || message.Type == "heartbeat" {
		c.handlePing(message)
		return
	}

	handler, ok := c.hub.handler(message.Type)
	if !ok {
		c.SendError("unknown_type", fmt.Sprintf("Unknown message type: %s", message.Type))
		return
	}
	if err := handler(c.ctx, c, message); err != nil {
		logger.Log.Warn("WebSocket handler failed",
			logger.WithUserID(c.UserID),
			zap.String("type", message.Type),
			zap.Error(err))
		c.SendError("handler_error", err.Error())
	}
}

func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	_ = message.ParsePayload(&ping)

	serverTime := time.Now().UnixMilli()
	var latency int64
	if ping.ClientTime > 0 {
		latency = serverTime - ping.ClientTime
	}
	_ = c.Send(NewReply(message, MessageTypePong, PongPayload{
		ClientTime: ping.ClientTime,
		ServerTime: serverTime,
		Latency:    latency,
	}))
}

// Send queues a frame for this connection only
func (c *Client) Send(message *Message) error {
	if c.IsClosed() {
		return errors.New("client connection closed")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	select {
	case c.reply <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client shutting down")
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) SendError(code, message string) {
	_ = c.Send(NewErrorMessage(code, message))
}

// Close cancels the pumps and closes the connection once
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
	}
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) LastPingAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPingAt
}
