package websocket

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/util"
	"go.uber.org/zap"
)

// Handler upgrades authenticated requests on /api/ws
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler accepts origins matching originPatterns; an empty list only
// allows same-origin upgrades
func NewHandler(hub *Hub, originPatterns []string) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns}
}

// HandleWebSocket expects the auth middleware to have stored the user
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(upgradeWriter(c.Writer), c.Request, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.WarnWithFields("WebSocket upgrade failed", err, logger.WithUserID(user.ID))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")
	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Welcome to Unify!",
		Data: map[string]interface{}{
			"userId":     user.ID,
			"username":   user.Username,
			"serverTime": time.Now().UTC().UnixMilli(),
		},
	}))

	go client.WritePump()
	client.ReadPump()
}

// HandleStats reports hub counters and whether the listed users are online
func (h *Handler) HandleStats(c *gin.Context) {
	online := map[string]bool{}
	for _, id := range c.QueryArray("userId") {
		online[id] = h.hub.IsUserOnline(id)
	}
	c.JSON(http.StatusOK, gin.H{
		"websocket": h.hub.Snapshot(),
		"online":    online,
		"timestamp": time.Now().UTC(),
	})
}

// TypingUpdater applies a typing change and reports whether the partner is typing
type TypingUpdater func(ctx context.Context, userID, partnerID string, isTyping bool) (bool, error)

// RegisterTypingHandler routes inbound typing frames to update
func (h *Handler) RegisterTypingHandler(update TypingUpdater) {
	h.hub.RegisterHandler(MessageTypeTyping, func(ctx context.Context, client *Client, msg *Message) error {
		var payload TypingPayload
		if err := msg.ParsePayload(&payload); err != nil {
			return errors.New("invalid typing payload")
		}
		if payload.PartnerID == "" {
			return errors.New("partnerId is required")
		}
		partnerTyping, err := update(ctx, client.UserID, payload.PartnerID, payload.IsTyping)
		if err != nil {
			logger.Log.Warn("Typing update failed", logger.WithUserID(client.UserID), zap.Error(err))
			return errors.New("typing update failed")
		}
		return client.Send(NewReply(msg, MessageTypeTyping, TypingAckPayload{IsPartnerTyping: partnerTyping}))
	})
}

// hijackWriter sends the 101 through the raw net/http writer and hijacks
// through gin, so gin counts the response as written and leaves the
// connection alone once the handler returns
type hijackWriter struct {
	http.ResponseWriter
	ginWriter gin.ResponseWriter
}

func (w hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ginWriter.Hijack()
}

// upgradeWriter hides gin's WriteHeaderNow from websocket.Accept. gin refuses
// to hijack a response whose header it already flushed.
func upgradeWriter(w gin.ResponseWriter) http.ResponseWriter {
	var raw http.ResponseWriter = w
	for {
		if _, buffered := raw.(interface{ WriteHeaderNow() }); !buffered {
			return hijackWriter{ResponseWriter: raw, ginWriter: w}
		}
		u, ok := raw.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return w
		}
		raw = u.Unwrap()
	}
}

func (h *Handler) Hub() *Hub {
	return h.hub
}
