package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/util"
)

func fakeClient(hub *Hub, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		UserID:  userID,
		send:    make(chan []byte, 4),
		reply:   make(chan []byte, 4),
		limiter: hub.rateLimitConfig().limiter(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hub.Shutdown(ctx)
	})
	return hub
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	hub := startHub(t)
	a1, a2, b := fakeClient(hub, "a"), fakeClient(hub, "a"), fakeClient(hub, "b")
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.UserConnectionCount("a") == 2 && hub.IsUserOnline("b") }, time.Second, 5*time.Millisecond)

	hub.SendToUser("a", NewMessage(MessageTypeNotificationCount, NotificationCountPayload{UnreadCount: 3}))

	for _, c := range []*Client{a1, a2} {
		select {
		case data := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, MessageTypeNotificationCount, msg.Type)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Empty(t, b.send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub, "a")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("a") }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return !hub.IsUserOnline("a") }, time.Second, 5*time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)

	// a second unregister is ignored
	hub.Unregister(c)
	assert.Eventually(t, func() bool { return hub.Snapshot().ActiveConnections == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubNotifyTyping(t *testing.T) {
	hub := startHub(t)
	partner := fakeClient(hub, "partner")
	hub.Register(partner)
	require.Eventually(t, func() bool { return hub.IsUserOnline("partner") }, time.Second, 5*time.Millisecond)

	hub.NotifyTyping("me", "partner", true)
	hub.NotifyTyping("me", "partner", false)

	var types []string
	for i := 0; i < 2; i++ {
		var msg Message
		require.NoError(t, json.Unmarshal(<-partner.send, &msg))
		types = append(types, msg.Type)
		var p TypingPayload
		require.NoError(t, msg.ParsePayload(&p))
		assert.Equal(t, "me", p.UserID)
	}
	assert.Equal(t, []string{MessageTypeUserTyping, MessageTypeUserStopTyping}, types)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	c := fakeClient(hub, "a")
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline("a") }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	var msg Message
	require.NoError(t, json.Unmarshal(<-c.send, &msg))
	assert.Equal(t, MessageTypeSystem, msg.Type)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, hub.IsUserOnline("a"))
}

func TestClientRateLimit(t *testing.T) {
	hub := NewHub()
	hub.SetRateLimitConfig(RateLimitConfig{MessagesPerSecond: 1, Burst: 2})
	c := fakeClient(hub, "a")
	assert.True(t, c.limiter.Allow())
	assert.True(t, c.limiter.Allow())
	assert.False(t, c.limiter.Allow())
}

func TestFlexibleTime(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":1700000000000}`), &msg))
	assert.Equal(t, int64(1700000000000), msg.Timestamp.UnixMilli())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":"2024-01-02T03:04:05Z"}`), &msg))
	assert.Equal(t, 2024, msg.Timestamp.Year())

	assert.Error(t, json.Unmarshal([]byte(`{"type":"ping","timestamp":true}`), &msg))
}

func TestNewReplyAndError(t *testing.T) {
	original := &Message{Type: MessageTypePing, ID: "abc"}
	reply := NewReply(original, MessageTypePong, nil)
	assert.Equal(t, "abc", reply.ReplyTo)

	errMsg := NewErrorMessage("bad", "nope")
	payload, ok := errMsg.Payload.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "bad", payload.Code)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.NotifyTyping("a", "b", true)
	r.SendToUser("b", NewMessage(MessageTypeNewMessage, nil))
	assert.Equal(t, []string{MessageTypeUserTyping, MessageTypeNewMessage}, r.Types("b"))
	r.Reset()
	assert.Empty(t, r.Types("b"))
}

func dialTestServer(t *testing.T, hub *Hub, user *models.User) (*websocket.Conn, context.Context) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(hub, nil)
	handler.RegisterTypingHandler(func(_ context.Context, userID, partnerID string, isTyping bool) (bool, error) {
		if partnerID == "broken" {
			return false, errors.New("store down")
		}
		return partnerID == "chatty", nil
	})

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		util.SetUser(c, user)
		c.Next()
	}, handler.HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := startHub(t)
	user := &models.User{ID: "u1", Username: "ann"}
	conn, ctx := dialTestServer(t, hub, user)

	var welcome Message
	require.NoError(t, wsjson.Read(ctx, conn, &welcome))
	assert.Equal(t, MessageTypeSystem, welcome.Type)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]interface{}{"type": "ping", "id": "p1", "payload": map[string]int64{"clientTime": 1}}))
	var pong Message
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, MessageTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ReplyTo)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]interface{}{"type": "typing", "id": "t1", "payload": map[string]interface{}{"partnerId": "chatty", "isTyping": true}}))
	var ack Message
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	assert.Equal(t, MessageTypeTyping, ack.Type)
	var ackPayload TypingAckPayload
	require.NoError(t, ack.ParsePayload(&ackPayload))
	assert.True(t, ackPayload.IsPartnerTyping)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]interface{}{"type": "typing", "payload": map[string]interface{}{"isTyping": true}}))
	var missing Message
	require.NoError(t, wsjson.Read(ctx, conn, &missing))
	assert.Equal(t, MessageTypeError, missing.Type)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"type": "dance"}))
	var unknown Message
	require.NoError(t, wsjson.Read(ctx, conn, &unknown))
	assert.Equal(t, MessageTypeError, unknown.Type)

	require.Eventually(t, func() bool { return hub.IsUserOnline("u1") }, time.Second, 5*time.Millisecond)
	hub.SendToUser("u1", NewMessage(MessageTypeFriendRequest, FriendEventPayload{UserID: "u2", Username: "bob"}))
	var pushed Message
	require.NoError(t, wsjson.Read(ctx, conn, &pushed))
	assert.Equal(t, MessageTypeFriendRequest, pushed.Type)
}

func TestUpgradeWriterHidesGinHeaderFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	w := upgradeWriter(c.Writer)
	_, flushes := w.(interface{ WriteHeaderNow() })
	assert.False(t, flushes)
	_, ok := w.(http.Hijacker)
	assert.True(t, ok)

	w.Header().Set("Upgrade", "websocket")
	assert.Equal(t, "websocket", rec.Header().Get("Upgrade"))
	assert.False(t, c.Writer.Written())
}

func TestWebSocketRegistersClientAfterUpgrade(t *testing.T) {
	hub := startHub(t)
	conn, ctx := dialTestServer(t, hub, &models.User{ID: "u9", Username: "zed"})

	var welcome Message
	require.NoError(t, wsjson.Read(ctx, conn, &welcome))
	assert.Equal(t, MessageTypeSystem, welcome.Type)
	require.Eventually(t, func() bool { return hub.IsUserOnline("u9") }, time.Second, 5*time.Millisecond)
}
