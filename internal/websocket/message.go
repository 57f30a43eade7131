package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime accepts Unix milliseconds or RFC3339 strings and always
// writes RFC3339
type FlexibleTime struct {
	time.Time
}

func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Server to client message types
const (
	MessageTypeSystem            = "system"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
	MessageTypeNotification      = "notification"
	MessageTypeNotificationCount = "notification_count"
	MessageTypeNewMessage        = "new_message"
	MessageTypeUserTyping        = "user_typing"
	MessageTypeUserStopTyping    = "user_stop_typing"
	MessageTypeFriendRequest     = "friend_request"
	MessageTypeFriendAccepted    = "friend_accepted"
)

// Client to server message types
const (
	MessageTypePing   = "ping"
	MessageTypeTyping = "typing"
)

// Message is the envelope of every frame in both directions
type Message struct {
	Type      string       `json:"type"`
	Payload   interface{}  `json:"payload,omitempty"`
	ID        string       `json:"id,omitempty"`
	ReplyTo   string       `json:"replyTo,omitempty"`
	Timestamp FlexibleTime `json:"timestamp"`
}

func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply answers original, carrying its id in replyTo
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	m := NewMessage(msgType, payload)
	m.ReplyTo = original.ID
	return m
}

func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// ParsePayload decodes the loosely typed payload into target
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PingPayload struct {
	ClientTime int64 `json:"clientTime"`
}

type PongPayload struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
	Latency    int64 `json:"latencyMs"`
}

type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// TypingPayload is both the inbound typing frame and the outbound
// user_typing/user_stop_typing event
type TypingPayload struct {
	UserID    string `json:"userId,omitempty"`
	PartnerID string `json:"partnerId,omitempty"`
	IsTyping  bool   `json:"isTyping"`
}

// TypingAckPayload answers an inbound typing frame
type TypingAckPayload struct {
	IsPartnerTyping bool `json:"isPartnerTyping"`
}

type NotificationPayload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      string    `json:"link,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationCountPayload struct {
	UnreadCount int64 `json:"unreadCount"`
}

type NewMessagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Sender     any       `json:"sender,omitempty"`
}

// FriendEventPayload backs friend_request and friend_accepted
type FriendEventPayload struct {
	FriendshipID string `json:"friendshipId"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	Avatar       string `json:"avatar,omitempty"`
}
