package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationFriendRequest     = "friend_request"
	NotificationFriendAccepted    = "friend_accepted"
	NotificationGroupMemberJoined = "group_member_joined"
	NotificationCommentReaction   = "comment_reaction"
	NotificationCommentReply      = "comment_reply"
	NotificationPostComment       = "post_comment"
	NotificationPostLike          = "post_like"
	NotificationNewMessage        = "new_message"
)

type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index:idx_notifications_user_read" json:"userId"`
	ActorID   *string   `gorm:"size:36" json:"actorId,omitempty"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Title     string    `json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `gorm:"default:false;index:idx_notifications_user_read" json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// Message is a direct message between two users
type Message struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string     `gorm:"size:36;not null;index:idx_messages_pair" json:"senderId"`
	ReceiverID string     `gorm:"size:36;not null;index:idx_messages_pair;index" json:"receiverId"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsRead     bool       `gorm:"default:false" json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
