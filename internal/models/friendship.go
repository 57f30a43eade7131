package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship statuses
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipDeclined = "declined"
	FriendshipBlocked  = "blocked"
)

// IsValidFriendshipStatus reports whether s is a known status
func IsValidFriendshipStatus(s string) bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipDeclined, FriendshipBlocked:
		return true
	}
	return false
}

// Friendship links a requester (User1) to a receiver (User2)
type Friendship struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	User1ID   string    `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair;index" json:"user1Id"`
	User2ID   string    `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair;index" json:"user2Id"`
	Status    string    `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User1 *User `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2 *User `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Status == "" {
		f.Status = FriendshipPending
	}
	return nil
}

// Other returns the endpoint that is not userID
func (f *Friendship) Other(userID string) string {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}

// Involves reports whether userID is either endpoint
func (f *Friendship) Involves(userID string) bool {
	return f.User1ID == userID || f.User2ID == userID
}
