package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoryLifetime is how long a story stays visible after it is posted
const StoryLifetime = 24 * time.Hour

// Story is an ephemeral image, video or text post
type Story struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	ImageURL  *string   `json:"imageUrl"`
	VideoURL  *string   `json:"videoUrl"`
	Text      *string   `gorm:"type:text" json:"text"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	User      *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Views     []StoryView `gorm:"foreignKey:StoryID" json:"views,omitempty"`
	Reactions []Reaction  `gorm:"foreignKey:StoryID" json:"reactions,omitempty"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(StoryLifetime)
	}
	return nil
}

// IsExpired reports whether the story is past its expiry at now
func (s *Story) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// StoryView records that a user opened a story
type StoryView struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	StoryID  string    `gorm:"size:36;not null;uniqueIndex:idx_story_view" json:"storyId"`
	UserID   string    `gorm:"size:36;not null;uniqueIndex:idx_story_view" json:"userId"`
	ViewedAt time.Time `gorm:"not null" json:"viewedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (v *StoryView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = time.Now().UTC()
	}
	return nil
}
