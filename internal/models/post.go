package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;not null;index:idx_posts_user_created" json:"userId"`
	Content      string    `gorm:"type:text" json:"content"`
	ImageURLs    []string  `gorm:"serializer:json;type:text" json:"imageUrls"`
	VideoURL     string    `json:"videoUrl,omitempty"`
	GroupID      *string   `gorm:"size:36;index" json:"groupId,omitempty"`
	PageID       *string   `gorm:"size:36;index" json:"pageId,omitempty"`
	LikeCount    int       `gorm:"default:0" json:"likeCount"`
	CommentCount int       `gorm:"default:0" json:"commentCount"`
	CreatedAt    time.Time `gorm:"index:idx_posts_user_created" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type PostLike struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_like" json:"postId"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_like" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (l *PostLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// Comment on a post. Replies point at their parent with ParentID.
type Comment struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	PostID    string     `gorm:"size:36;not null;index" json:"postId"`
	UserID    string     `gorm:"size:36;not null;index" json:"userId"`
	ParentID  *string    `gorm:"size:36;index" json:"parentId,omitempty"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	IsEdited  bool       `gorm:"default:false" json:"isEdited"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Reaction is an emoji left on exactly one of a post, comment or story
type Reaction struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	Emoji     string    `gorm:"size:32;not null" json:"emoji"`
	PostID    *string   `gorm:"size:36;index" json:"postId,omitempty"`
	CommentID *string   `gorm:"size:36;index" json:"commentId,omitempty"`
	StoryID   *string   `gorm:"size:36;index" json:"storyId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
