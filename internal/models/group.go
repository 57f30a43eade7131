package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"

	PageRoleOwner    = "owner"
	PageRoleFollower = "follower"
)

type Group struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `json:"image"`
	AdminID     string    `gorm:"size:36;not null;index" json:"adminId"`
	IsPrivate   bool      `gorm:"default:false" json:"isPrivate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Admin *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return nil
}

// GroupMember is a membership; JoinedAt is nil while an invitation is pending
type GroupMember struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	GroupID   string     `gorm:"size:36;not null;uniqueIndex:idx_group_member" json:"groupId"`
	UserID    string     `gorm:"size:36;not null;uniqueIndex:idx_group_member;index" json:"userId"`
	Role      string     `gorm:"size:16;not null;default:member" json:"role"`
	JoinedAt  *time.Time `json:"joinedAt"`
	CreatedAt time.Time  `json:"createdAt"`

	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

type Page struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `json:"image"`
	CoverImage  string    `json:"coverImage"`
	Category    string    `json:"category"`
	IsVerified  bool      `gorm:"default:false" json:"isVerified"`
	OwnerID     string    `gorm:"size:36;not null;index" json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Page) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type PageMember struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PageID    string    `gorm:"size:36;not null;uniqueIndex:idx_page_member" json:"pageId"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_page_member;index" json:"userId"`
	Role      string    `gorm:"size:16;not null;default:follower" json:"role"`
	CreatedAt time.Time `json:"createdAt"`

	Page *Page `gorm:"foreignKey:PageID" json:"page,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *PageMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
