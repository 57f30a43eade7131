package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account on the network
type User struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	FullName   string `gorm:"not null;default:''" json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
	Bio        string `gorm:"type:text" json:"bio"`
	IsVerified bool   `gorm:"default:false" json:"isVerified"`

	PasswordHash *string `gorm:"type:text" json:"-"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`

	LastActiveAt *time.Time     `json:"lastActiveAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// UserSummary is the public projection of a user embedded in other payloads
type UserSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	Bio        string `json:"bio,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
}

// Summary projects u for embedding
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		IsVerified: u.IsVerified,
	}
}

// PasswordReset is a single-use token mailed to a user
type PasswordReset struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *PasswordReset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Photo types in a user's gallery
const (
	PhotoTypeProfile = "profile"
	PhotoTypeCover   = "cover"
	PhotoTypeGallery = "gallery"
)

// IsValidPhotoType reports whether t is one of the gallery photo types
func IsValidPhotoType(t string) bool {
	return t == PhotoTypeProfile || t == PhotoTypeCover || t == PhotoTypeGallery
}

// PhotoGallery is one photo on a user's profile
type PhotoGallery struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index:idx_photo_user_type" json:"userId"`
	URL       string    `gorm:"not null" json:"url"`
	Type      string    `gorm:"size:16;not null;index:idx_photo_user_type" json:"type"`
	Caption   *string   `json:"caption"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *PhotoGallery) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
