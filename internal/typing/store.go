// Package typing tracks short-lived "user is typing to partner" indicators.
package typing

import (
	"context"
	"time"
)

// TTL is how long a typing indicator stays live without a refresh
const TTL = 3 * time.Second

// Store records typing state per directed (user, partner) pair
type Store interface {
	// SetTyping marks userID as typing to partnerID, or clears the mark
	SetTyping(ctx context.Context, userID, partnerID string, isTyping bool) error
	// IsTyping reports whether userID's mark for partnerID is still live
	IsTyping(ctx context.Context, userID, partnerID string) (bool, error)
	// Purge drops expired marks and returns how many were removed
	Purge(ctx context.Context) (int, error)
}

// Key is the pair identifier "userID:partnerID"
func Key(userID, partnerID string) string {
	return userID + ":" + partnerID
}
