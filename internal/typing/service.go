package typing

import (
	"context"
	"fmt"

	"github.com/zfogg/unify/internal/metrics"
)

// Notifier tells partnerID that userID started or stopped typing
type Notifier interface {
	NotifyTyping(userID, partnerID string, isTyping bool)
}

// Service applies typing updates from HTTP and websocket clients alike
type Service struct {
	store    Store
	notifier Notifier
}

// NewService wires store with an optional notifier
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Update records the caller's state and returns whether the partner is
// currently typing back
func (s *Service) Update(ctx context.Context, userID, partnerID string, isTyping bool) (bool, error) {
	if partnerID == "" {
		return false, fmt.Errorf("partner id is required")
	}
	if err := s.store.SetTyping(ctx, userID, partnerID, isTyping); err != nil {
		return false, fmt.Errorf("set typing: %w", err)
	}

	state := "stop"
	if isTyping {
		state = "start"
	}
	metrics.Get().TypingUpdatesTotal.WithLabelValues(state).Inc()

	if s.notifier != nil {
		s.notifier.NotifyTyping(userID, partnerID, isTyping)
	}
	return s.store.IsTyping(ctx, partnerID, userID)
}

// PartnerTyping purges stale marks then reports whether partnerID is typing to userID
func (s *Service) PartnerTyping(ctx context.Context, userID, partnerID string) (bool, error) {
	if _, err := s.store.Purge(ctx); err != nil {
		return false, err
	}
	return s.store.IsTyping(ctx, partnerID, userID)
}

// Clear drops userID's mark for partnerID without notifying, used when a
// message is sent
func (s *Service) Clear(ctx context.Context, userID, partnerID string) error {
	return s.store.SetTyping(ctx, userID, partnerID, false)
}
