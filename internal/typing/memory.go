package typing

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/unify/internal/logger"
	"go.uber.org/zap"
)

// MemoryStore keeps deadlines in a map. It is used when Redis is not
// configured and is only correct for a single API instance.
type MemoryStore struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time
	ttl       time.Duration
	now       func() time.Time

	stop chan struct{}
	done chan struct{}
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithTTL overrides the default 3 second lifetime
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		deadlines: make(map[string]time.Time),
		ttl:       TTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) SetTyping(_ context.Context, userID, partnerID string, isTyping bool) error {
	key := Key(userID, partnerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if isTyping {
		s.deadlines[key] = s.now().Add(s.ttl)
	} else {
		delete(s.deadlines, key)
	}
	return nil
}

func (s *MemoryStore) IsTyping(_ context.Context, userID, partnerID string) (bool, error) {
	s.mu.RLock()
	deadline, ok := s.deadlines[Key(userID, partnerID)]
	s.mu.RUnlock()
	return ok && s.now().Before(deadline), nil
}

func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, deadline := range s.deadlines {
		if !now.Before(deadline) {
			delete(s.deadlines, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored marks, live or not
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deadlines)
}

// Start runs a janitor that purges every TTL until Stop
func (s *MemoryStore) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n, _ := s.Purge(context.Background()); n > 0 {
					logger.Log.Debug("Purged typing indicators", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop halts the janitor and waits for it to exit
func (s *MemoryStore) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
