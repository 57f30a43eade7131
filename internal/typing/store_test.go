package typing

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.SetTyping(ctx, "a", "b", true))

	typing, _ := store.IsTyping(ctx, "a", "b")
	assert.True(t, typing)
	reverse, _ := store.IsTyping(ctx, "b", "a")
	assert.False(t, reverse, "keys are directional")

	clock.Advance(2999 * time.Millisecond)
	typing, _ = store.IsTyping(ctx, "a", "b")
	assert.True(t, typing)

	clock.Advance(time.Millisecond)
	typing, _ = store.IsTyping(ctx, "a", "b")
	assert.False(t, typing, "expired at exactly TTL")
}

func TestMemoryStoreRefreshAndClear(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	store.SetTyping(ctx, "a", "b", true)
	clock.Advance(2 * time.Second)
	store.SetTyping(ctx, "a", "b", true)
	clock.Advance(2 * time.Second)
	typing, _ := store.IsTyping(ctx, "a", "b")
	assert.True(t, typing, "refresh extends the deadline")

	store.SetTyping(ctx, "a", "b", false)
	typing, _ = store.IsTyping(ctx, "a", "b")
	assert.False(t, typing)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStorePurge(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	store.SetTyping(ctx, "a", "b", true)
	clock.Advance(2 * time.Second)
	store.SetTyping(ctx, "c", "d", true)
	clock.Advance(1500 * time.Millisecond)

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := string(rune('a' + i%26))
			store.SetTyping(ctx, user, "z", i%2 == 0)
			store.IsTyping(ctx, user, "z")
			store.Purge(ctx)
		}(i)
	}
	wg.Wait()
}

func TestMemoryStoreJanitor(t *testing.T) {
	store := NewMemoryStore(WithTTL(20 * time.Millisecond))
	ctx := context.Background()
	store.SetTyping(ctx, "a", "b", true)

	store.Start()
	store.Start()
	defer store.Stop()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
	store.Stop()
	store.Stop()
}

func TestNewStoreWithoutRedis(t *testing.T) {
	_, ok := NewStore(nil).(*MemoryStore)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set")
	}
	client, err := cache.NewRedisClient(config.RedisConfig{Host: host, Port: os.Getenv("REDIS_PORT")})
	require.NoError(t, err)
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()
	user, partner := "typing-test-"+time.Now().Format("150405.000"), "partner"

	require.NoError(t, store.SetTyping(ctx, user, partner, true))
	typing, err := store.IsTyping(ctx, user, partner)
	require.NoError(t, err)
	assert.True(t, typing)

	require.NoError(t, store.SetTyping(ctx, user, partner, false))
	typing, _ = store.IsTyping(ctx, user, partner)
	assert.False(t, typing)

	n, err := store.Purge(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
