// Package kernel holds the process's services so handlers and background
// jobs share one set of dependencies.
package kernel

import (
	"context"
	"sync"

	"github.com/zfogg/unify/internal/auth"
	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/email"
	"github.com/zfogg/unify/internal/friends"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/search"
	"github.com/zfogg/unify/internal/storage"
	"github.com/zfogg/unify/internal/stories"
	"github.com/zfogg/unify/internal/typing"
	"github.com/zfogg/unify/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel is a service locator with LIFO cleanup hooks. Optional services
// (cache, media, mailer, push) may be nil and callers must check.
type Kernel struct {
	config *config.Config
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	auth    auth.ServiceInterface
	friends *friends.Service
	typing  *typing.Service
	search  *search.Service
	stories *stories.Service
	media   storage.MediaUploader
	mailer  email.Sender
	pusher  websocket.Pusher

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

func New() *Kernel {
	return &Kernel{}
}

func (k *Kernel) SetConfig(cfg *config.Config) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.config = cfg
	return k
}

// Config returns the loaded configuration, or an empty one in tests
func (k *Kernel) Config() *config.Config {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.config == nil {
		return &config.Config{}
	}
	return k.config
}

func (k *Kernel) SetDB(db *gorm.DB) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.db = db
	return k
}

func (k *Kernel) DB() *gorm.DB {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.db
}

func (k *Kernel) SetLogger(l *zap.Logger) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = l
	return k
}

// Logger falls back to the global logger
func (k *Kernel) Logger() *zap.Logger {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.logger == nil {
		return logger.Log
	}
	return k.logger
}

func (k *Kernel) SetCache(client *cache.RedisClient) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache = client
	return k
}

func (k *Kernel) Cache() *cache.RedisClient {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cache
}

func (k *Kernel) SetAuth(service auth.ServiceInterface) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.auth = service
	return k
}

func (k *Kernel) Auth() auth.ServiceInterface {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.auth
}

func (k *Kernel) SetFriends(service *friends.Service) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.friends = service
	return k
}

func (k *Kernel) Friends() *friends.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.friends
}

func (k *Kernel) SetTyping(service *typing.Service) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.typing = service
	return k
}

func (k *Kernel) Typing() *typing.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.typing
}

func (k *Kernel) SetSearch(service *search.Service) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.search = service
	return k
}

func (k *Kernel) Search() *search.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.search
}

func (k *Kernel) SetStories(service *stories.Service) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stories = service
	return k
}

func (k *Kernel) Stories() *stories.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.stories
}

func (k *Kernel) SetMedia(uploader storage.MediaUploader) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.media = uploader
	return k
}

func (k *Kernel) Media() storage.MediaUploader {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.media
}

func (k *Kernel) SetMailer(sender email.Sender) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.mailer = sender
	return k
}

func (k *Kernel) Mailer() email.Sender {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.mailer
}

func (k *Kernel) SetPusher(pusher websocket.Pusher) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pusher = pusher
	return k
}

// Pusher returns the realtime pusher, nil when websockets are disabled
func (k *Kernel) Pusher() websocket.Pusher {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pusher
}

// OnCleanup registers fn to run at shutdown. Hooks run last registered first.
func (k *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
	return k
}

// Cleanup runs every hook and keeps going past failures
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	funcs := k.cleanupFuncs
	k.cleanupFuncs = nil
	k.mu.Unlock()

	var failed []string
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			k.Logger().Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return NewInitializationError("cleanup failed", failed)
	}
	return nil
}

// Validate checks that the required services are present and logs the
// optional ones that are missing
func (k *Kernel) Validate() error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var missing []string
	if k.db == nil {
		missing = append(missing, "database")
	}
	if k.auth == nil {
		missing = append(missing, "auth service")
	}
	if k.friends == nil {
		missing = append(missing, "friends service")
	}
	if k.typing == nil {
		missing = append(missing, "typing service")
	}
	if k.search == nil {
		missing = append(missing, "search service")
	}
	if k.stories == nil {
		missing = append(missing, "stories service")
	}
	if len(missing) > 0 {
		return NewInitializationError("missing required dependencies", missing)
	}

	optional := []struct {
		name    string
		present bool
	}{
		{"redis", k.cache != nil},
		{"media storage", k.media != nil},
		{"email", k.mailer != nil},
		{"websocket push", k.pusher != nil},
	}
	for _, o := range optional {
		if !o.present {
			logger.Log.Warn("Optional dependency not configured", zap.String("dependency", o.name))
		}
	}
	return nil
}
