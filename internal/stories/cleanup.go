package stories

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CleanupService purges expired stories on an interval
type CleanupService struct {
	service  *Service
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewCleanupService(service *Service, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{service: service, interval: interval, ctx: ctx, cancel: cancel}
}

// Start runs a sweep immediately and then every interval
func (s *CleanupService) Start() {
	s.once.Do(func() {
		logger.Log.Info("Starting story cleanup service", zap.Duration("interval", s.interval))
		s.wg.Add(1)
		go s.run()
	})
}

// Stop cancels the loop and waits for an in-flight sweep
func (s *CleanupService) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Log.Info("Story cleanup service stopped")
}

func (s *CleanupService) run() {
	defer s.wg.Done()
	s.RunOnce(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RunOnce performs a single sweep
func (s *CleanupService) RunOnce(ctx context.Context) DeleteResult {
	ctx, span := telemetry.StartSpan(ctx, "stories.cleanup")
	start := time.Now()
	res, err := s.service.PurgeExpired(ctx)
	span.SetAttributes(
		attribute.Int("stories.deleted", res.Stories),
		attribute.Int("stories.errors", res.Errors),
	)
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.ErrorWithFields("Story cleanup failed", err)
		return res
	}
	metrics.Get().StoriesExpiredTotal.Add(float64(res.Stories))
	logger.Log.Debug("Story cleanup finished", zap.Duration("took", time.Since(start)))
	return res
}
