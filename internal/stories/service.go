// Package stories removes stories together with their views, reactions and
// stored media, on demand and when they expire.
package stories

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MediaRemover deletes objects that belong to our bucket
type MediaRemover interface {
	DeleteFile(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// Service deletes stories. media may be nil when storage is not configured.
type Service struct {
	db    *gorm.DB
	media MediaRemover
	now   func() time.Time
}

func NewService(db *gorm.DB, media MediaRemover) *Service {
	return &Service{db: db, media: media, now: time.Now}
}

// DeleteResult counts what a deletion removed
type DeleteResult struct {
	Stories   int
	Views     int64
	Reactions int64
	Media     int
	Errors    int
}

func (r *DeleteResult) add(o DeleteResult) {
	r.Stories += o.Stories
	r.Views += o.Views
	r.Reactions += o.Reactions
	r.Media += o.Media
	r.Errors += o.Errors
}

// Delete removes story, its views and reactions in one transaction, then
// its media. Media failures are logged and counted, not returned.
func (s *Service) Delete(ctx context.Context, story *models.Story) (DeleteResult, error) {
	var res DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		views := tx.Where("story_id = ?", story.ID).Delete(&models.StoryView{})
		if views.Error != nil {
			return views.Error
		}
		reactions := tx.Where("story_id = ?", story.ID).Delete(&models.Reaction{})
		if reactions.Error != nil {
			return reactions.Error
		}
		if err := tx.Delete(&models.Story{}, "id = ?", story.ID).Error; err != nil {
			return err
		}
		res.Views, res.Reactions, res.Stories = views.RowsAffected, reactions.RowsAffected, 1
		return nil
	})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete story %s: %w", story.ID, err)
	}

	for _, url := range []*string{story.ImageURL, story.VideoURL} {
		if url == nil || *url == "" {
			continue
		}
		switch removed, err := s.removeMedia(ctx, *url); {
		case err != nil:
			res.Errors++
			logger.WarnWithFields("Failed to delete story media", err, logger.WithStoryID(story.ID))
		case removed:
			res.Media++
		}
	}
	return res, nil
}

func (s *Service) removeMedia(ctx context.Context, url string) (bool, error) {
	if s.media == nil {
		return false, nil
	}
	key, ok := s.media.KeyFromURL(url)
	if !ok {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.media.DeleteFile(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes every story whose expiry has passed
func (s *Service) PurgeExpired(ctx context.Context) (DeleteResult, error) {
	var total DeleteResult
	var expired []models.Story
	if err := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Find(&expired).Error; err != nil {
		return total, fmt.Errorf("query expired stories: %w", err)
	}
	for i := range expired {
		res, err := s.Delete(ctx, &expired[i])
		if err != nil {
			total.Errors++
			logger.ErrorWithFields("Failed to delete expired story", err, logger.WithStoryID(expired[i].ID))
			continue
		}
		total.add(res)
	}
	if total.Stories > 0 || total.Errors > 0 {
		logger.Log.Info("Expired stories removed",
			zap.Int("stories", total.Stories),
			zap.Int64("views", total.Views),
			zap.Int64("reactions", total.Reactions),
			zap.Int("media", total.Media),
			zap.Int("errors", total.Errors),
		)
	}
	return total, nil
}
