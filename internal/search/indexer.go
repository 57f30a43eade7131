package search

import (
	"context"
	"fmt"

	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IndexUser pushes u to the users index. Failures are logged; SQL stays
// the source of truth and a reindex repairs drift.
func (s *Service) IndexUser(ctx context.Context, u *models.User) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexDocument(ctx, IndexUsers, u.ID, UserToDocument(u)); err != nil {
		logger.WarnWithFields("Failed to index user", err, logger.WithUserID(u.ID))
	}
}

func (s *Service) IndexGroup(ctx context.Context, g *models.Group) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexDocument(ctx, IndexGroups, g.ID, GroupToDocument(g)); err != nil {
		logger.WarnWithFields("Failed to index group", err, logger.WithGroupID(g.ID))
	}
}

func (s *Service) IndexPage(ctx context.Context, p *models.Page) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexDocument(ctx, IndexPages, p.ID, PageToDocument(p)); err != nil {
		logger.WarnWithFields("Failed to index page", err, zap.String("page_id", p.ID))
	}
}

// ReindexStats counts the documents written by Reindex
type ReindexStats struct {
	Users  int
	Groups int
	Pages  int
}

const reindexBatch = 500

// Reindex drops and rebuilds all three indices from the database
func (s *Service) Reindex(ctx context.Context) (*ReindexStats, error) {
	if s.es == nil {
		return nil, fmt.Errorf("elasticsearch is not configured")
	}
	if err := s.es.DeleteIndices(ctx); err != nil {
		return nil, err
	}
	if err := s.es.InitializeIndices(ctx); err != nil {
		return nil, err
	}

	stats := &ReindexStats{}
	db := s.db.WithContext(ctx)

	var users []models.User
	err := db.FindInBatches(&users, reindexBatch, func(tx *gorm.DB, _ int) error {
		items := make([]bulkItem, len(users))
		for i := range users {
			items[i] = bulkItem{ID: users[i].ID, Doc: UserToDocument(&users[i])}
		}
		stats.Users += len(items)
		return s.es.Bulk(ctx, IndexUsers, items)
	}).Error
	if err != nil {
		return stats, fmt.Errorf("reindex users: %w", err)
	}

	var groups []models.Group
	err = db.FindInBatches(&groups, reindexBatch, func(tx *gorm.DB, _ int) error {
		items := make([]bulkItem, len(groups))
		for i := range groups {
			items[i] = bulkItem{ID: groups[i].ID, Doc: GroupToDocument(&groups[i])}
		}
		stats.Groups += len(items)
		return s.es.Bulk(ctx, IndexGroups, items)
	}).Error
	if err != nil {
		return stats, fmt.Errorf("reindex groups: %w", err)
	}

	var pages []models.Page
	err = db.FindInBatches(&pages, reindexBatch, func(tx *gorm.DB, _ int) error {
		items := make([]bulkItem, len(pages))
		for i := range pages {
			items[i] = bulkItem{ID: pages[i].ID, Doc: PageToDocument(&pages[i])}
		}
		stats.Pages += len(items)
		return s.es.Bulk(ctx, IndexPages, items)
	}).Error
	if err != nil {
		return stats, fmt.Errorf("reindex pages: %w", err)
	}

	logger.Log.Info("Search indices rebuilt",
		zap.Int("users", stats.Users),
		zap.Int("groups", stats.Groups),
		zap.Int("pages", stats.Pages),
	)
	return stats, nil
}
