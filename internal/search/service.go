// Package search implements the people, groups and pages directory search.
package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Search kinds accepted by the type parameter
const (
	KindAll    = "all"
	KindPeople = "personnes"
	KindGroups = "groupes"
	KindPages  = "pages"
)

const (
	// MinQueryLength is the shortest query that hits a backend
	MinQueryLength = 2
	// MaxPerKind caps each result list
	MaxPerKind = 10
	// CacheTTL is how long matched ids stay in Redis
	CacheTTL = 5 * time.Minute
)

// StatusResolver reports the friendship status between a viewer and others
type StatusResolver interface {
	StatusMap(ctx context.Context, userID string, others []string) (map[string]string, error)
}

type Person struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	FullName         string `json:"fullName"`
	Avatar           string `json:"avatar"`
	IsVerified       bool   `json:"isVerified"`
	FriendshipStatus string `json:"friendshipStatus,omitempty"`
}

type GroupResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	AdminID     string `json:"adminId"`
	IsPrivate   bool   `json:"isPrivate"`
	IsMember    bool   `json:"isMember"`
}

type PageResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	CoverImage  string `json:"coverImage"`
	Category    string `json:"category"`
	IsVerified  bool   `json:"isVerified"`
	IsFollowing bool   `json:"isFollowing"`
}

// Results is the response of GET /api/search
type Results struct {
	Personnes []Person      `json:"personnes"`
	Groupes   []GroupResult `json:"groupes"`
	Pages     []PageResult  `json:"pages"`
}

func emptyResults() *Results {
	return &Results{Personnes: []Person{}, Groupes: []GroupResult{}, Pages: []PageResult{}}
}

// matchedIDs is the viewer-independent part of a search, which is what gets cached
type matchedIDs struct {
	People []string `json:"people"`
	Groups []string `json:"groups"`
	Pages  []string `json:"pages"`
}

// Service answers searches from Elasticsearch when configured and from SQL
// otherwise. Both es and redis may be nil.
type Service struct {
	db       *gorm.DB
	es       *Client
	redis    *cache.RedisClient
	statuses StatusResolver
	stats    *metrics.SearchStats
}

func NewService(db *gorm.DB, es *Client, redis *cache.RedisClient, statuses StatusResolver) *Service {
	return &Service{db: db, es: es, redis: redis, statuses: statuses, stats: metrics.Search()}
}

// Enabled reports whether Elasticsearch backs the service
func (s *Service) Enabled() bool {
	return s.es != nil
}

func wants(kind, target string) bool {
	return kind == KindAll || kind == target
}

// CacheKey is the Redis key for a query of kind
func CacheKey(kind, q string) string {
	sum := md5.Sum([]byte(kind + "|" + strings.ToLower(q)))
	return "search:" + hex.EncodeToString(sum[:])
}

// Search runs q against the kinds selected by kind. viewerID may be empty
// for anonymous callers.
func (s *Service) Search(ctx context.Context, q, kind, viewerID string) (*Results, error) {
	q = strings.TrimSpace(q)
	if kind == "" {
		kind = KindAll
	}
	if utf8.RuneCountInString(q) < MinQueryLength {
		return emptyResults(), nil
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query",
		attribute.String("search.kind", kind),
		attribute.Bool("search.authenticated", viewerID != ""),
	)
	start := time.Now()
	metric := metrics.QueryMetric{Backend: "sql"}
	if s.es != nil {
		metric.Backend = "elasticsearch"
	}

	ids, hit, err := s.matchIDs(ctx, q, kind, &metric)
	metric.CacheHit = hit
	if err != nil {
		metric.Error = true
		metric.Duration = time.Since(start)
		s.stats.Record(metric)
		telemetry.EndSpan(span, err)
		return nil, err
	}

	results, err := s.hydrate(ctx, ids, viewerID)
	metric.Duration = time.Since(start)
	if results != nil {
		metric.People, metric.Groups, metric.Pages = len(results.Personnes), len(results.Groupes), len(results.Pages)
	}
	metric.Error = err != nil
	s.stats.Record(metric)
	telemetry.EndSpan(span, err)
	return results, err
}

func (s *Service) matchIDs(ctx context.Context, q, kind string, metric *metrics.QueryMetric) (*matchedIDs, bool, error) {
	key := CacheKey(kind, q)
	var cached matchedIDs
	if err := s.redis.GetJSON(ctx, key, &cached); err == nil {
		return &cached, true, nil
	} else if !cache.IsMiss(err) {
		logger.WarnWithFields("Search cache read failed", err)
	}

	var ids *matchedIDs
	var err error
	if s.es != nil {
		ids, err = s.matchElasticsearch(ctx, q, kind)
		if err != nil {
			logger.WarnWithFields("Elasticsearch query failed, using SQL", err, zap.String("kind", kind))
			metrics.SearchErrorsTotal.WithLabelValues("elasticsearch", kind).Inc()
			metric.Backend = "sql"
			ids, err = s.matchSQL(ctx, q, kind)
		}
	} else {
		ids, err = s.matchSQL(ctx, q, kind)
	}
	if err != nil {
		return nil, false, err
	}

	if err := s.redis.SetJSON(ctx, key, ids, CacheTTL); err != nil && err != cache.ErrDisabled {
		logger.WarnWithFields("Search cache write failed", err)
	}
	return ids, false, nil
}

func (s *Service) matchElasticsearch(ctx context.Context, q, kind string) (*matchedIDs, error) {
	out := &matchedIDs{}
	var err error
	if wants(kind, KindPeople) {
		if out.People, err = s.es.SearchIDs(ctx, IndexUsers, q, MaxPerKind); err != nil {
			return nil, err
		}
	}
	if wants(kind, KindGroups) {
		if out.Groups, err = s.es.SearchIDs(ctx, IndexGroups, q, MaxPerKind); err != nil {
			return nil, err
		}
	}
	if wants(kind, KindPages) {
		if out.Pages, err = s.es.SearchIDs(ctx, IndexPages, q, MaxPerKind); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) matchSQL(ctx context.Context, q, kind string) (*matchedIDs, error) {
	db := s.db.WithContext(ctx)
	pattern := "%" + strings.ToLower(q) + "%"
	out := &matchedIDs{}

	if wants(kind, KindPeople) {
		if err := db.Model(&models.User{}).
			Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", pattern, pattern).
			Order("username ASC").Limit(MaxPerKind).
			Pluck("id", &out.People).Error; err != nil {
			return nil, err
		}
	}
	if wants(kind, KindGroups) {
		if err := db.Model(&models.Group{}).
			Where("is_private = ?", false).
			Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
			Order("name ASC").Limit(MaxPerKind).
			Pluck("id", &out.Groups).Error; err != nil {
			return nil, err
		}
	}
	if wants(kind, KindPages) {
		if err := db.Model(&models.Page{}).
			Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
			Order("name ASC").Limit(MaxPerKind).
			Pluck("id", &out.Pages).Error; err != nil {
			return nil, err
		}
	}
	return out, nil
}

// hydrate loads rows for ids keeping the match order and annotates them for viewerID
func (s *Service) hydrate(ctx context.Context, ids *matchedIDs, viewerID string) (*Results, error) {
	db := s.db.WithContext(ctx)
	out := emptyResults()

	if len(ids.People) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", ids.People).Find(&users).Error; err != nil {
			return nil, err
		}
		byID := make(map[string]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		var statuses map[string]string
		if viewerID != "" && s.statuses != nil {
			var err error
			if statuses, err = s.statuses.StatusMap(ctx, viewerID, ids.People); err != nil {
				return nil, err
			}
		}
		for _, id := range ids.People {
			u, ok := byID[id]
			if !ok {
				continue
			}
			out.Personnes = append(out.Personnes, Person{
				ID:               u.ID,
				Username:         u.Username,
				FullName:         u.FullName,
				Avatar:           u.Avatar,
				IsVerified:       u.IsVerified,
				FriendshipStatus: statuses[u.ID],
			})
		}
	}

	if len(ids.Groups) > 0 {
		var groups []models.Group
		if err := db.Where("id IN ? AND is_private = ?", ids.Groups, false).Find(&groups).Error; err != nil {
			return nil, err
		}
		member, err := s.memberSet(ctx, &models.GroupMember{}, "group_id", viewerID, ids.Groups)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]models.Group, len(groups))
		for _, g := range groups {
			byID[g.ID] = g
		}
		for _, id := range ids.Groups {
			g, ok := byID[id]
			if !ok {
				continue
			}
			out.Groupes = append(out.Groupes, GroupResult{
				ID: g.ID, Name: g.Name, Description: g.Description, Image: g.Image,
				AdminID: g.AdminID, IsPrivate: g.IsPrivate, IsMember: member[g.ID],
			})
		}
	}

	if len(ids.Pages) > 0 {
		var pages []models.Page
		if err := db.Where("id IN ?", ids.Pages).Find(&pages).Error; err != nil {
			return nil, err
		}
		following, err := s.memberSet(ctx, &models.PageMember{}, "page_id", viewerID, ids.Pages)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]models.Page, len(pages))
		for _, p := range pages {
			byID[p.ID] = p
		}
		for _, id := range ids.Pages {
			p, ok := byID[id]
			if !ok {
				continue
			}
			out.Pages = append(out.Pages, PageResult{
				ID: p.ID, Name: p.Name, Description: p.Description, Image: p.Image,
				CoverImage: p.CoverImage, Category: p.Category, IsVerified: p.IsVerified,
				IsFollowing: following[p.ID],
			})
		}
	}

	metrics.SearchResultsTotal.WithLabelValues(KindPeople).Add(float64(len(out.Personnes)))
	metrics.SearchResultsTotal.WithLabelValues(KindGroups).Add(float64(len(out.Groupes)))
	metrics.SearchResultsTotal.WithLabelValues(KindPages).Add(float64(len(out.Pages)))
	return out, nil
}

// memberSet returns which of ids the viewer has a membership row in
func (s *Service) memberSet(ctx context.Context, model interface{}, column, viewerID string, ids []string) (map[string]bool, error) {
	set := map[string]bool{}
	if viewerID == "" {
		return set, nil
	}
	q := s.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND "+column+" IN ?", viewerID, ids)
	// pending invitations are not memberships
	if _, ok := model.(*models.GroupMember); ok {
		q = q.Where("joined_at IS NOT NULL")
	}
	var joined []string
	if err := q.Pluck(column, &joined).Error; err != nil {
		return nil, err
	}
	for _, id := range joined {
		set[id] = true
	}
	return set, nil
}
