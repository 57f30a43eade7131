package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/unify/internal/cache"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/metrics"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/telemetry"
	"github.com/zfogg/unify/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSelfRequest   = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyExists = errors.New("a friendship or request already exists")
	ErrBlocked       = errors.New("this relationship is blocked")
	ErrNotFound      = errors.New("friendship not found")
	ErrNotAllowed    = errors.New("not allowed to change this friendship")
	ErrInvalidStatus = errors.New("invalid friendship status")
	ErrNotPending    = errors.New("friendship is not pending")
)

const (
	SuggestionCacheTTL = 60 * time.Second
	suggestionCache    = "friend_suggestions"
)

// SuggestionCacheKey is the Redis key holding the ranked suggestions of userID
func SuggestionCacheKey(userID string) string {
	return "friends:suggestions:" + userID
}

// Service runs friendship queries against gorm, caching suggestion rankings
// in Redis when a client is configured
type Service struct {
	db    *gorm.DB
	cache *cache.RedisClient
}

func NewService(db *gorm.DB, redisClient *cache.RedisClient) *Service {
	return &Service{db: db, cache: redisClient}
}

// Friend is an accepted friend with the time the friendship last changed
type Friend struct {
	models.UserSummary
	FriendSince time.Time `json:"friendSince"`
}

type FriendList struct {
	Friends []Friend `json:"friends"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

type SuggestedUser struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	FullName           string `json:"fullName"`
	Avatar             string `json:"avatar"`
	Bio                string `json:"bio"`
	MutualFriendsCount int    `json:"mutualFriendsCount"`
}

type SuggestionPage struct {
	Suggestions []SuggestedUser `json:"suggestions"`
	Total       int             `json:"total"`
	Limit       int             `json:"limit"`
	Offset      int             `json:"offset"`
}

type Badges struct {
	PendingRequests int `json:"pendingRequests"`
	Suggestions     int `json:"suggestions"`
	Friends         int `json:"friends"`
	Total           int `json:"total"`
}

// ListFriends returns accepted friends, most recently changed first. search
// filters case-insensitively on username and full name, and total counts
// the filtered set.
func (s *Service) ListFriends(ctx context.Context, userID, search string, limit, offset int) (*FriendList, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Preload("User1").Preload("User2").
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	friends := make([]Friend, 0, len(rows))
	for _, row := range rows {
		other := row.User2
		if row.User2ID == userID {
			other = row.User1
		}
		if other == nil {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(other.Username), needle) &&
			!strings.Contains(strings.ToLower(other.FullName), needle) {
			continue
		}
		friends = append(friends, Friend{UserSummary: other.Summary(), FriendSince: row.UpdatedAt})
	}

	page := Paginate(friends, limit, offset)
	return &FriendList{Friends: page, Total: len(friends), Limit: util.ClampLimit(limit), Offset: clampOffset(offset)}, nil
}

// loadEdges fetches every row touching userID plus the accepted rows of
// userID's friends, which is all Suggest needs
func (s *Service) loadEdges(ctx context.Context, userID string) ([]Edge, error) {
	var own []models.Friendship
	if err := s.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&own).Error; err != nil {
		return nil, fmt.Errorf("failed to load friendships: %w", err)
	}

	edges := make([]Edge, 0, len(own))
	var friendIDs []string
	for _, f := range own {
		edges = append(edges, edgeFrom(f))
		if f.Status == models.FriendshipAccepted {
			friendIDs = append(friendIDs, f.Other(userID))
		}
	}
	if len(friendIDs) == 0 {
		return edges, nil
	}

	var second []models.Friendship
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.FriendshipAccepted).
		Where("user1_id IN ? OR user2_id IN ?", friendIDs, friendIDs).
		Where("user1_id <> ? AND user2_id <> ?", userID, userID).
		Find(&second).Error; err != nil {
		return nil, fmt.Errorf("failed to load friends of friends: %w", err)
	}
	for _, f := range second {
		edges = append(edges, edgeFrom(f))
	}
	return edges, nil
}

// rankedSuggestions returns the full ranking, from cache when fresh
func (s *Service) rankedSuggestions(ctx context.Context, userID string) ([]Suggestion, error) {
	key := SuggestionCacheKey(userID)
	var cached []Suggestion
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		metrics.Get().CacheHitsTotal.WithLabelValues(suggestionCache).Inc()
		return cached, nil
	} else if !cache.IsMiss(err) {
		logger.WarnWithFields("Suggestion cache read failed", err, logger.WithUserID(userID))
	}
	metrics.Get().CacheMissesTotal.WithLabelValues(suggestionCache).Inc()

	ctx, span := telemetry.StartSpan(ctx, "friends.suggest", attribute.String("user.id", userID))
	start := time.Now()
	edges, err := s.loadEdges(ctx, userID)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}
	ranked := Suggest(userID, edges)
	span.SetAttributes(attribute.Int("friends.edges", len(edges)), attribute.Int("friends.suggestions", len(ranked)))
	telemetry.EndSpan(span, nil)

	m := metrics.Get()
	m.SuggestionDuration.Observe(time.Since(start).Seconds())
	m.SuggestionsReturned.Observe(float64(len(ranked)))

	if err := s.cache.SetJSON(ctx, key, ranked, SuggestionCacheTTL); err != nil && !errors.Is(err, cache.ErrDisabled) {
		logger.WarnWithFields("Suggestion cache write failed", err, logger.WithUserID(userID))
	}
	return ranked, nil
}

// Suggestions returns one page of friends-of-friends suggestions
func (s *Service) Suggestions(ctx context.Context, userID string, limit, offset int) (*SuggestionPage, error) {
	ranked, err := s.rankedSuggestions(ctx, userID)
	if err != nil {
		return nil, err
	}
	page := Paginate(ranked, limit, offset)

	ids := make([]string, len(page))
	for i, sug := range page {
		ids[i] = sug.UserID
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]SuggestedUser, 0, len(page))
	for _, sug := range page {
		u, ok := users[sug.UserID]
		if !ok {
			continue
		}
		out = append(out, SuggestedUser{
			ID:                 u.ID,
			Username:           u.Username,
			FullName:           u.FullName,
			Avatar:             u.Avatar,
			Bio:                u.Bio,
			MutualFriendsCount: sug.MutualFriends,
		})
	}

	return &SuggestionPage{Suggestions: out, Total: len(ranked), Limit: util.ClampLimit(limit), Offset: clampOffset(offset)}, nil
}

func (s *Service) usersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Badges counts pending requests received, suggestions and friends
func (s *Service) Badges(ctx context.Context, userID string) (*Badges, error) {
	pending, err := s.CountPendingReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	var friendCount int64
	if err := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Count(&friendCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count friends: %w", err)
	}
	ranked, err := s.rankedSuggestions(ctx, userID)
	if err != nil {
		return nil, err
	}

	b := &Badges{
		PendingRequests: int(pending),
		Suggestions:     len(ranked),
		Friends:         int(friendCount),
	}
	b.Total = b.PendingRequests + b.Suggestions + b.Friends
	return b, nil
}

// CountPendingReceived counts pending requests addressed to userID
func (s *Service) CountPendingReceived(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user2_id = ? AND status = ?", userID, models.FriendshipPending).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return n, nil
}

// PendingReceived lists requests addressed to userID, newest first
func (s *Service) PendingReceived(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).Preload("User1").
		Where("user2_id = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// PendingSent lists requests userID is waiting on, newest first
func (s *Service) PendingSent(ctx context.Context, userID string) ([]models.Friendship, error) {
	var rows []models.Friendship
	err := s.db.WithContext(ctx).Preload("User2").
		Where("user1_id = ? AND status = ?", userID, models.FriendshipPending).
		Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// Between returns the row linking a and b in either direction
func (s *Service) Between(ctx context.Context, a, b string) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Status is "self", "none" or the status of the row linking a and b
func (s *Service) Status(ctx context.Context, a, b string) (string, error) {
	if a == b {
		return "self", nil
	}
	f, err := s.Between(ctx, a, b)
	if errors.Is(err, ErrNotFound) {
		return "none", nil
	}
	if err != nil {
		return "", err
	}
	return f.Status, nil
}

// StatusMap resolves Status for many users with one query
func (s *Service) StatusMap(ctx context.Context, userID string, others []string) (map[string]string, error) {
	out := make(map[string]string, len(others))
	for _, id := range others {
		out[id] = "none"
		if id == userID {
			out[id] = "self"
		}
	}
	if len(others) == 0 {
		return out, nil
	}
	var rows []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id IN ?) OR (user2_id = ? AND user1_id IN ?)", userID, others, userID, others).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, f := range rows {
		out[f.Other(userID)] = f.Status
	}
	return out, nil
}

// IsBlocked reports whether either user blocked the other
func (s *Service) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	f, err := s.Between(ctx, a, b)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Status == models.FriendshipBlocked, nil
}

// SendRequest creates a pending request from -> to. A declined row between
// the two is re-opened with from as the requester.
func (s *Service) SendRequest(ctx context.Context, from, to string) (*models.Friendship, error) {
	if from == to {
		return nil, ErrSelfRequest
	}
	var target models.User
	if err := s.db.WithContext(ctx).Select("id").First(&target, "id = ?", to).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	existing, err := s.Between(ctx, from, to)
	switch {
	case errors.Is(err, ErrNotFound):
		f := &models.Friendship{User1ID: from, User2ID: to, Status: models.FriendshipPending}
		if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
			return nil, fmt.Errorf("failed to create friendship: %w", err)
		}
		s.afterChange(ctx, f, from, to)
		return f, nil
	case err != nil:
		return nil, err
	}

	switch existing.Status {
	case models.FriendshipDeclined:
		err := s.db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
			"user1_id": from,
			"user2_id": to,
			"status":   models.FriendshipPending,
		}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to reopen friendship: %w", err)
		}
		existing.User1ID, existing.User2ID, existing.Status = from, to, models.FriendshipPending
		s.afterChange(ctx, existing, from, to)
		return existing, nil
	case models.FriendshipBlocked:
		return nil, ErrBlocked
	default:
		return existing, ErrAlreadyExists
	}
}

// Respond applies status to friendshipID on behalf of userID. Only the
// receiver may accept or decline a pending request; either party may block.
func (s *Service) Respond(ctx context.Context, userID, friendshipID, status string) (*models.Friendship, error) {
	if !models.IsValidFriendshipStatus(status) || status == models.FriendshipPending {
		return nil, ErrInvalidStatus
	}

	var f models.Friendship
	if err := s.db.WithContext(ctx).First(&f, "id = ?", friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !f.Involves(userID) {
		return nil, ErrNotAllowed
	}

	updates := map[string]interface{}{"status": status}
	switch status {
	case models.FriendshipAccepted, models.FriendshipDeclined:
		if f.User2ID != userID {
			return nil, ErrNotAllowed
		}
		if f.Status != models.FriendshipPending {
			return nil, ErrNotPending
		}
	case models.FriendshipBlocked:
		// the blocker is always stored as user1; the blocked side cannot take over
		if f.Status == models.FriendshipBlocked && f.User1ID != userID {
			return nil, ErrNotAllowed
		}
		if f.User1ID != userID {
			updates["user1_id"], updates["user2_id"] = userID, f.User1ID
			f.User1ID, f.User2ID = userID, f.User1ID
		}
	}

	if err := s.db.WithContext(ctx).Model(&f).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update friendship: %w", err)
	}
	f.Status = status
	s.afterChange(ctx, &f, f.User1ID, f.User2ID)
	return &f, nil
}

// Block records that userID blocked targetID, creating the row if needed
func (s *Service) Block(ctx context.Context, userID, targetID string) (*models.Friendship, error) {
	if userID == targetID {
		return nil, ErrSelfRequest
	}
	existing, err := s.Between(ctx, userID, targetID)
	if errors.Is(err, ErrNotFound) {
		f := &models.Friendship{User1ID: userID, User2ID: targetID, Status: models.FriendshipBlocked}
		if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
			return nil, fmt.Errorf("failed to block: %w", err)
		}
		s.afterChange(ctx, f, userID, targetID)
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Respond(ctx, userID, existing.ID, models.FriendshipBlocked)
}

// CancelRequest withdraws userID's pending request to targetID
func (s *Service) CancelRequest(ctx context.Context, userID, targetID string) error {
	res := s.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ? AND status = ?", userID, targetID, models.FriendshipPending).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, userID, targetID)
	return nil
}

// Remove deletes a friendship row userID is party to
func (s *Service) Remove(ctx context.Context, userID, friendshipID string) error {
	var f models.Friendship
	if err := s.db.WithContext(ctx).First(&f, "id = ?", friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !f.Involves(userID) {
		return ErrNotAllowed
	}
	// blocked rows are only lifted by the blocker
	if f.Status == models.FriendshipBlocked && f.User1ID != userID {
		return ErrNotAllowed
	}
	if err := s.db.WithContext(ctx).Delete(&f).Error; err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	s.invalidate(ctx, f.User1ID, f.User2ID)
	return nil
}

func (s *Service) afterChange(ctx context.Context, f *models.Friendship, users ...string) {
	metrics.Get().FriendshipTransitions.WithLabelValues(f.Status).Inc()
	logger.Log.Debug("Friendship changed",
		zap.String("friendship_id", f.ID),
		zap.String("status", f.Status),
		logger.WithUserID(f.User1ID),
		logger.WithTargetUserID(f.User2ID),
	)
	s.invalidate(ctx, users...)
}

// invalidate drops cached suggestions of users and of their friends, whose
// two-hop neighbourhoods just changed
func (s *Service) invalidate(ctx context.Context, users ...string) {
	if s.cache == nil || len(users) == 0 {
		return
	}
	keys := make(map[string]struct{})
	for _, u := range users {
		keys[SuggestionCacheKey(u)] = struct{}{}
	}

	var rows []models.Friendship
	if err := s.db.WithContext(ctx).
		Where("status = ? AND (user1_id IN ? OR user2_id IN ?)", models.FriendshipAccepted, users, users).
		Find(&rows).Error; err == nil {
		for _, f := range rows {
			keys[SuggestionCacheKey(f.User1ID)] = struct{}{}
			keys[SuggestionCacheKey(f.User2ID)] = struct{}{}
		}
	}

	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}
	if err := s.cache.Del(ctx, list...); err != nil {
		logger.WarnWithFields("Failed to invalidate suggestion cache", err, zap.Int("keys", len(list)))
	}
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
