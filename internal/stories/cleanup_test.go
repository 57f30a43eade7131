package stories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/storage"
	"gorm.io/gorm"
)

type CleanupTestSuite struct {
	suite.Suite
	db      *gorm.DB
	media   *storage.MockUploader
	service *Service
	now     time.Time
	owner   *models.User
	viewer  *models.User
}

func (s *CleanupTestSuite) SetupSuite() {
	db, err := database.OpenInMemory("stories_cleanup")
	s.Require().NoError(err)
	s.db = db
}

func (s *CleanupTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	sqlDB.Close()
}

func (s *CleanupTestSuite) SetupTest() {
	for _, table := range []string{"story_views", "reactions", "stories", "users"} {
		s.db.Exec("DELETE FROM " + table)
	}
	s.media = storage.NewMockUploader("https://cdn.test")
	s.service = NewService(s.db, s.media)
	s.now = time.Now().UTC()
	s.service.now = func() time.Time { return s.now }

	s.owner = &models.User{Email: "owner@example.com", Username: "owner"}
	s.viewer = &models.User{Email: "viewer@example.com", Username: "viewer"}
	s.Require().NoError(s.db.Create(s.owner).Error)
	s.Require().NoError(s.db.Create(s.viewer).Error)
}

func strPtr(v string) *string { return &v }

func (s *CleanupTestSuite) story(createdAgo time.Duration, imageURL string) *models.Story {
	created := s.now.Add(-createdAgo)
	st := &models.Story{UserID: s.owner.ID, CreatedAt: created}
	if imageURL != "" {
		st.ImageURL = strPtr(imageURL)
	}
	s.Require().NoError(s.db.Create(st).Error)
	s.Require().NoError(s.db.Create(&models.StoryView{StoryID: st.ID, UserID: s.viewer.ID}).Error)
	s.Require().NoError(s.db.Create(&models.Reaction{StoryID: &st.ID, UserID: s.viewer.ID, Emoji: "🔥"}).Error)
	return st
}

func (s *CleanupTestSuite) count(model interface{}) int64 {
	var n int64
	s.db.Model(model).Count(&n)
	return n
}

func (s *CleanupTestSuite) TestPurgeExpiredRemovesStoryAndRelations() {
	expired := s.story(25*time.Hour, "https://cdn.test/posts/2025/01/u/a.jpg")
	live := s.story(time.Hour, "")

	res, err := s.service.PurgeExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(1, res.Stories)
	s.Equal(int64(1), res.Views)
	s.Equal(int64(1), res.Reactions)
	s.Equal(1, res.Media)

	s.Equal(int64(1), s.count(&models.Story{}))
	s.Equal(int64(1), s.count(&models.StoryView{}))
	s.Equal(int64(1), s.count(&models.Reaction{}))
	s.Equal([]string{"posts/2025/01/u/a.jpg"}, s.media.DeletedKeys())

	var left models.Story
	s.Require().NoError(s.db.First(&left).Error)
	s.Equal(live.ID, left.ID)
	s.NotEqual(expired.ID, left.ID)
}

func (s *CleanupTestSuite) TestForeignMediaIsLeftAlone() {
	s.story(48*time.Hour, "https://elsewhere.example.com/a.jpg")

	res, err := s.service.PurgeExpired(context.Background())
	s.Require().NoError(err)
	s.Equal(1, res.Stories)
	s.Zero(res.Media)
	s.Empty(s.media.DeletedKeys())
}

func (s *CleanupTestSuite) TestNothingExpired() {
	s.story(time.Hour, "")
	res, err := s.service.PurgeExpired(context.Background())
	s.Require().NoError(err)
	s.Zero(res.Stories)
}

func (s *CleanupTestSuite) TestDeleteWithoutStorage() {
	svc := NewService(s.db, nil)
	st := s.story(time.Hour, "https://cdn.test/posts/x.jpg")

	res, err := svc.Delete(context.Background(), st)
	s.Require().NoError(err)
	s.Equal(1, res.Stories)
	s.Zero(res.Media)
	s.Zero(s.count(&models.Story{}))
}

func (s *CleanupTestSuite) TestCleanupServiceRunsImmediately() {
	s.story(30*time.Hour, "")
	cleanup := NewCleanupService(s.service, time.Hour)
	cleanup.Start()
	cleanup.Start()
	s.Eventually(func() bool { return s.count(&models.Story{}) == 0 }, 2*time.Second, 10*time.Millisecond)
	cleanup.Stop()
}

func (s *CleanupTestSuite) TestRunOnce() {
	s.story(30*time.Hour, "")
	res := NewCleanupService(s.service, 0).RunOnce(context.Background())
	s.Equal(1, res.Stories)
}

func TestCleanupTestSuite(t *testing.T) {
	suite.Run(t, new(CleanupTestSuite))
}
