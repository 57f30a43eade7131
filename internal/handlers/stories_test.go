package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/zfogg/unify/internal/models"
)

func (s *HandlersTestSuite) createStory(owner *models.User, imageURL string, createdAgo time.Duration) *models.Story {
	created := time.Now().UTC().Add(-createdAgo)
	st := &models.Story{UserID: owner.ID, CreatedAt: created, ExpiresAt: created.Add(models.StoryLifetime)}
	if imageURL != "" {
		st.ImageURL = &imageURL
	}
	s.Require().NoError(s.db.Create(st).Error)
	return st
}

func (s *HandlersTestSuite) TestCreateStory() {
	w := s.do(http.MethodPost, "/api/stories", s.alice, map[string]string{"text": "au marché"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal("au marché", body["text"])

	created, err := time.Parse(time.RFC3339Nano, body["createdAt"].(string))
	s.Require().NoError(err)
	expires, err := time.Parse(time.RFC3339Nano, body["expiresAt"].(string))
	s.Require().NoError(err)
	s.Equal(models.StoryLifetime, expires.Sub(created))

	w = s.do(http.MethodPost, "/api/stories", s.alice, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/stories", s.alice, map[string]string{"text": strings.Repeat("x", maxStoryText+1)})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestPublishedStories() {
	live := s.createStory(s.alice, "https://cdn.test/a.jpg", time.Hour)
	s.createStory(s.bob, "", 2*time.Hour)
	s.createStory(s.bob, "", 25*time.Hour)
	s.Require().NoError(s.db.Create(&models.StoryView{StoryID: live.ID, UserID: s.bob.ID}).Error)

	w := s.do(http.MethodGet, "/api/stories/published?limit=1", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(true, body["success"])

	data := body["data"].([]interface{})
	s.Require().Len(data, 1)
	first := data[0].(map[string]interface{})
	s.Equal(live.ID, first["id"])
	s.Equal("alice", first["user"].(map[string]interface{})["username"])
	s.Equal(float64(1), first["stats"].(map[string]interface{})["viewCount"])

	page := body["pagination"].(map[string]interface{})
	s.Equal(float64(2), page["total"])
	s.Equal(true, page["hasMore"])

	w = s.do(http.MethodGet, "/api/stories/published?userId="+s.bob.ID, nil, nil)
	s.Len(s.decode(w)["data"], 1)
}

func (s *HandlersTestSuite) TestExpiredStoryIsGone() {
	expired := s.createStory(s.alice, "", 30*time.Hour)

	w := s.do(http.MethodGet, "/api/stories/"+expired.ID, s.bob, nil)
	s.Equal(http.StatusGone, w.Code)

	w = s.do(http.MethodPost, "/api/stories/"+expired.ID+"/view", s.bob, nil)
	s.Equal(http.StatusGone, w.Code)

	w = s.do(http.MethodGet, "/api/stories/missing", s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestViewStory() {
	st := s.createStory(s.alice, "", time.Hour)

	w := s.do(http.MethodPost, "/api/stories/"+st.ID+"/view", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(0), s.decode(w)["viewCount"])

	s.do(http.MethodPost, "/api/stories/"+st.ID+"/view", s.bob, nil)
	w = s.do(http.MethodPost, "/api/stories/"+st.ID+"/view", s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["viewCount"])

	w = s.do(http.MethodPost, "/api/stories/"+st.ID+"/reactions", s.bob, map[string]string{"emoji": "🔥"})
	s.Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/stories/"+st.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(1), body["viewCount"])
	s.Len(body["reactions"], 1)

	w = s.do(http.MethodGet, "/api/stories", s.carol, nil)
	items := s.decode(w)["stories"].([]interface{})
	s.Require().Len(items, 1)
	s.Equal(float64(1), items[0].(map[string]interface{})["reactionCount"])

	w = s.do(http.MethodPost, "/api/stories/"+st.ID+"/reactions", s.bob, map[string]string{"emoji": "🔥"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("removed", s.decode(w)["action"])
}

func (s *HandlersTestSuite) TestDeleteStoryRemovesMedia() {
	st := s.createStory(s.alice, "https://cdn.test/stories/alice/a.jpg", time.Hour)
	s.Require().NoError(s.db.Create(&models.StoryView{StoryID: st.ID, UserID: s.bob.ID}).Error)

	w := s.do(http.MethodDelete, "/api/stories/"+st.ID, s.bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/stories/"+st.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal([]string{"stories/alice/a.jpg"}, s.kernel.MediaMock.DeletedKeys())

	var views int64
	s.db.Model(&models.StoryView{}).Where("story_id = ?", st.ID).Count(&views)
	s.Zero(views)
}
