package handlers

import (
	"net/http"
	"time"

	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/websocket"
)

func (s *HandlersTestSuite) createNotification(user *models.User, read bool, at time.Time) *models.Notification {
	n := &models.Notification{UserID: user.ID, Type: models.NotificationPostLike, Title: "New like", CreatedAt: at}
	s.Require().NoError(s.db.Create(n).Error)
	if read {
		s.Require().NoError(s.db.Model(n).Update("is_read", true).Error)
	}
	return n
}

func (s *HandlersTestSuite) TestGetNotifications() {
	base := time.Now().UTC().Add(-time.Hour)
	s.createNotification(s.alice, true, base)
	newest := s.createNotification(s.alice, false, base.Add(time.Minute))
	s.createNotification(s.bob, false, base)

	w := s.do(http.MethodGet, "/api/notifications", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	list := body["notifications"].([]interface{})
	s.Require().Len(list, 2)
	s.Equal(newest.ID, list[0].(map[string]interface{})["id"])
	s.Equal(float64(1), body["unreadCount"])

	w = s.do(http.MethodGet, "/api/notifications?unread=true", s.alice, nil)
	s.Len(s.decode(w)["notifications"], 1)
}

func (s *HandlersTestSuite) TestMarkNotificationsRead() {
	now := time.Now().UTC()
	first := s.createNotification(s.alice, false, now)
	s.createNotification(s.alice, false, now)

	w := s.do(http.MethodPost, "/api/notifications/read", s.alice, map[string]interface{}{"ids": []string{first.ID}})
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(1), body["updated"])
	s.Equal(float64(1), body["unreadCount"])
	s.Equal([]string{websocket.MessageTypeNotificationCount}, s.kernel.PushMock.Types(s.alice.ID))

	w = s.do(http.MethodPost, "/api/notifications/read", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(0), s.decode(w)["unreadCount"])

	w = s.do(http.MethodGet, "/api/badges/notifications", s.alice, nil)
	s.Equal(float64(0), s.decode(w)["count"])
}

func (s *HandlersTestSuite) TestDeleteNotification() {
	n := s.createNotification(s.alice, false, time.Now().UTC())

	w := s.do(http.MethodDelete, "/api/notifications/"+n.ID, s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/notifications/"+n.ID, s.alice, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/notifications/"+n.ID, s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}
