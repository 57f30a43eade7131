package handlers

import (
	"net/http"

	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/websocket"
)

func (s *HandlersTestSuite) TestFriendsListAndSearch() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)
	s.befriend(s.carol, s.alice, models.FriendshipAccepted)

	w := s.do(http.MethodGet, "/api/friends/list", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(2), body["total"])
	s.Len(body["friends"], 2)

	w = s.do(http.MethodGet, "/api/friends/list?search=CAR", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Equal(float64(1), body["total"])
	friends := body["friends"].([]interface{})
	s.Equal("carol", friends[0].(map[string]interface{})["username"])
}

func (s *HandlersTestSuite) TestFriendSuggestions() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)
	s.befriend(s.bob, s.carol, models.FriendshipAccepted)

	w := s.do(http.MethodGet, "/api/friends/suggestions", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	suggestions := body["suggestions"].([]interface{})
	s.Require().Len(suggestions, 1)
	first := suggestions[0].(map[string]interface{})
	s.Equal(s.carol.ID, first["id"])
	s.Equal(float64(1), first["mutualFriendsCount"])
}

func (s *HandlersTestSuite) TestFriendBadges() {
	s.befriend(s.carol, s.alice, models.FriendshipPending)

	w := s.do(http.MethodGet, "/api/friends/badges", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["pendingRequests"])

	w = s.do(http.MethodGet, "/api/badges/friends", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(true, body["success"])
	s.Equal(float64(1), body["count"])
}

func (s *HandlersTestSuite) TestSendFriendRequest() {
	w := s.do(http.MethodPost, "/api/friends/request", s.alice, map[string]string{"userId": s.bob.ID})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal(models.FriendshipPending, body["status"])
	s.Equal(s.alice.ID, body["user1Id"])

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ?", s.bob.ID).Error)
	s.Equal(models.NotificationFriendRequest, n.Type)
	s.Contains(n.Content, "Alice Martin")

	s.Equal([]string{
		websocket.MessageTypeNotification,
		websocket.MessageTypeNotificationCount,
		websocket.MessageTypeFriendRequest,
	}, s.kernel.PushMock.Types(s.bob.ID))

	mail := s.kernel.MailerMock.Messages()
	s.Require().Len(mail, 1)
	s.Equal("bob@example.com", mail[0].To)
	s.Equal("alice", mail[0].Data["fromUsername"])

	// the alias route behaves the same and reports the duplicate
	w = s.do(http.MethodPost, "/api/friends/add", s.alice, map[string]string{"userId": s.bob.ID})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlersTestSuite) TestSendFriendRequestErrors() {
	w := s.do(http.MethodPost, "/api/friends/request", s.alice, map[string]string{"userId": s.alice.ID})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/friends/request", s.alice, map[string]string{"userId": "missing"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/friends/request", s.alice, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("userId", s.decode(w)["field"])
}

func (s *HandlersTestSuite) TestDeclinedRequestCanBeReopened() {
	s.befriend(s.bob, s.alice, models.FriendshipDeclined)

	w := s.do(http.MethodPost, "/api/friends/request", s.alice, map[string]string{"userId": s.bob.ID})
	s.Require().Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(models.FriendshipPending, body["status"])
	s.Equal(s.alice.ID, body["user1Id"])
}

func (s *HandlersTestSuite) TestAcceptFriendRequest() {
	f := s.befriend(s.alice, s.bob, models.FriendshipPending)

	// only the receiver may accept
	w := s.do(http.MethodPatch, "/api/friends", s.alice, map[string]string{"friendshipId": f.ID, "status": "accepted"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/friends", s.bob, map[string]string{"friendshipId": f.ID, "status": "accepted"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(models.FriendshipAccepted, s.decode(w)["status"])

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ?", s.alice.ID).Error)
	s.Equal(models.NotificationFriendAccepted, n.Type)
	s.Contains(s.kernel.PushMock.Types(s.alice.ID), websocket.MessageTypeFriendAccepted)

	w = s.do(http.MethodPatch, "/api/friends", s.bob, map[string]string{"friendshipId": f.ID, "status": "bogus"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestCancelFriendRequest() {
	s.befriend(s.alice, s.bob, models.FriendshipPending)

	w := s.do(http.MethodPost, "/api/friends/request/cancel", s.alice, map[string]string{"userId": s.bob.ID})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/friends/request/cancel", s.alice, map[string]string{"userId": s.bob.ID})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestRemoveFriend() {
	f := s.befriend(s.alice, s.bob, models.FriendshipAccepted)

	w := s.do(http.MethodDelete, "/api/friends?friendshipId="+f.ID, s.carol, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/friends?friendshipId="+f.ID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var count int64
	s.db.Model(&models.Friendship{}).Count(&count)
	s.Zero(count)
}

func (s *HandlersTestSuite) TestFriendsOverview() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)
	s.befriend(s.carol, s.alice, models.FriendshipPending)

	w := s.do(http.MethodGet, "/api/friends", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Len(body["friends"], 1)
	s.Len(body["pendingReceived"], 1)
	s.Len(body["pendingSent"], 0)
}

func (s *HandlersTestSuite) TestBlockedUserCannotLiftBlock() {
	f := s.befriend(s.alice, s.bob, models.FriendshipBlocked)

	w := s.do(http.MethodPatch, "/api/friends", s.bob, map[string]string{"friendshipId": f.ID, "status": "blocked"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/friends?friendshipId="+f.ID, s.bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	var stored models.Friendship
	s.Require().NoError(s.db.First(&stored, "id = ?", f.ID).Error)
	s.Equal(s.alice.ID, stored.User1ID)
	s.Equal(models.FriendshipBlocked, stored.Status)

	w = s.do(http.MethodPost, "/api/messages", s.bob, map[string]string{"receiverId": s.alice.ID, "content": "hi"})
	s.Equal(http.StatusForbidden, w.Code)
}
