package handlers

import (
	"net/http"
	"time"

	"github.com/zfogg/unify/internal/models"
)

func (s *HandlersTestSuite) createGroup(admin *models.User, name string, private bool) *models.Group {
	g := &models.Group{Name: name, AdminID: admin.ID, IsPrivate: private}
	s.Require().NoError(s.db.Create(g).Error)
	now := time.Now().UTC()
	s.Require().NoError(s.db.Create(&models.GroupMember{GroupID: g.ID, UserID: admin.ID, Role: models.GroupRoleAdmin, JoinedAt: &now}).Error)
	return g
}

func (s *HandlersTestSuite) TestCreateGroup() {
	w := s.do(http.MethodPost, "/api/groups", s.alice, map[string]interface{}{"name": "Randonneurs", "description": "Sorties du dimanche"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	groupID := s.decode(w)["id"].(string)

	var member models.GroupMember
	s.Require().NoError(s.db.First(&member, "group_id = ? AND user_id = ?", groupID, s.alice.ID).Error)
	s.Equal(models.GroupRoleAdmin, member.Role)
	s.NotNil(member.JoinedAt)

	w = s.do(http.MethodGet, "/api/groups", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["groups"], 1)

	w = s.do(http.MethodPost, "/api/groups", s.alice, map[string]interface{}{"name": " "})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestJoinGroup() {
	g := s.createGroup(s.alice, "Cuisine", false)

	w := s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": g.ID})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal(models.GroupRoleMember, body["role"])
	s.NotNil(body["joinedAt"])

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ?", s.alice.ID).Error)
	s.Equal(models.NotificationGroupMemberJoined, n.Type)

	w = s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": g.ID})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/groups/"+g.ID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Equal(true, body["isMember"])
	s.Equal(float64(2), body["memberCount"])
}

func (s *HandlersTestSuite) TestJoinGroupErrors() {
	private := s.createGroup(s.alice, "Secret", true)

	w := s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": "missing"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": private.ID})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersTestSuite) TestPendingInvitationCountsAsBadgeAndCanJoin() {
	private := s.createGroup(s.alice, "Secret", true)
	s.Require().NoError(s.db.Create(&models.GroupMember{GroupID: private.ID, UserID: s.bob.ID, Role: models.GroupRoleMember}).Error)

	w := s.do(http.MethodGet, "/api/badges/groups", s.bob, nil)
	s.Equal(float64(1), s.decode(w)["count"])

	w = s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": private.ID})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/badges/groups", s.bob, nil)
	s.Equal(float64(0), s.decode(w)["count"])
}

func (s *HandlersTestSuite) TestLeaveGroup() {
	g := s.createGroup(s.alice, "Cuisine", false)
	s.do(http.MethodPost, "/api/groups/join", s.bob, map[string]string{"groupId": g.ID})

	w := s.do(http.MethodDelete, "/api/groups/join", s.bob, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/groups/join?groupId="+g.ID, s.carol, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/groups/join?groupId="+g.ID, s.alice, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/groups/join?groupId="+g.ID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["success"])
}

func (s *HandlersTestSuite) TestPages() {
	w := s.do(http.MethodPost, "/api/pages", s.alice, map[string]string{"name": "Boulangerie", "category": "food"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	pageID := s.decode(w)["id"].(string)

	w = s.do(http.MethodPost, "/api/pages/follow", s.bob, map[string]string{"pageId": pageID})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(models.PageRoleFollower, s.decode(w)["role"])

	w = s.do(http.MethodPost, "/api/pages/follow", s.bob, map[string]string{"pageId": pageID})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/pages/follow", s.bob, map[string]string{"pageId": "missing"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/pages/"+pageID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(true, body["isFollowing"])
	s.Equal(float64(2), body["followerCount"])

	w = s.do(http.MethodGet, "/api/pages", s.bob, nil)
	s.Len(s.decode(w)["pages"], 1)

	w = s.do(http.MethodDelete, "/api/pages/follow?pageId="+pageID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/pages/follow?pageId="+pageID, s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/pages/follow", s.bob, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
