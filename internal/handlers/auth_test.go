package handlers

import (
	"net/http"
	"strings"

	"github.com/zfogg/unify/internal/models"
)

func (s *HandlersTestSuite) TestRegisterAndLogin() {
	req := map[string]string{
		"email":    "dora@example.com",
		"username": "dora",
		"password": "correct-horse",
		"fullName": "Dora Leroy",
	}
	w := s.do(http.MethodPost, "/api/auth/register", nil, req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.NotEmpty(s.decode(w)["token"])

	w = s.do(http.MethodPost, "/api/auth/register", nil, req)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/auth/register", nil, map[string]string{"email": "nope"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", nil, map[string]string{"email": "dora@example.com", "password": "correct-horse"})
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", nil, map[string]string{"email": "ghost@example.com", "password": "whatever"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestPasswordResetDoesNotRevealAccounts() {
	s.kernel.AuthMock.AddUser(&models.User{ID: s.alice.ID, Email: s.alice.Email, Username: s.alice.Username})

	w := s.do(http.MethodPost, "/api/auth/password/reset", nil, map[string]string{"email": "ghost@example.com"})
	s.Equal(http.StatusOK, w.Code)
	s.Empty(s.kernel.MailerMock.Messages())

	w = s.do(http.MethodPost, "/api/auth/password/reset", nil, map[string]string{"email": s.alice.Email})
	s.Equal(http.StatusOK, w.Code)
	sent := s.kernel.MailerMock.Messages()
	s.Require().Len(sent, 1)
	s.Equal("password_reset", sent[0].Kind)
	s.Equal(s.alice.Email, sent[0].To)
	s.NotEmpty(sent[0].Data["token"])

	w = s.do(http.MethodPost, "/api/auth/password/reset", nil, map[string]string{"email": "not-an-email"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestGoogleLoginSetsState() {
	w := s.do(http.MethodGet, "/api/auth/google", nil, nil)
	s.Require().Equal(http.StatusTemporaryRedirect, w.Code)
	s.True(strings.HasPrefix(w.Header().Get("Location"), "https://accounts.google.com/"))
	s.Contains(w.Header().Get("Set-Cookie"), oauthStateCookie)

	w = s.do(http.MethodGet, "/api/auth/google/callback?state=forged&code=abc", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestMe() {
	w := s.do(http.MethodGet, "/api/auth/me", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("alice", s.decode(w)["user"].(map[string]interface{})["username"])
}

func (s *HandlersTestSuite) TestUserProfile() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)

	w := s.do(http.MethodGet, "/api/users/"+s.bob.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(models.FriendshipAccepted, body["friendshipStatus"])
	s.Equal(float64(1), body["friendCount"])

	w = s.do(http.MethodGet, "/api/users/"+s.bob.ID, nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	_, present := s.decode(w)["friendshipStatus"]
	s.False(present)

	w = s.do(http.MethodGet, "/api/users/missing", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestUpdateMe() {
	w := s.do(http.MethodPut, "/api/users/me", s.alice, map[string]string{"bio": "  photographe  "})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	user := s.decode(w)["user"].(map[string]interface{})
	s.Equal("photographe", user["bio"])
	s.Equal("Alice Martin", user["fullName"])

	w = s.do(http.MethodPut, "/api/users/me", s.alice, map[string]string{"fullName": " "})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/users/me", s.alice, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestSearch() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)
	s.createGroup(s.carol, "Bobsleigh club", false)
	s.createGroup(s.carol, "Bob secret", true)

	w := s.do(http.MethodGet, "/api/search?q=b", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(s.decode(w)["personnes"])

	w = s.do(http.MethodGet, "/api/search?q=bob", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	people := body["personnes"].([]interface{})
	s.Require().Len(people, 1)
	s.Equal(models.FriendshipAccepted, people[0].(map[string]interface{})["friendshipStatus"])
	s.Len(body["groupes"], 1)

	w = s.do(http.MethodGet, "/api/search?q=bob&type=pages", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Empty(body["personnes"])
	s.Empty(body["groupes"])
}
