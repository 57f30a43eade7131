package handlers

import (
	"net/http"
	"time"

	"github.com/zfogg/unify/internal/models"
	"github.com/zfogg/unify/internal/websocket"
)

func (s *HandlersTestSuite) TestSendMessage() {
	w := s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"receiverId": s.bob.ID, "content": "  salut  "})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	s.Equal("salut", body["content"])
	s.Equal(false, body["isRead"])

	s.Equal([]string{websocket.MessageTypeNewMessage}, s.kernel.PushMock.Types(s.bob.ID))

	w = s.do(http.MethodPost, "/api/messages/send", s.alice, map[string]string{"receiverId": s.bob.ID, "content": "encore"})
	s.Equal(http.StatusCreated, w.Code)
}

func (s *HandlersTestSuite) TestSendMessageValidation() {
	w := s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"content": "hi"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"receiverId": s.bob.ID, "content": "   "})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"receiverId": "nobody", "content": "hi"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestSendMessageBlocked() {
	s.befriend(s.bob, s.alice, models.FriendshipBlocked)

	w := s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"receiverId": s.bob.ID, "content": "hi"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersTestSuite) TestSendMessageClearsTyping() {
	w := s.do(http.MethodPost, "/api/messages/typing", s.alice, map[string]interface{}{"conversationPartnerId": s.bob.ID, "isTyping": true})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/messages/typing?partnerId="+s.alice.ID, s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["isPartnerTyping"])

	w = s.do(http.MethodPost, "/api/messages", s.alice, map[string]string{"receiverId": s.bob.ID, "content": "done"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/messages/typing?partnerId="+s.alice.ID, s.bob, nil)
	s.Equal(false, s.decode(w)["isPartnerTyping"])
}

func (s *HandlersTestSuite) TestTypingIndicator() {
	w := s.do(http.MethodPost, "/api/messages/typing", s.bob, map[string]interface{}{"conversationPartnerId": s.alice.ID, "isTyping": true})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["isPartnerTyping"])
	s.Equal([]string{websocket.MessageTypeUserTyping}, s.kernel.PushMock.Types(s.alice.ID))

	w = s.do(http.MethodPost, "/api/messages/typing", s.alice, map[string]interface{}{"conversationPartnerId": s.bob.ID, "isTyping": true})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["isPartnerTyping"])

	w = s.do(http.MethodPost, "/api/messages/typing", s.bob, map[string]interface{}{"conversationPartnerId": s.alice.ID, "isTyping": false})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["isPartnerTyping"])
	s.Equal(websocket.MessageTypeUserStopTyping, s.kernel.PushMock.Types(s.alice.ID)[1])

	w = s.do(http.MethodGet, "/api/messages/typing?partnerId="+s.bob.ID, s.alice, nil)
	s.Equal(false, s.decode(w)["isPartnerTyping"])
}

func (s *HandlersTestSuite) TestTypingValidation() {
	w := s.do(http.MethodPost, "/api/messages/typing", s.alice, map[string]interface{}{"isTyping": true})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/messages/typing", s.alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestConversationsAndReadState() {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := []models.Message{
		{SenderID: s.bob.ID, ReceiverID: s.alice.ID, Content: "one", CreatedAt: base},
		{SenderID: s.bob.ID, ReceiverID: s.alice.ID, Content: "two", CreatedAt: base.Add(time.Minute)},
		{SenderID: s.alice.ID, ReceiverID: s.carol.ID, Content: "three", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range msgs {
		s.Require().NoError(s.db.Create(&msgs[i]).Error)
	}

	w := s.do(http.MethodGet, "/api/badges/messages", s.alice, nil)
	s.Equal(float64(2), s.decode(w)["count"])

	w = s.do(http.MethodGet, "/api/messages/conversations", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	conversations := s.decode(w)["conversations"].([]interface{})
	s.Require().Len(conversations, 2)
	latest := conversations[0].(map[string]interface{})
	s.Equal(s.carol.ID, latest["partner"].(map[string]interface{})["id"])
	s.Equal(float64(0), latest["unreadCount"])
	s.Equal(float64(2), conversations[1].(map[string]interface{})["unreadCount"])

	w = s.do(http.MethodGet, "/api/messages?userId="+s.bob.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	list := s.decode(w)["messages"].([]interface{})
	s.Require().Len(list, 2)
	s.Equal("one", list[0].(map[string]interface{})["content"])
	s.Equal("two", list[1].(map[string]interface{})["content"])

	w = s.do(http.MethodGet, "/api/badges/messages", s.alice, nil)
	s.Equal(float64(0), s.decode(w)["count"])
}

func (s *HandlersTestSuite) TestConversationUsesLatestMessageEitherDirection() {
	base := time.Now().UTC().Add(-time.Hour)
	msgs := []models.Message{
		{SenderID: s.bob.ID, ReceiverID: s.alice.ID, Content: "salut", CreatedAt: base},
		{SenderID: s.carol.ID, ReceiverID: s.alice.ID, Content: "coucou", CreatedAt: base.Add(time.Minute)},
		{SenderID: s.alice.ID, ReceiverID: s.bob.ID, Content: "ça va ?", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range msgs {
		s.Require().NoError(s.db.Create(&msgs[i]).Error)
	}

	w := s.do(http.MethodGet, "/api/messages/conversations", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	conversations := s.decode(w)["conversations"].([]interface{})
	s.Require().Len(conversations, 2)

	first := conversations[0].(map[string]interface{})
	s.Equal(s.bob.ID, first["partner"].(map[string]interface{})["id"])
	s.Equal("ça va ?", first["lastMessage"].(map[string]interface{})["content"])
	s.Equal(float64(1), first["unreadCount"])

	second := conversations[1].(map[string]interface{})
	s.Equal(s.carol.ID, second["partner"].(map[string]interface{})["id"])
	s.Equal("coucou", second["lastMessage"].(map[string]interface{})["content"])
}

func (s *HandlersTestSuite) TestMarkMessagesRead() {
	m := models.Message{SenderID: s.bob.ID, ReceiverID: s.alice.ID, Content: "hey"}
	s.Require().NoError(s.db.Create(&m).Error)

	w := s.do(http.MethodPost, "/api/messages/read", s.alice, map[string]string{"userId": s.bob.ID})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), s.decode(w)["updated"])

	var reloaded models.Message
	s.Require().NoError(s.db.First(&reloaded, "id = ?", m.ID).Error)
	s.True(reloaded.IsRead)
	s.NotNil(reloaded.ReadAt)
}
