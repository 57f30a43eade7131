package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/zfogg/unify/internal/models"
)

func (s *HandlersTestSuite) createPost(author *models.User, content string, at time.Time) *models.Post {
	p := &models.Post{UserID: author.ID, Content: content, ImageURLs: []string{}, CreatedAt: at}
	s.Require().NoError(s.db.Create(p).Error)
	return p
}

func (s *HandlersTestSuite) createComment(post *models.Post, author *models.User, parent *models.Comment, content string, at time.Time) *models.Comment {
	cm := &models.Comment{PostID: post.ID, UserID: author.ID, Content: content, CreatedAt: at}
	if parent != nil {
		cm.ParentID = &parent.ID
	}
	s.Require().NoError(s.db.Create(cm).Error)
	return cm
}

func commentsPath(post *models.Post, rest ...string) string {
	p := "/api/posts/" + post.ID + "/comments"
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (s *HandlersTestSuite) TestFeedShowsFriendsOnly() {
	s.befriend(s.alice, s.bob, models.FriendshipAccepted)
	base := time.Now().UTC().Add(-time.Hour)
	s.createPost(s.alice, "mine", base)
	s.createPost(s.bob, "friend", base.Add(time.Minute))
	s.createPost(s.carol, "stranger", base.Add(2*time.Minute))

	w := s.do(http.MethodGet, "/api/posts", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	posts := body["posts"].([]interface{})
	s.Require().Len(posts, 2)
	first := posts[0].(map[string]interface{})["post"].(map[string]interface{})
	s.Equal("friend", first["content"])
	s.Equal(float64(2), body["meta"].(map[string]interface{})["total"])
}

func (s *HandlersTestSuite) TestCreatePost() {
	w := s.do(http.MethodPost, "/api/posts", s.alice, map[string]string{"content": "  bonjour  "})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("bonjour", s.decode(w)["content"])

	w = s.do(http.MethodPost, "/api/posts", s.alice, map[string]string{"content": ""})
	s.Equal(http.StatusBadRequest, w.Code)

	g := s.createGroup(s.bob, "Club", false)
	w = s.do(http.MethodPost, "/api/posts", s.alice, map[string]string{"content": "hi", "groupId": g.ID})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/posts", s.bob, map[string]string{"content": "hi", "groupId": g.ID})
	s.Equal(http.StatusCreated, w.Code)
}

func (s *HandlersTestSuite) TestTogglePostLike() {
	post := s.createPost(s.alice, "like me", time.Now().UTC())

	w := s.do(http.MethodPost, "/api/posts/"+post.ID+"/likes", s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(true, body["liked"])
	s.Equal(float64(1), body["likeCount"])

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ?", s.alice.ID).Error)
	s.Equal(models.NotificationPostLike, n.Type)

	w = s.do(http.MethodGet, "/api/posts/"+post.ID+"/likes", s.alice, nil)
	s.Equal(float64(1), s.decode(w)["total"])

	w = s.do(http.MethodPost, "/api/posts/"+post.ID+"/likes", s.bob, nil)
	body = s.decode(w)
	s.Equal(false, body["liked"])
	s.Equal(float64(0), body["likeCount"])

	var stored models.Post
	s.Require().NoError(s.db.First(&stored, "id = ?", post.ID).Error)
	s.Equal(0, stored.LikeCount)
}

func (s *HandlersTestSuite) TestDeletePost() {
	post := s.createPost(s.alice, "bye", time.Now().UTC())
	cm := s.createComment(post, s.bob, nil, "hello", time.Now().UTC())
	s.Require().NoError(s.db.Create(&models.Reaction{UserID: s.alice.ID, Emoji: "👍", CommentID: &cm.ID}).Error)

	w := s.do(http.MethodDelete, "/api/posts/"+post.ID, s.bob, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/api/posts/"+post.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var comments, reactions int64
	s.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	s.db.Model(&models.Reaction{}).Count(&reactions)
	s.Zero(comments)
	s.Zero(reactions)

	w = s.do(http.MethodGet, "/api/posts/"+post.ID, s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestComments() {
	post := s.createPost(s.alice, "discuss", time.Now().UTC())

	w := s.do(http.MethodPost, commentsPath(post), s.bob, map[string]string{"content": "premier"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	commentID := s.decode(w)["id"].(string)

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ?", s.alice.ID).Error)
	s.Equal(models.NotificationPostComment, n.Type)

	w = s.do(http.MethodPost, commentsPath(post), s.bob, map[string]string{"content": "   "})
	s.Equal(http.StatusBadRequest, w.Code)

	long := make([]rune, maxCommentLength+1)
	for i := range long {
		long[i] = 'é'
	}
	w = s.do(http.MethodPost, commentsPath(post), s.bob, map[string]string{"content": string(long)})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, commentsPath(post), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["comments"], 1)

	var stored models.Post
	s.Require().NoError(s.db.First(&stored, "id = ?", post.ID).Error)
	s.Equal(1, stored.CommentCount)

	other := s.createPost(s.alice, "elsewhere", time.Now().UTC())
	w = s.do(http.MethodGet, "/api/posts/"+other.ID+"/comments/"+commentID, s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestUpdateAndDeleteComment() {
	post := s.createPost(s.alice, "discuss", time.Now().UTC())
	cm := s.createComment(post, s.bob, nil, "typo", time.Now().UTC())
	s.createComment(post, s.carol, cm, "reply", time.Now().UTC())
	s.Require().NoError(s.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("comment_count", 2).Error)

	w := s.do(http.MethodPut, commentsPath(post, cm.ID), s.alice, map[string]string{"content": "hijack"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, commentsPath(post, cm.ID), s.bob, map[string]string{"content": "fixed"})
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("fixed", body["content"])
	s.Equal(true, body["isEdited"])
	s.NotNil(body["editedAt"])

	w = s.do(http.MethodDelete, commentsPath(post, cm.ID), s.alice, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, commentsPath(post, cm.ID), s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var remaining int64
	s.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&remaining)
	s.Zero(remaining)

	var stored models.Post
	s.Require().NoError(s.db.First(&stored, "id = ?", post.ID).Error)
	s.Equal(0, stored.CommentCount)
}

func (s *HandlersTestSuite) TestCommentReplies() {
	post := s.createPost(s.alice, "discuss", time.Now().UTC())
	base := time.Now().UTC().Add(-time.Hour)
	parent := s.createComment(post, s.alice, nil, "question", base)
	s.createComment(post, s.bob, parent, "first", base.Add(time.Minute))
	s.createComment(post, s.carol, parent, "second", base.Add(2*time.Minute))

	w := s.do(http.MethodGet, commentsPath(post, parent.ID, "replies"), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(2), body["total"])
	replies := body["replies"].([]interface{})
	s.Equal("first", replies[0].(map[string]interface{})["content"])
	s.Equal("second", replies[1].(map[string]interface{})["content"])

	w = s.do(http.MethodGet, commentsPath(post), s.alice, nil)
	items := s.decode(w)["comments"].([]interface{})
	s.Require().Len(items, 1)
	s.Equal(float64(2), items[0].(map[string]interface{})["replyCount"])

	w = s.do(http.MethodPost, commentsPath(post, parent.ID, "replies"), s.bob, map[string]string{"content": "third"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(parent.ID, s.decode(w)["parentId"])

	var n models.Notification
	s.Require().NoError(s.db.First(&n, "user_id = ? AND type = ?", s.alice.ID, models.NotificationCommentReply).Error)
}

func (s *HandlersTestSuite) TestCommentReactions() {
	post := s.createPost(s.alice, "discuss", time.Now().UTC())
	cm := s.createComment(post, s.alice, nil, "react", time.Now().UTC())

	w := s.do(http.MethodPost, commentsPath(post, cm.ID, "reactions"), s.bob, map[string]string{"emoji": "❤️"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("added", s.decode(w)["action"])

	s.do(http.MethodPost, commentsPath(post, cm.ID, "reactions"), s.carol, map[string]string{"emoji": "❤️"})
	s.do(http.MethodPost, commentsPath(post, cm.ID, "reactions"), s.carol, map[string]string{"emoji": "😂"})

	w = s.do(http.MethodGet, commentsPath(post, cm.ID, "reactions"), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(3), body["total"])
	groups := body["reactions"].([]interface{})
	s.Require().Len(groups, 2)
	top := groups[0].(map[string]interface{})
	s.Equal("❤️", top["emoji"])
	s.Equal(float64(2), top["count"])

	w = s.do(http.MethodPost, commentsPath(post, cm.ID, "reactions"), s.bob, map[string]string{"emoji": "❤️"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("removed", s.decode(w)["action"])

	w = s.do(http.MethodDelete, commentsPath(post, cm.ID, "reactions")+"?emoji="+url.QueryEscape("😂"), s.carol, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, commentsPath(post, cm.ID, "reactions")+"?emoji="+url.QueryEscape("😂"), s.carol, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, commentsPath(post, cm.ID, "reactions"), s.bob, map[string]string{"emoji": ""})
	s.Equal(http.StatusBadRequest, w.Code)
}
