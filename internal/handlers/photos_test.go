package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"

	"github.com/zfogg/unify/internal/models"
)

type uploadPart struct {
	name        string
	contentType string
	body        string
}

func (s *HandlersTestSuite) upload(user *models.User, mediaType string, parts ...uploadPart) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if mediaType != "" {
		s.Require().NoError(mw.WriteField("type", mediaType))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[]"; filename="%s"`, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		s.Require().NoError(err)
		_, err = w.Write([]byte(p.body))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", user.ID)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersTestSuite) TestUploadMedia() {
	w := s.upload(s.alice, "image",
		uploadPart{name: "a.jpg", contentType: "image/jpeg", body: "jpeg"},
		uploadPart{name: "b.mp4", contentType: "video/mp4", body: "mp4"},
		uploadPart{name: "c.png", contentType: "image/png", body: "png"},
	)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	urls := s.decode(w)["urls"].([]interface{})
	s.Require().Len(urls, 2)
	for _, u := range urls {
		s.True(strings.HasPrefix(u.(string), "https://cdn.test/posts/"))
	}
}

func (s *HandlersTestSuite) TestUploadSkipsFailures() {
	s.kernel.MediaMock.FailFor["broken.jpg"] = true

	w := s.upload(s.alice, "image",
		uploadPart{name: "broken.jpg", contentType: "image/jpeg", body: "x"},
		uploadPart{name: "fine.jpg", contentType: "image/jpeg", body: "y"},
	)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["urls"], 1)

	w = s.upload(s.alice, "image", uploadPart{name: "broken.jpg", contentType: "image/jpeg", body: "x"})
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *HandlersTestSuite) TestUploadValidation() {
	w := s.upload(s.alice, "image")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.upload(s.alice, "audio", uploadPart{name: "a.jpg", contentType: "image/jpeg", body: "x"})
	s.Equal(http.StatusBadRequest, w.Code)

	s.kernel.WithoutMedia()
	w = s.upload(s.alice, "image", uploadPart{name: "a.jpg", contentType: "image/jpeg", body: "x"})
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlersTestSuite) TestProfilePhotoReplacesPrevious() {
	path := "/api/users/" + s.alice.ID + "/photos"

	w := s.do(http.MethodPost, path, s.alice, map[string]string{"url": "https://cdn.test/posts/old.jpg", "type": models.PhotoTypeProfile})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, path, s.alice, map[string]string{"url": "https://cdn.test/posts/new.jpg", "type": models.PhotoTypeProfile})
	s.Require().Equal(http.StatusOK, w.Code)

	var user models.User
	s.Require().NoError(s.db.First(&user, "id = ?", s.alice.ID).Error)
	s.Equal("https://cdn.test/posts/new.jpg", user.Avatar)
	s.Equal([]string{"posts/old.jpg"}, s.kernel.MediaMock.DeletedKeys())

	w = s.do(http.MethodGet, path+"?type=profile", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decode(w)["photos"], 1)
}

func (s *HandlersTestSuite) TestPhotoPermissions() {
	path := "/api/users/" + s.alice.ID + "/photos"

	w := s.do(http.MethodPost, path, s.bob, map[string]string{"url": "https://cdn.test/x.jpg", "type": models.PhotoTypeGallery})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, path, s.alice, map[string]string{"url": "https://cdn.test/x.jpg", "type": "banner"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, path+"?type=banner", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/users/missing/photos", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestUpdateAndDeletePhoto() {
	path := "/api/users/" + s.alice.ID + "/photos"
	w := s.do(http.MethodPost, path, s.alice, map[string]string{"url": "https://cdn.test/gallery/1.jpg", "type": models.PhotoTypeGallery})
	s.Require().Equal(http.StatusOK, w.Code)
	photoID := s.decode(w)["photo"].(map[string]interface{})["id"].(string)

	w = s.do(http.MethodPut, path+"/"+photoID, s.alice, map[string]string{"caption": "plage"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("plage", s.decode(w)["photo"].(map[string]interface{})["caption"])

	w = s.do(http.MethodDelete, path+"/"+photoID, s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal([]string{"gallery/1.jpg"}, s.kernel.MediaMock.DeletedKeys())

	w = s.do(http.MethodDelete, path+"/"+photoID, s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)
}
