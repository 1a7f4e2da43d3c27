package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/middleware"
	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/internal/service"
)

type postStoreStub struct {
	posts map[int64]models.Post
	next  int64
}

func newPostStoreStub() *postStoreStub {
	return &postStoreStub{posts: make(map[int64]models.Post)}
}

func (s *postStoreStub) Create(ctx context.Context, post *models.Post) error {
	s.next++
	post.ID = s.next
	post.CreatedAt = time.Now()
	s.posts[post.ID] = *post
	return nil
}

func (s *postStoreStub) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	if post, ok := s.posts[id]; ok {
		copy := post
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *postStoreStub) ListFeed(ctx context.Context, viewerID int64, limit, offset int) ([]models.FeedItem, error) {
	var items []models.FeedItem
	for _, post := range s.posts {
		items = append(items, models.FeedItem{Post: post, AuthorName: "Ana", SubjectName: "Teoria"})
	}
	return items, nil
}

func (s *postStoreStub) CountAll(ctx context.Context) (int, error) {
	return len(s.posts), nil
}

func (s *postStoreStub) ListByUser(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	var items []models.FeedItem
	for _, post := range s.posts {
		if post.UserID == userID {
			items = append(items, models.FeedItem{Post: post})
		}
	}
	return items, nil
}

type likeStoreStub struct {
	liked map[[2]int64]bool
}

func (s *likeStoreStub) Toggle(ctx context.Context, userID, postID int64) (bool, int, error) {
	key := [2]int64{userID, postID}
	s.liked[key] = !s.liked[key]
	count := 0
	for k, v := range s.liked {
		if k[1] == postID && v {
			count++
		}
	}
	return s.liked[key], count, nil
}

type imageFileStub struct {
	files map[string][]byte
}

func newImageFileStub() *imageFileStub {
	return &imageFileStub{files: make(map[string][]byte)}
}

func (s *imageFileStub) Save(filename string, data []byte) (string, error) {
	s.files[filename] = data
	return filename, nil
}

func (s *imageFileStub) Read(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", filename)
	}
	return data, nil
}

func (s *imageFileStub) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

func newFeedHandlerFixture() (*FeedHandler, *postStoreStub) {
	posts := newPostStoreStub()
	likes := &likeStoreStub{liked: make(map[[2]int64]bool)}
	subjects := &subjectStoreStub{subjects: []models.Subject{{ID: 1, Name: "Teoria", Year: 1}}}
	svc := service.NewFeedService(posts, likes, subjects, newImageFileStub(), 1<<20, nil)
	return NewFeedHandler(svc), posts
}

func multipartPostRequest(t *testing.T, subjectID, caption string, image []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("subject_id", subjectID))
	if caption != "" {
		require.NoError(t, writer.WriteField("caption", caption))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "obra.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 1, Role: models.RoleStudent})
	return c, w
}

func TestFeedHandlerPublish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, posts := newFeedHandlerFixture()

	c, w := multipartPostRequest(t, "1", "maqueta final", []byte("jpegdata"))
	h.Publish(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, posts.posts, 1)
}

func TestFeedHandlerPublishWithoutImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, posts := newFeedHandlerFixture()

	c, w := multipartPostRequest(t, "1", "", nil)
	h.Publish(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, posts.posts)
}

func TestFeedHandlerPublishBadSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newFeedHandlerFixture()

	c, w := multipartPostRequest(t, "abc", "", []byte("jpegdata"))
	h.Publish(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedHandlerToggleLike(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, posts := newFeedHandlerFixture()
	require.NoError(t, posts.Create(context.Background(), &models.Post{UserID: 2, SubjectID: 1, ImagePath: "posts/x.jpg"}))

	c, w := authedContext(http.MethodPost, "/posts/1/like", nil, 1)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.ToggleLike(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.LikeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Liked)
	assert.Equal(t, 1, envelope.Data.LikeCount)
}

func TestFeedHandlerToggleLikeUnknownPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newFeedHandlerFixture()

	c, w := authedContext(http.MethodPost, "/posts/9/like", nil, 1)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.ToggleLike(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, posts := newFeedHandlerFixture()
	require.NoError(t, posts.Create(context.Background(), &models.Post{UserID: 2, SubjectID: 1, ImagePath: "posts/x.jpg"}))

	c, w := authedContext(http.MethodGet, "/posts?page=1&page_size=10", nil, 1)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.FeedItem  `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
