package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

type postRepoStub struct {
	posts  map[int64]models.Post
	nextID int64
	fail   bool
}

func newPostRepoStub() *postRepoStub {
	return &postRepoStub{posts: make(map[int64]models.Post)}
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	if s.fail {
		return fmt.Errorf("insert post: boom")
	}
	s.nextID++
	post.ID = s.nextID
	s.posts[post.ID] = *post
	return nil
}

func (s *postRepoStub) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	if post, ok := s.posts[id]; ok {
		copy := post
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *postRepoStub) ListFeed(ctx context.Context, viewerID int64, limit, offset int) ([]models.FeedItem, error) {
	var items []models.FeedItem
	for _, post := range s.posts {
		items = append(items, models.FeedItem{Post: post})
	}
	return items, nil
}

func (s *postRepoStub) CountAll(ctx context.Context) (int, error) {
	return len(s.posts), nil
}

func (s *postRepoStub) ListByUser(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	var items []models.FeedItem
	for _, post := range s.posts {
		if post.UserID == userID {
			items = append(items, models.FeedItem{Post: post})
		}
	}
	return items, nil
}

type likeRepoStub struct {
	likes map[[2]int64]struct{}
}

func newLikeRepoStub() *likeRepoStub {
	return &likeRepoStub{likes: make(map[[2]int64]struct{})}
}

func (s *likeRepoStub) Toggle(ctx context.Context, userID, postID int64) (bool, int, error) {
	key := [2]int64{userID, postID}
	liked := false
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
	} else {
		s.likes[key] = struct{}{}
		liked = true
	}
	count := 0
	for k := range s.likes {
		if k[1] == postID {
			count++
		}
	}
	return liked, count, nil
}

type imageStoreStub struct {
	files   map[string][]byte
	deleted []string
}

func newImageStoreStub() *imageStoreStub {
	return &imageStoreStub{files: make(map[string][]byte)}
}

func (s *imageStoreStub) Save(filename string, data []byte) (string, error) {
	s.files[filename] = data
	return filename, nil
}

func (s *imageStoreStub) Read(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, fmt.Errorf("open stored file: not found")
	}
	return data, nil
}

func (s *imageStoreStub) Delete(filename string) error {
	delete(s.files, filename)
	s.deleted = append(s.deleted, filename)
	return nil
}

func newFeedFixture() (*FeedService, *postRepoStub, *imageStoreStub) {
	posts := newPostRepoStub()
	likes := newLikeRepoStub()
	subjects := &subjectRepoStub{subjects: map[int64]models.Subject{
		1: {ID: 1, Name: "Teoria", Year: 1},
	}}
	store := newImageStoreStub()
	return NewFeedService(posts, likes, subjects, store, 1<<20, nil), posts, store
}

func TestPublishPostRejectsEmptyImage(t *testing.T) {
	svc, _, _ := newFeedFixture()

	_, err := svc.PublishPost(context.Background(), 1, 1, nil, "photo.jpg", "maqueta")
	assert.ErrorIs(t, err, appErrors.ErrEmptyImage)
}

func TestPublishPostRejectsOversizedImage(t *testing.T) {
	svc, _, _ := newFeedFixture()

	big := make([]byte, 2<<20)
	_, err := svc.PublishPost(context.Background(), 1, 1, big, "photo.jpg", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPublishPostStoresImage(t *testing.T) {
	svc, posts, store := newFeedFixture()

	post, err := svc.PublishPost(context.Background(), 1, 1, []byte{0xff, 0xd8}, "photo.jpg", "entrega final")
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.Contains(t, store.files, post.ImagePath)
	assert.Equal(t, "entrega final", posts.posts[post.ID].Caption)
}

func TestPublishPostUnknownSubject(t *testing.T) {
	svc, _, _ := newFeedFixture()

	_, err := svc.PublishPost(context.Background(), 1, 99, []byte{1}, "photo.jpg", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPublishPostCleansUpOnInsertFailure(t *testing.T) {
	svc, posts, store := newFeedFixture()
	posts.fail = true

	_, err := svc.PublishPost(context.Background(), 1, 1, []byte{1}, "photo.jpg", "")
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.files)
}

func TestToggleLikeIsSelfInverse(t *testing.T) {
	svc, _, _ := newFeedFixture()
	ctx := context.Background()

	post, err := svc.PublishPost(ctx, 1, 1, []byte{1}, "photo.jpg", "")
	require.NoError(t, err)

	first, err := svc.ToggleLike(ctx, 2, post.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikeCount)

	second, err := svc.ToggleLike(ctx, 2, post.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikeCount)
}

func TestToggleLikeUnknownPost(t *testing.T) {
	svc, _, _ := newFeedFixture()

	_, err := svc.ToggleLike(context.Background(), 1, 42)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGetFeedClampsPaging(t *testing.T) {
	svc, _, _ := newFeedFixture()

	_, pagination, err := svc.GetFeed(context.Background(), 1, -3, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, maxFeedSize, pagination.PageSize)
}

func TestGetImageRoundTrip(t *testing.T) {
	svc, _, _ := newFeedFixture()
	ctx := context.Background()

	post, err := svc.PublishPost(ctx, 1, 1, []byte{0xde, 0xad}, "photo.png", "")
	require.NoError(t, err)

	data, path, err := svc.GetImage(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, data)
	assert.Equal(t, post.ImagePath, path)
}
