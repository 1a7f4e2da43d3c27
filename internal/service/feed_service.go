package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

const (
	maxCaptionLen   = 500
	defaultFeedSize = 20
	maxFeedSize     = 100
)

type postRepo interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	ListFeed(ctx context.Context, viewerID int64, limit, offset int) ([]models.FeedItem, error)
	CountAll(ctx context.Context) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]models.FeedItem, error)
}

type likeRepo interface {
	Toggle(ctx context.Context, userID, postID int64) (bool, int, error)
}

type imageStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

/// FeedService owns the chronological photo feed: publishing posts with a
// stored image, paging the feed and toggling likes.
type FeedService struct {
	posts    postRepo
	likes    likeRepo
	subjects subjectReader
	store    imageStore
	maxBytes int64
	logger   *zap.Logger
}

// NewFeedService constructs FeedService. maxImageBytes bounds accepted
// uploads; zero falls back to 10 MiB.
func NewFeedService(posts postRepo, likes likeRepo, subjects subjectReader, store imageStore, maxImageBytes int64, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxImageBytes <= 0 {
		maxImageBytes = 10 << 20
	}
	return &FeedService{posts: posts, likes: likes, subjects: subjects, store: store, maxBytes: maxImageBytes, logger: logger}
}

// PublishPost stores the image and creates the post. Empty image data is
// rejected before touching storage.
func (s *FeedService) PublishPost(ctx context.Context, userID, subjectID int64, image []byte, originalName, caption string) (*models.Post, error) {
	if len(image) == 0 {
		return nil, appErrors.ErrEmptyImage
	}
	if int64(len(image)) > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image exceeds the maximum allowed size")
	}
	caption = strings.TrimSpace(caption)
	if len(caption) > maxCaptionLen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "caption too long")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	filename := fmt.Sprintf("posts/%s%s", uuid.NewString(), ext)
	imagePath, err := s.store.Save(filename, image)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store image")
	}

	post := &models.Post{UserID: userID, SubjectID: subjectID, ImagePath: imagePath, Caption: caption}
	if err := s.posts.Create(ctx, post); err != nil {
		// Best effort cleanup, the post row is the source of truth.
		if cleanupErr := s.store.Delete(imagePath); cleanupErr != nil {
			s.logger.Warn("orphaned image after failed post insert",
				zap.String("path", imagePath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}

	s.logger.Info("post published",
		zap.Int64("post_id", post.ID),
		zap.Int64("user_id", userID),
		zap.Int64("subject_id", subjectID))
	return post, nil
}

// GetFeed returns a page of the global feed, newest first, annotated with
// the viewer's like state.
func (s *FeedService) GetFeed(ctx context.Context, viewerID int64, page, pageSize int) ([]models.FeedItem, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultFeedSize
	}
	if pageSize > maxFeedSize {
		pageSize = maxFeedSize
	}

	items, err := s.posts.ListFeed(ctx, viewerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feed")
	}
	total, err := s.posts.CountAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count posts")
	}

	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return items, pagination, nil
}

// GetUserPosts returns one user's posts newest first.
func (s *FeedService) GetUserPosts(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	items, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user posts")
	}
	return items, nil
}

// ToggleLike flips the viewer's like on a post and returns the new state.
// Toggling twice restores the original state and count.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID int64) (*models.LikeResult, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}

	liked, count, err := s.likes.Toggle(ctx, userID, postID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle like")
	}
	return &models.LikeResult{Liked: liked, LikeCount: count}, nil
}

// GetImage loads the stored image bytes of a post.
func (s *FeedService) GetImage(ctx context.Context, postID int64) ([]byte, string, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	data, err := s.store.Read(post.ImagePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to read image")
	}
	return data, post.ImagePath, nil
}
