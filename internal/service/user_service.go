package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

type userProfileRepo interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, year int, currentCatedra string) error
}

type userPostsRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]models.FeedItem, error)
}

// UserService serves user profiles and the portfolio view.
type UserService struct {
	users  userProfileRepo
	posts  userPostsRepo
	logger *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(users userProfileRepo, posts userPostsRepo, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, posts: posts, logger: logger}
}

// GetProfile returns a user's public profile.
func (s *UserService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile changes the mutable profile fields of the caller.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, year int, currentCatedra string) (*models.User, error) {
	if year < 1 || year > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 6")
	}
	if _, err := s.GetProfile(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, id, year, strings.TrimSpace(currentCatedra)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.GetProfile(ctx, id)
}

// GetPortfolio returns a user's posts newest first.
func (s *UserService) GetPortfolio(ctx context.Context, id int64) ([]models.FeedItem, error) {
	if _, err := s.GetProfile(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.posts.ListByUser(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list portfolio")
	}
	return items, nil
}
