package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/pkg/database"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

const maxRatingCommentLen = 1000

type ratingRepo interface {
	Create(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, userID, catedraID int64) (bool, error)
	FindByUserAndCatedra(ctx context.Context, userID, catedraID int64) (*models.Rating, error)
	Summary(ctx context.Context, catedraID int64) (*models.RatingSummary, error)
	Ranking(ctx context.Context) ([]models.CatedraRanking, error)
}

type catedraReader interface {
	FindByID(ctx context.Context, id int64) (*models.Catedra, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]models.Catedra, error)
}

// RatingService mediates catedra reviews. The one-rating-per-user-per-catedra
// rule lives in the storage constraint; this service only translates its
// violation into a domain error.
type RatingService struct {
	ratings  ratingRepo
	catedras catedraReader
	logger   *zap.Logger
}

// NewRatingService constructs RatingService.
func NewRatingService(ratings ratingRepo, catedras catedraReader, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{ratings: ratings, catedras: catedras, logger: logger}
}

// SubmitRating records a review for a catedra. A second submit for the same
// catedra fails with ErrDuplicateRating until the first is retracted.
func (s *RatingService) SubmitRating(ctx context.Context, userID, catedraID int64, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, appErrors.ErrInvalidScore
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxRatingCommentLen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment too long")
	}
	if _, err := s.catedras.FindByID(ctx, catedraID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catedra not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catedra")
	}

	rating := &models.Rating{UserID: userID, CatedraID: catedraID, Score: score, Comment: comment}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.ErrDuplicateRating
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rating")
	}

	s.logger.Info("rating submitted",
		zap.Int64("user_id", userID),
		zap.Int64("catedra_id", catedraID),
		zap.Int("score", score))
	return rating, nil
}

// RetractRating removes the caller's review of a catedra. Retracting a
// rating that does not exist is a not-found error.
func (s *RatingService) RetractRating(ctx context.Context, userID, catedraID int64) error {
	existed, err := s.ratings.Delete(ctx, userID, catedraID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rating")
	}
	if !existed {
		return appErrors.Clone(appErrors.ErrNotFound, "rating not found")
	}
	return nil
}

// GetOwnRating returns the caller's review of a catedra, or nil when the
// caller has not rated it.
func (s *RatingService) GetOwnRating(ctx context.Context, userID, catedraID int64) (*models.Rating, error) {
	rating, err := s.ratings.FindByUserAndCatedra(ctx, userID, catedraID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	return rating, nil
}

// GetSummary returns the aggregate rating of a catedra. Average stays nil
// when no reviews exist.
func (s *RatingService) GetSummary(ctx context.Context, catedraID int64) (*models.RatingSummary, error) {
	if _, err := s.catedras.FindByID(ctx, catedraID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catedra not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catedra")
	}
	summary, err := s.ratings.Summary(ctx, catedraID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate ratings")
	}
	return summary, nil
}

// GetRanking returns every catedra ordered by average score, unrated last.
func (s *RatingService) GetRanking(ctx context.Context) ([]models.CatedraRanking, error) {
	ranking, err := s.ratings.Ranking(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ranking")
	}
	return ranking, nil
}
