package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

type ratingRepoStub struct {
	rows   map[[2]int64]models.Rating
	nextID int64
}

func newRatingRepoStub() *ratingRepoStub {
	return &ratingRepoStub{rows: make(map[[2]int64]models.Rating)}
}

func (s *ratingRepoStub) Create(ctx context.Context, rating *models.Rating) error {
	key := [2]int64{rating.UserID, rating.CatedraID}
	if _, ok := s.rows[key]; ok {
		return &pq.Error{Code: "23505", Constraint: "uq_ratings_user_catedra"}
	}
	s.nextID++
	rating.ID = s.nextID
	s.rows[key] = *rating
	return nil
}

func (s *ratingRepoStub) Delete(ctx context.Context, userID, catedraID int64) (bool, error) {
	key := [2]int64{userID, catedraID}
	if _, ok := s.rows[key]; !ok {
		return false, nil
	}
	delete(s.rows, key)
	return true, nil
}

func (s *ratingRepoStub) FindByUserAndCatedra(ctx context.Context, userID, catedraID int64) (*models.Rating, error) {
	if rating, ok := s.rows[[2]int64{userID, catedraID}]; ok {
		copy := rating
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *ratingRepoStub) Summary(ctx context.Context, catedraID int64) (*models.RatingSummary, error) {
	summary := &models.RatingSummary{CatedraID: catedraID}
	var total int
	for _, rating := range s.rows {
		if rating.CatedraID == catedraID {
			summary.ReviewCount++
			total += rating.Score
		}
	}
	if summary.ReviewCount > 0 {
		avg := float64(total) / float64(summary.ReviewCount)
		summary.Average = &avg
	}
	return summary, nil
}

func (s *ratingRepoStub) Ranking(ctx context.Context) ([]models.CatedraRanking, error) {
	return nil, nil
}

type catedraRepoStub struct {
	catedras map[int64]models.Catedra
}

func (s *catedraRepoStub) FindByID(ctx context.Context, id int64) (*models.Catedra, error) {
	if catedra, ok := s.catedras[id]; ok {
		copy := catedra
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *catedraRepoStub) Create(ctx context.Context, catedra *models.Catedra) error {
	catedra.ID = int64(len(s.catedras) + 1)
	s.catedras[catedra.ID] = *catedra
	return nil
}

func (s *catedraRepoStub) ListBySubject(ctx context.Context, subjectID int64) ([]models.Catedra, error) {
	var result []models.Catedra
	for _, catedra := range s.catedras {
		if catedra.SubjectID == subjectID {
			result = append(result, catedra)
		}
	}
	return result, nil
}

func newRatingFixture() *RatingService {
	ratings := newRatingRepoStub()
	catedras := &catedraRepoStub{catedras: map[int64]models.Catedra{
		5: {ID: 5, Name: "Taller Szelagowski", SubjectID: 1},
	}}
	return NewRatingService(ratings, catedras, nil)
}

func TestSubmitRatingScoreBounds(t *testing.T) {
	svc := newRatingFixture()
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, 1, 5, 0, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidScore)

	_, err = svc.SubmitRating(ctx, 1, 5, 6, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidScore)

	_, err = svc.SubmitRating(ctx, 1, 5, 5, "excelente")
	require.NoError(t, err)
}

func TestSubmitRatingDuplicate(t *testing.T) {
	svc := newRatingFixture()
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, 1, 5, 4, "")
	require.NoError(t, err)

	_, err = svc.SubmitRating(ctx, 1, 5, 2, "")
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRating)
}

func TestRetractThenResubmit(t *testing.T) {
	svc := newRatingFixture()
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, 1, 5, 4, "")
	require.NoError(t, err)

	require.NoError(t, svc.RetractRating(ctx, 1, 5))

	rating, err := svc.SubmitRating(ctx, 1, 5, 2, "cambio de opinion")
	require.NoError(t, err)
	assert.Equal(t, 2, rating.Score)
}

func TestRetractMissingRating(t *testing.T) {
	svc := newRatingFixture()

	err := svc.RetractRating(context.Background(), 1, 5)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSummaryNoReviews(t *testing.T) {
	svc := newRatingFixture()

	summary, err := svc.GetSummary(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, summary.Average)
	assert.Equal(t, 0, summary.ReviewCount)
}

func TestSummaryAveragesScores(t *testing.T) {
	svc := newRatingFixture()
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, 1, 5, 4, "")
	require.NoError(t, err)
	_, err = svc.SubmitRating(ctx, 2, 5, 2, "")
	require.NoError(t, err)

	summary, err := svc.GetSummary(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, summary.Average)
	assert.InDelta(t, 3.0, *summary.Average, 1e-9)
	assert.Equal(t, 2, summary.ReviewCount)
}

func TestGetOwnRatingAbsent(t *testing.T) {
	svc := newRatingFixture()

	rating, err := svc.GetOwnRating(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Nil(t, rating)
}

func TestSubmitRatingUnknownCatedra(t *testing.T) {
	svc := newRatingFixture()

	_, err := svc.SubmitRating(context.Background(), 1, 99, 3, "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
