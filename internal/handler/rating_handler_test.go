package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/middleware"
	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/internal/service"
	"github.com/archihub/archihub-api/pkg/response"
)

type ratingStoreStub struct {
	rows map[[2]int64]models.Rating
	next int64
}

func newRatingStoreStub() *ratingStoreStub {
	return &ratingStoreStub{rows: make(map[[2]int64]models.Rating)}
}

func (s *ratingStoreStub) Create(ctx context.Context, rating *models.Rating) error {
	key := [2]int64{rating.UserID, rating.CatedraID}
	if _, ok := s.rows[key]; ok {
		return &pq.Error{Code: "23505"}
	}
	s.next++
	rating.ID = s.next
	s.rows[key] = *rating
	return nil
}

func (s *ratingStoreStub) Delete(ctx context.Context, userID, catedraID int64) (bool, error) {
	key := [2]int64{userID, catedraID}
	if _, ok := s.rows[key]; !ok {
		return false, nil
	}
	delete(s.rows, key)
	return true, nil
}

func (s *ratingStoreStub) FindByUserAndCatedra(ctx context.Context, userID, catedraID int64) (*models.Rating, error) {
	if rating, ok := s.rows[[2]int64{userID, catedraID}]; ok {
		copy := rating
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *ratingStoreStub) Summary(ctx context.Context, catedraID int64) (*models.RatingSummary, error) {
	summary := &models.RatingSummary{CatedraID: catedraID}
	total := 0
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

func (s *ratingStoreStub) Ranking(ctx context.Context) ([]models.CatedraRanking, error) {
	return []models.CatedraRanking{}, nil
}

type catedraStoreStub struct{}

func (catedraStoreStub) FindByID(ctx context.Context, id int64) (*models.Catedra, error) {
	if id == 5 {
		return &models.Catedra{ID: 5, Name: "Taller", SubjectID: 1}, nil
	}
	return nil, sql.ErrNoRows
}

func (catedraStoreStub) ListBySubject(ctx context.Context, subjectID int64) ([]models.Catedra, error) {
	return nil, nil
}

func newRatingHandlerFixture() *RatingHandler {
	svc := service.NewRatingService(newRatingStoreStub(), catedraStoreStub{}, nil)
	return NewRatingHandler(svc)
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authedContext(method, path string, body []byte, userID int64) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := newGinContext(method, path, body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleStudent})
	return c, w
}

func TestRatingHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	payload, _ := json.Marshal(map[string]interface{}{"score": 4, "comment": "muy buena"})
	c, w := authedContext(http.MethodPost, "/catedras/5/ratings", payload, 1)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRatingHandlerSubmitDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	payload, _ := json.Marshal(map[string]interface{}{"score": 4})
	c, w := authedContext(http.MethodPost, "/catedras/5/ratings", payload, 1)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = authedContext(http.MethodPost, "/catedras/5/ratings", payload, 1)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	h.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "DUPLICATE_RATING", envelope.Error.Code)
}

func TestRatingHandlerSubmitInvalidScore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	payload, _ := json.Marshal(map[string]interface{}{"score": 6})
	c, w := authedContext(http.MethodPost, "/catedras/5/ratings", payload, 1)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingHandlerRetractMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	c, w := authedContext(http.MethodDelete, "/catedras/5/ratings", nil, 1)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Retract(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRatingHandlerSummaryWithoutReviews(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	c, w := newGinContext(http.MethodGet, "/catedras/5/ratings/summary", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.RatingSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Data.Average)
	assert.Equal(t, 0, envelope.Data.ReviewCount)
}

func TestRatingHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newRatingHandlerFixture()

	payload, _ := json.Marshal(map[string]interface{}{"score": 4})
	c, w := newGinContext(http.MethodPost, "/catedras/5/ratings", payload)
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
