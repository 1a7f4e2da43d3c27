package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archihub/archihub-api/internal/service"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/response"
)

// RatingHandler serves catedra reviews and the ranking.
type RatingHandler struct {
	service *service.RatingService
}

// NewRatingHandler creates a new handler.
func NewRatingHandler(svc *service.RatingService) *RatingHandler {
	return &RatingHandler{service: svc}
}

// Submit godoc
// @Summary Submit rating
// @Description Rate a catedra once; retract the existing rating to change it
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path int true "Catedra ID"
// @Param payload body object true "Rating payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /catedras/{id}/ratings [post]
func (h *RatingHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	catedraID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid catedra id"))
		return
	}

	var req struct {
		Score   int    `json:"score" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}

	rating, err := h.service.SubmitRating(c.Request.Context(), claims.UserID, catedraID, req.Score, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, rating)
}

// Retract godoc
// @Summary Retract rating
// @Description Remove the caller's rating of a catedra
// @Tags Ratings
// @Produce json
// @Param id path int true "Catedra ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catedras/{id}/ratings [delete]
func (h *RatingHandler) Retract(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	catedraID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid catedra id"))
		return
	}

	if err := h.service.RetractRating(c.Request.Context(), claims.UserID, catedraID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Summary godoc
// @Summary Get catedra rating summary
// @Description Average score and review count; average is null with no reviews
// @Tags Ratings
// @Produce json
// @Param id path int true "Catedra ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catedras/{id}/ratings/summary [get]
func (h *RatingHandler) Summary(c *gin.Context) {
	catedraID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid catedra id"))
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), catedraID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Own godoc
// @Summary Get own rating
// @Description The caller's rating of a catedra, null when not rated
// @Tags Ratings
// @Produce json
// @Param id path int true "Catedra ID"
// @Success 200 {object} response.Envelope
// @Router /catedras/{id}/ratings/me [get]
func (h *RatingHandler) Own(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	catedraID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid catedra id"))
		return
	}

	rating, err := h.service.GetOwnRating(c.Request.Context(), claims.UserID, catedraID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rating, nil)
}

// Ranking godoc
// @Summary Get catedra ranking
// @Description Every catedra ordered by average rating, unrated last
// @Tags Ratings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ranking/catedras [get]
func (h *RatingHandler) Ranking(c *gin.Context) {
	ranking, err := h.service.GetRanking(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, ranking, nil)
}
