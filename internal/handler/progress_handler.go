package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/internal/service"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/response"
)

// ProgressHandler serves per-user assignment states and completion ratios.
type ProgressHandler struct {
	service *service.ProgressService
}

// NewProgressHandler creates a new handler.
func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// GetState godoc
// @Summary Get assignment state
// @Description Get the caller's state for one TP; unset TPs read as pending
// @Tags Progress
// @Produce json
// @Param id path int true "TP ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /tps/{id}/state [get]
func (h *ProgressHandler) GetState(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tpID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tp id"))
		return
	}

	state, grade, err := h.service.GetAssignmentState(c.Request.Context(), claims.UserID, tpID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"tp_id": tpID, "state": state, "grade": grade}, nil)
}

// SetState godoc
// @Summary Set assignment state
// @Description Set the caller's state for one TP, optionally with a grade
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path int true "TP ID"
// @Param payload body object true "State payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tps/{id}/state [put]
func (h *ProgressHandler) SetState(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tpID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tp id"))
		return
	}

	var req struct {
		State models.AssignmentStatus `json:"state" binding:"required"`
		Grade *float64                `json:"grade"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid state payload"))
		return
	}

	userTP, err := h.service.SetAssignmentState(c.Request.Context(), claims.UserID, tpID, req.State, req.Grade)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, userTP, nil)
}

// SubjectProgress godoc
// @Summary Get subject progress
// @Description Completion ratio and per-TP states of the caller for one subject
// @Tags Progress
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/progress [get]
func (h *ProgressHandler) SubjectProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	subjectID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	progress, err := h.service.ComputeProgress(c.Request.Context(), claims.UserID, subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, progress, nil)
}

// Overview godoc
// @Summary Get progress overview
// @Description Every subject of a year with the caller's completion ratio
// @Tags Progress
// @Produce json
// @Param year query int true "Study year (1-6)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /progress/overview [get]
func (h *ProgressHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
		return
	}

	overview, err := h.service.SubjectOverview(c.Request.Context(), claims.UserID, year)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, overview, nil)
}
