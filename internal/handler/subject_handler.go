package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archihub/archihub-api/internal/service"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/response"
)

// SubjectHandler serves the academic catalog.
type SubjectHandler struct {
	service *service.SubjectService
}

// NewSubjectHandler creates a new handler.
func NewSubjectHandler(svc *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects
// @Description List every subject, optionally filtered by study year
// @Tags Subjects
// @Produce json
// @Param year query int false "Study year (1-6)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
			return
		}
		subjects, err := h.service.ListSubjectsByYear(c.Request.Context(), year)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, subjects, nil)
		return
	}

	subjects, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Get godoc
// @Summary Get subject
// @Description Get one subject by id
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	subject, err := h.service.GetSubject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// ListCatedras godoc
// @Summary List catedras of a subject
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/catedras [get]
func (h *SubjectHandler) ListCatedras(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	catedras, err := h.service.ListCatedras(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catedras, nil)
}

// ListTPs godoc
// @Summary List TPs of a subject
// @Description List the practical assignments of a subject ordered by position
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/tps [get]
func (h *SubjectHandler) ListTPs(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	tps, err := h.service.ListTPs(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tps, nil)
}

// Create godoc
// @Summary Create subject
// @Description Add a subject to the catalog (admin only)
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body object true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Year int    `json:"year" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	subject, err := h.service.CreateSubject(c.Request.Context(), req.Name, req.Year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// CreateCatedra godoc
// @Summary Create catedra
// @Description Add a catedra to a subject (admin only)
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body object true "Catedra payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{id}/catedras [post]
func (h *SubjectHandler) CreateCatedra(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catedra payload"))
		return
	}

	catedra, err := h.service.CreateCatedra(c.Request.Context(), id, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, catedra)
}

// CreateTP godoc
// @Summary Create TP
// @Description Append a practical assignment to a subject (admin only)
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body object true "TP payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id}/tps [post]
func (h *SubjectHandler) CreateTP(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		Position int    `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tp payload"))
		return
	}

	tp, err := h.service.CreateTP(c.Request.Context(), id, req.Name, req.Position)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tp)
}
