package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archihub/archihub-api/internal/service"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/response"
)

// ResourceHandler serves study materials.
type ResourceHandler struct {
	service *service.ResourceService
}

// NewResourceHandler creates a new handler.
func NewResourceHandler(svc *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: svc}
}

// ListBySubject godoc
// @Summary List resources of a subject
// @Tags Resources
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/resources [get]
func (h *ResourceHandler) ListBySubject(c *gin.Context) {
	subjectID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	resources, err := h.service.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resources, nil)
}

// Create godoc
// @Summary Create resource
// @Description Attach a study resource to a subject, optionally with a file
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Subject ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param file formData file false "Attached file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{id}/resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	subjectID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")

	var file []byte
	var originalName string
	if fileHeader, err := c.FormFile("file"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
			return
		}
		defer f.Close() //nolint:errcheck
		file, err = io.ReadAll(f)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
			return
		}
		originalName = fileHeader.Filename
	}

	resource, err := h.service.Create(c.Request.Context(), subjectID, title, description, file, originalName)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resource)
}

// Download godoc
// @Summary Download resource file
// @Tags Resources
// @Produce octet-stream
// @Param id path int true "Resource ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /resources/{id}/download [get]
func (h *ResourceHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resource id"))
		return
	}

	data, path, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filepath.Base(path)))
	c.Data(http.StatusOK, contentType, data)
}

// Delete godoc
// @Summary Delete resource
// @Description Remove a resource and its stored file (admin only)
// @Tags Resources
// @Produce json
// @Param id path int true "Resource ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resource id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
