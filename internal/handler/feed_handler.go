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

// FeedHandler serves the photo feed: posts, images and likes.
type FeedHandler struct {
	service *service.FeedService
}

// NewFeedHandler creates a new handler.
func NewFeedHandler(svc *service.FeedService) *FeedHandler {
	return &FeedHandler{service: svc}
}

// Publish godoc
// @Summary Publish post
// @Description Publish an image post tagged with a subject (multipart form)
// @Tags Feed
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Post image"
// @Param subject_id formData int true "Subject ID"
// @Param caption formData string false "Caption"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /posts [post]
func (h *FeedHandler) Publish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjectID, err := strconv.ParseInt(c.PostForm("subject_id"), 10, 64)
	if err != nil || subjectID < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject_id"))
		return
	}
	caption := c.PostForm("caption")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.ErrEmptyImage)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable image"))
		return
	}
	defer file.Close() //nolint:errcheck
	image, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable image"))
		return
	}

	post, err := h.service.PublishPost(c.Request.Context(), claims.UserID, subjectID, image, fileHeader.Filename, caption)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// List godoc
// @Summary List feed
// @Description Global feed newest first, annotated with the caller's likes
// @Tags Feed
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *FeedHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, pagination, err := h.service.GetFeed(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// ToggleLike godoc
// @Summary Toggle like
// @Description Like a post, or unlike it when already liked
// @Tags Feed
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/like [post]
func (h *FeedHandler) ToggleLike(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid post id"))
		return
	}

	result, err := h.service.ToggleLike(c.Request.Context(), claims.UserID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Image godoc
// @Summary Get post image
// @Description Stream the stored image of a post
// @Tags Feed
// @Produce octet-stream
// @Param id path int true "Post ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /posts/{id}/image [get]
func (h *FeedHandler) Image(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid post id"))
		return
	}

	data, path, err := h.service.GetImage(c.Request.Context(), postID)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}
