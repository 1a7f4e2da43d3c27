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

type resourceRepo interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.Resource, error)
	FindByID(ctx context.Context, id int64) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, id int64) error
}

type resourceStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

// ResourceService manages study materials attached to subjects. The file is
// optional, a resource may be just a titled description or link.
type ResourceService struct {
	resources resourceRepo
	subjects  subjectReader
	store     resourceStore
	logger    *zap.Logger
}

// NewResourceService constructs ResourceService.
func NewResourceService(resources resourceRepo, subjects subjectReader, store resourceStore, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{resources: resources, subjects: subjects, store: store, logger: logger}
}

// ListBySubject returns the resources of a subject newest first.
func (s *ResourceService) ListBySubject(ctx context.Context, subjectID int64) ([]models.Resource, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	resources, err := s.resources.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return resources, nil
}

// Create adds a resource, optionally storing an attached file.
func (s *ResourceService) Create(ctx context.Context, subjectID int64, title, description string, file []byte, originalName string) (*models.Resource, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource title required")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	resource := &models.Resource{SubjectID: subjectID, Title: title, Description: strings.TrimSpace(description)}
	if len(file) > 0 {
		ext := strings.ToLower(filepath.Ext(originalName))
		filename := fmt.Sprintf("resources/%s%s", uuid.NewString(), ext)
		stored, err := s.store.Save(filename, file)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store resource file")
		}
		resource.FilePath = &stored
	}

	if err := s.resources.Create(ctx, resource); err != nil {
		if resource.FilePath != nil {
			if cleanupErr := s.store.Delete(*resource.FilePath); cleanupErr != nil {
				s.logger.Warn("orphaned resource file after failed insert",
					zap.String("path", *resource.FilePath), zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	s.logger.Info("resource created",
		zap.Int64("resource_id", resource.ID),
		zap.Int64("subject_id", subjectID))
	return resource, nil
}

// Download returns the stored file of a resource.
func (s *ResourceService) Download(ctx context.Context, id int64) ([]byte, string, error) {
	resource, err := s.resources.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if resource.FilePath == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "resource has no attached file")
	}
	data, err := s.store.Read(*resource.FilePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to read resource file")
	}
	return data, *resource.FilePath, nil
}

// Delete removes a resource and its stored file.
func (s *ResourceService) Delete(ctx context.Context, id int64) error {
	resource, err := s.resources.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if err := s.resources.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	if resource.FilePath != nil {
		if err := s.store.Delete(*resource.FilePath); err != nil {
			s.logger.Warn("failed to remove resource file", zap.String("path", *resource.FilePath), zap.Error(err))
		}
	}
	return nil
}
