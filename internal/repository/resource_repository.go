package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// ResourceRepository handles persistence of study resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ListBySubject returns the resources of a subject newest first.
func (r *ResourceRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.Resource, error) {
	const query = `SELECT id, subject_id, title, description, file_path, created_at
        FROM resources WHERE subject_id = $1 ORDER BY created_at DESC, id DESC`
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, subjectID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// FindByID returns a resource by its id.
func (r *ResourceRepository) FindByID(ctx context.Context, id int64) (*models.Resource, error) {
	const query = `SELECT id, subject_id, title, description, file_path, created_at
        FROM resources WHERE id = $1`
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		return nil, err
	}
	return &resource, nil
}

// Create persists a new resource and fills in the generated id.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO resources (subject_id, title, description, file_path, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	if err := r.db.GetContext(ctx, &resource.ID, query,
		resource.SubjectID, resource.Title, resource.Description, resource.FilePath, resource.CreatedAt); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Delete removes a resource.
func (r *ResourceRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}
