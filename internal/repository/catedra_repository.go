package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// CatedraRepository handles persistence of teaching sections.
type CatedraRepository struct {
	db *sqlx.DB
}

// NewCatedraRepository constructs the repository.
func NewCatedraRepository(db *sqlx.DB) *CatedraRepository {
	return &CatedraRepository{db: db}
}

// ListBySubject returns the catedras of a subject ordered by name.
func (r *CatedraRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.Catedra, error) {
	const query = `SELECT id, name, subject_id FROM catedras WHERE subject_id = $1 ORDER BY name`
	var catedras []models.Catedra
	if err := r.db.SelectContext(ctx, &catedras, query, subjectID); err != nil {
		return nil, fmt.Errorf("list catedras: %w", err)
	}
	return catedras, nil
}

// FindByID returns a catedra by its id.
func (r *CatedraRepository) FindByID(ctx context.Context, id int64) (*models.Catedra, error) {
	const query = `SELECT id, name, subject_id FROM catedras WHERE id = $1`
	var catedra models.Catedra
	if err := r.db.GetContext(ctx, &catedra, query, id); err != nil {
		return nil, err
	}
	return &catedra, nil
}

// Create persists a new catedra and fills in the generated id.
func (r *CatedraRepository) Create(ctx context.Context, catedra *models.Catedra) error {
	const query = `INSERT INTO catedras (name, subject_id) VALUES ($1, $2) RETURNING id`
	if err := r.db.GetContext(ctx, &catedra.ID, query, catedra.Name, catedra.SubjectID); err != nil {
		return fmt.Errorf("create catedra: %w", err)
	}
	return nil
}
