package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// TPRepository handles persistence of practical assignments.
type TPRepository struct {
	db *sqlx.DB
}

// NewTPRepository constructs the repository.
func NewTPRepository(db *sqlx.DB) *TPRepository {
	return &TPRepository{db: db}
}

// ListBySubject returns the TPs of a subject ordered by position.
func (r *TPRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.TP, error) {
	const query = `SELECT id, name, subject_id, position FROM tps WHERE subject_id = $1 ORDER BY position`
	var tps []models.TP
	if err := r.db.SelectContext(ctx, &tps, query, subjectID); err != nil {
		return nil, fmt.Errorf("list tps: %w", err)
	}
	return tps, nil
}

// FindByID returns a TP by its id.
func (r *TPRepository) FindByID(ctx context.Context, id int64) (*models.TP, error) {
	const query = `SELECT id, name, subject_id, position FROM tps WHERE id = $1`
	var tp models.TP
	if err := r.db.GetContext(ctx, &tp, query, id); err != nil {
		return nil, err
	}
	return &tp, nil
}

// Create persists a new TP and fills in the generated id. The
// (subject_id, position) unique constraint rejects duplicate positions.
func (r *TPRepository) Create(ctx context.Context, tp *models.TP) error {
	const query = `INSERT INTO tps (name, subject_id, position) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.GetContext(ctx, &tp.ID, query, tp.Name, tp.SubjectID, tp.Position); err != nil {
		return fmt.Errorf("create tp: %w", err)
	}
	return nil
}
