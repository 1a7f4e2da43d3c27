package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// SubjectRepository handles persistence of subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByYear returns the subjects of a study year ordered by name.
func (r *SubjectRepository) ListByYear(ctx context.Context, year int) ([]models.Subject, error) {
	const query = `SELECT id, name, year FROM subjects WHERE year = $1 ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, year); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListAll returns every subject ordered by year then name.
func (r *SubjectRepository) ListAll(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, year FROM subjects ORDER BY year, name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list all subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by its id.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	const query = `SELECT id, name, year FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create persists a new subject and fills in the generated id.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	const query = `INSERT INTO subjects (name, year) VALUES ($1, $2) RETURNING id`
	if err := r.db.GetContext(ctx, &subject.ID, query, subject.Name, subject.Year); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}
