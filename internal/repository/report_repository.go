package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// ReportRepository tracks asynchronous progress export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create persists a new report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusPending
	}
	const query = `INSERT INTO report_jobs (id, user_id, format, status, file_path, error, created_at, completed_at)
        VALUES (:id, :user_id, :format, :status, :file_path, :error, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a report job by its id.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, user_id, format, status, file_path, error, created_at, completed_at
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning flags a job as picked up by a worker.
func (r *ReportRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE report_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusRunning); err != nil {
		return fmt.Errorf("mark report running: %w", err)
	}
	return nil
}

// MarkCompleted records the artifact path of a finished job.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusCompleted, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed records a job failure.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE report_jobs SET status = $2, error = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusFailed, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}
