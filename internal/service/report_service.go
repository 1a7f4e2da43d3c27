package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	"github.com/archihub/archihub-api/pkg/export"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/jobs"
	"github.com/archihub/archihub-api/pkg/storage"
)

const reportJobType = "progress_report"

type reportRepo interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type progressOverview interface {
	SubjectOverview(ctx context.Context, userID int64, year int) ([]models.SubjectProgress, error)
}

type reportUserReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type reportQueue interface {
	Enqueue(job jobs.Job) error
}

// ReportStatusResponse is a job's state with a download token once done.
type ReportStatusResponse struct {
	Job         *models.ReportJob `json:"job"`
	DownloadURL string            `json:"download_url,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// ReportService generates progress exports asynchronously. Workers pull the
// job, render the user's per-subject progress into CSV or PDF and store the
// artifact; downloads go through signed, expiring tokens.
type ReportService struct {
	reports  reportRepo
	progress progressOverview
	users    reportUserReader
	store    reportStore
	signer   *storage.SignedURLSigner
	queue    reportQueue
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewReportService constructs ReportService. Attach the returned service's
// HandleJob to the queue before starting it.
func NewReportService(reports reportRepo, progress progressOverview, users reportUserReader, store reportStore, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:  reports,
		progress: progress,
		users:    users,
		store:    store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// SetQueue wires the queue used to dispatch jobs.
func (s *ReportService) SetQueue(q reportQueue) {
	s.queue = q
}

// SetMetrics wires job outcome instrumentation.
func (s *ReportService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// RequestReport creates a pending job and enqueues it.
func (s *ReportService) RequestReport(ctx context.Context, userID int64, format models.ReportFormat) (*models.ReportJob, error) {
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue not configured")
	}

	job := &models.ReportJob{UserID: userID, Format: format, Status: models.ReportStatusPending}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: reportJobType, Payload: job.ID}); err != nil {
		if markErr := s.reports.MarkFailed(ctx, job.ID, "enqueue failed"); markErr != nil {
			s.logger.Error("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}

	s.logger.Info("report requested", zap.String("job_id", job.ID), zap.Int64("user_id", userID), zap.String("format", string(format)))
	return job, nil
}

// GetStatus returns a job's state. Completed jobs carry a signed download
// token. Jobs are private to their requester.
func (s *ReportService) GetStatus(ctx context.Context, userID int64, jobID string) (*ReportStatusResponse, error) {
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.UserID != userID {
		return nil, appErrors.ErrForbidden
	}

	resp := &ReportStatusResponse{Job: job}
	if job.Status == models.ReportStatusCompleted && job.FilePath != nil && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = token
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Download validates a signed token and returns the artifact bytes.
func (s *ReportService) Download(ctx context.Context, token string) ([]byte, string, error) {
	if s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "report downloads not configured")
	}
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.FilePath == nil || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}

	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to read report artifact")
	}
	return data, relPath, nil
}

// HandleJob is the queue handler rendering one report.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		return fmt.Errorf("report job %s: invalid payload", job.ID)
	}

	if err := s.reports.MarkRunning(ctx, jobID); err != nil {
		return err
	}
	if err := s.render(ctx, jobID); err != nil {
		if markErr := s.reports.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark report failed", zap.String("job_id", jobID), zap.Error(markErr))
		}
		s.metrics.RecordReportJob(string(models.ReportStatusFailed))
		return err
	}
	s.metrics.RecordReportJob(string(models.ReportStatusCompleted))
	return nil
}

func (s *ReportService) render(ctx context.Context, jobID string) error {
	job, err := s.reports.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job: %w", err)
	}
	user, err := s.users.FindByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load report user: %w", err)
	}

	overview, err := s.progress.SubjectOverview(ctx, user.ID, user.Year)
	if err != nil {
		return fmt.Errorf("compute progress overview: %w", err)
	}
	dataset := buildProgressDataset(overview)

	var payload []byte
	switch job.Format {
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Progress report for %s", user.Name))
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("reports/%s.%s", job.ID, job.Format)
	stored, err := s.store.Save(filename, payload)
	if err != nil {
		return fmt.Errorf("store report artifact: %w", err)
	}
	if err := s.reports.MarkCompleted(ctx, job.ID, stored); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}

	s.logger.Info("report completed", zap.String("job_id", job.ID), zap.String("path", stored))
	return nil
}

func buildProgressDataset(overview []models.SubjectProgress) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Subject", "Year", "TP", "State", "Grade", "Subject Ratio"},
	}
	for _, sp := range overview {
		ratio := fmt.Sprintf("%.2f", sp.Progress.Ratio)
		if len(sp.Progress.Items) == 0 {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Subject":       sp.Subject.Name,
				"Year":          fmt.Sprintf("%d", sp.Subject.Year),
				"TP":            "-",
				"State":         "-",
				"Grade":         "",
				"Subject Ratio": ratio,
			})
			continue
		}
		for _, item := range sp.Progress.Items {
			grade := ""
			if item.Grade != nil {
				grade = fmt.Sprintf("%.1f", *item.Grade)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Subject":       sp.Subject.Name,
				"Year":          fmt.Sprintf("%d", sp.Subject.Year),
				"TP":            item.Name,
				"State":         string(item.State),
				"Grade":         grade,
				"Subject Ratio": ratio,
			})
		}
	}
	return dataset
}
