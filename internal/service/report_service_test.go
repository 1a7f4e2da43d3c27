package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
	"github.com/archihub/archihub-api/pkg/jobs"
	"github.com/archihub/archihub-api/pkg/storage"
)

type reportRepoStub struct {
	jobsByID map[string]models.ReportJob
	nextID   int
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobsByID: make(map[string]models.ReportJob)}
}

func (s *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		s.nextID++
		job.ID = fmt.Sprintf("job-%d", s.nextID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	s.jobsByID[job.ID] = *job
	return nil
}

func (s *reportRepoStub) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := s.jobsByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (s *reportRepoStub) MarkRunning(ctx context.Context, id string) error {
	job := s.jobsByID[id]
	job.Status = models.ReportStatusRunning
	s.jobsByID[id] = job
	return nil
}

func (s *reportRepoStub) MarkCompleted(ctx context.Context, id, filePath string) error {
	job := s.jobsByID[id]
	job.Status = models.ReportStatusCompleted
	job.FilePath = &filePath
	s.jobsByID[id] = job
	return nil
}

func (s *reportRepoStub) MarkFailed(ctx context.Context, id, reason string) error {
	job := s.jobsByID[id]
	job.Status = models.ReportStatusFailed
	job.Error = &reason
	s.jobsByID[id] = job
	return nil
}

type progressOverviewStub struct {
	overview []models.SubjectProgress
}

func (s *progressOverviewStub) SubjectOverview(ctx context.Context, userID int64, year int) ([]models.SubjectProgress, error) {
	return s.overview, nil
}

type queueStub struct {
	enqueued []jobs.Job
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newReportFixture(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *imageStoreStub) {
	t.Helper()
	reports := newReportRepoStub()
	users := newUserRepoStub()
	require.NoError(t, users.Create(context.Background(), &models.User{Email: "ana@example.com", Name: "Ana", Year: 1}))

	progress := &progressOverviewStub{overview: []models.SubjectProgress{
		{
			Subject: models.Subject{ID: 1, Name: "Teoria", Year: 1},
			Progress: models.Progress{
				SubjectID: 1, TotalTPs: 3, ApprovedCount: 2, Ratio: 2.0 / 3.0,
				Items: []models.ProgressItem{
					{TPID: 10, Name: "TP1", Position: 1, State: models.StatusApproved},
					{TPID: 11, Name: "TP2", Position: 2, State: models.StatusApproved},
					{TPID: 12, Name: "TP3", Position: 3, State: models.StatusPending},
				},
			},
		},
	}}

	store := newImageStoreStub()
	signer := storage.NewSignedURLSigner("report_secret", time.Hour)
	svc := NewReportService(reports, progress, users, store, signer, nil)
	queue := &queueStub{}
	svc.SetQueue(queue)
	return svc, reports, queue, store
}

func TestRequestReportEnqueues(t *testing.T) {
	svc, reports, queue, _ := newReportFixture(t)

	job, err := svc.RequestReport(context.Background(), 1, models.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	assert.Contains(t, reports.jobsByID, job.ID)
}

func TestRequestReportRejectsFormat(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)

	_, err := svc.RequestReport(context.Background(), 1, models.ReportFormat("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestHandleJobRendersCSV(t *testing.T) {
	svc, reports, _, store := newReportFixture(t)
	ctx := context.Background()

	job, err := svc.RequestReport(ctx, 1, models.ReportFormatCSV)
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(ctx, jobs.Job{ID: job.ID, Type: "progress_report", Payload: job.ID}))

	stored := reports.jobsByID[job.ID]
	assert.Equal(t, models.ReportStatusCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)

	data, err := store.Read(*stored.FilePath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Teoria")
	assert.Contains(t, content, "approved")
	assert.Contains(t, content, "0.67")
}

func TestHandleJobRendersPDF(t *testing.T) {
	svc, reports, _, store := newReportFixture(t)
	ctx := context.Background()

	job, err := svc.RequestReport(ctx, 1, models.ReportFormatPDF)
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(ctx, jobs.Job{ID: job.ID, Payload: job.ID}))

	stored := reports.jobsByID[job.ID]
	require.NotNil(t, stored.FilePath)
	data, err := store.Read(*stored.FilePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestGetStatusIsPrivate(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)
	ctx := context.Background()

	job, err := svc.RequestReport(ctx, 1, models.ReportFormatCSV)
	require.NoError(t, err)

	_, err = svc.GetStatus(ctx, 2, job.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestStatusAndDownloadRoundTrip(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)
	ctx := context.Background()

	job, err := svc.RequestReport(ctx, 1, models.ReportFormatCSV)
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(ctx, jobs.Job{ID: job.ID, Payload: job.ID}))

	status, err := svc.GetStatus(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, status.Job.Status)
	require.NotEmpty(t, status.DownloadURL)

	data, _, err := svc.Download(ctx, status.DownloadURL)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDownloadRejectsTamperedToken(t *testing.T) {
	svc, _, _, _ := newReportFixture(t)

	_, _, err := svc.Download(context.Background(), "abc.123.ZGlyLw.deadbeef")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
