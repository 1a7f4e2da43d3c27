package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

type tpReader interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.TP, error)
	FindByID(ctx context.Context, id int64) (*models.TP, error)
}

type userTPRepo interface {
	Find(ctx context.Context, userID, tpID int64) (*models.UserTP, error)
	Upsert(ctx context.Context, userTP *models.UserTP) error
	FindBySubject(ctx context.Context, userID, subjectID int64) (map[int64]models.UserTP, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	ListByYear(ctx context.Context, year int) ([]models.Subject, error)
}

// ProgressService tracks per-user assignment states and derives completion
// ratios from them. Ratios are recomputed from rows on every call.
type ProgressService struct {
	tps      tpReader
	userTPs  userTPRepo
	subjects subjectReader
	logger   *zap.Logger
}

// NewProgressService constructs ProgressService.
func NewProgressService(tps tpReader, userTPs userTPRepo, subjects subjectReader, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{tps: tps, userTPs: userTPs, subjects: subjects, logger: logger}
}

// GetAssignmentState returns the stored state for the (user, tp) pair.
// A missing row reads as pending, never as an error.
func (s *ProgressService) GetAssignmentState(ctx context.Context, userID, tpID int64) (models.AssignmentStatus, *float64, error) {
	userTP, err := s.userTPs.Find(ctx, userID, tpID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StatusPending, nil, nil
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment state")
	}
	return userTP.State, userTP.Grade, nil
}

// SetAssignmentState upserts the state for the (user, tp) pair. Any
// enumerated state is directly settable; callers wanting forward-only
// progression must enforce that above this service.
func (s *ProgressService) SetAssignmentState(ctx context.Context, userID, tpID int64, state models.AssignmentStatus, grade *float64) (*models.UserTP, error) {
	if !state.Valid() {
		return nil, appErrors.ErrInvalidState
	}
	if _, err := s.tps.FindByID(ctx, tpID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tp not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tp")
	}

	userTP := &models.UserTP{UserID: userID, TPID: tpID, State: state, Grade: grade}
	if err := s.userTPs.Upsert(ctx, userTP); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignment state")
	}

	s.logger.Debug("assignment state set",
		zap.Int64("user_id", userID),
		zap.Int64("tp_id", tpID),
		zap.String("state", string(state)))
	return userTP, nil
}

// ComputeProgress derives the user's completion ratio for a subject from
// the raw rows. A subject without TPs yields ratio 0 and no error.
func (s *ProgressService) ComputeProgress(ctx context.Context, userID, subjectID int64) (*models.Progress, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	tps, err := s.tps.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tps")
	}

	progress := &models.Progress{SubjectID: subjectID, TotalTPs: len(tps)}
	if len(tps) == 0 {
		return progress, nil
	}

	states, err := s.userTPs.FindBySubject(ctx, userID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment states")
	}

	progress.Items = make([]models.ProgressItem, 0, len(tps))
	for _, tp := range tps {
		item := models.ProgressItem{TPID: tp.ID, Name: tp.Name, Position: tp.Position, State: models.StatusPending}
		if userTP, ok := states[tp.ID]; ok {
			item.State = userTP.State
			item.Grade = userTP.Grade
		}
		if item.State == models.StatusApproved {
			progress.ApprovedCount++
		}
		progress.Items = append(progress.Items, item)
	}
	progress.Ratio = float64(progress.ApprovedCount) / float64(progress.TotalTPs)
	return progress, nil
}

// SubjectOverview returns every subject of a year with the user's progress,
// powering the per-year dashboard.
func (s *ProgressService) SubjectOverview(ctx context.Context, userID int64, year int) ([]models.SubjectProgress, error) {
	if year < 1 || year > 6 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 6")
	}
	subjects, err := s.subjects.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	overview := make([]models.SubjectProgress, 0, len(subjects))
	for _, subject := range subjects {
		progress, err := s.ComputeProgress(ctx, userID, subject.ID)
		if err != nil {
			return nil, err
		}
		overview = append(overview, models.SubjectProgress{Subject: subject, Progress: *progress})
	}
	return overview, nil
}
