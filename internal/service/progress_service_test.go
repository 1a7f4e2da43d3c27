package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
	appErrors "github.com/archihub/archihub-api/pkg/errors"
)

type tpRepoStub struct {
	tps map[int64][]models.TP
}

func (s *tpRepoStub) ListBySubject(ctx context.Context, subjectID int64) ([]models.TP, error) {
	return s.tps[subjectID], nil
}

func (s *tpRepoStub) FindByID(ctx context.Context, id int64) (*models.TP, error) {
	for _, list := range s.tps {
		for _, tp := range list {
			if tp.ID == id {
				copy := tp
				return &copy, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

type userTPRepoStub struct {
	rows map[[2]int64]models.UserTP
}

func newUserTPRepoStub() *userTPRepoStub {
	return &userTPRepoStub{rows: make(map[[2]int64]models.UserTP)}
}

func (s *userTPRepoStub) Find(ctx context.Context, userID, tpID int64) (*models.UserTP, error) {
	if row, ok := s.rows[[2]int64{userID, tpID}]; ok {
		copy := row
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userTPRepoStub) Upsert(ctx context.Context, userTP *models.UserTP) error {
	key := [2]int64{userTP.UserID, userTP.TPID}
	if existing, ok := s.rows[key]; ok {
		userTP.ID = existing.ID
	} else {
		userTP.ID = int64(len(s.rows) + 1)
	}
	s.rows[key] = *userTP
	return nil
}

func (s *userTPRepoStub) FindBySubject(ctx context.Context, userID, subjectID int64) (map[int64]models.UserTP, error) {
	result := make(map[int64]models.UserTP)
	for key, row := range s.rows {
		if key[0] == userID {
			result[row.TPID] = row
		}
	}
	return result, nil
}

type subjectRepoStub struct {
	subjects map[int64]models.Subject
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		copy := subject
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) ListByYear(ctx context.Context, year int) ([]models.Subject, error) {
	var result []models.Subject
	for _, subject := range s.subjects {
		if subject.Year == year {
			result = append(result, subject)
		}
	}
	return result, nil
}

func newProgressFixture() (*ProgressService, *userTPRepoStub) {
	tps := &tpRepoStub{tps: map[int64][]models.TP{
		1: {
			{ID: 10, SubjectID: 1, Name: "TP1", Position: 1},
			{ID: 11, SubjectID: 1, Name: "TP2", Position: 2},
			{ID: 12, SubjectID: 1, Name: "TP3", Position: 3},
		},
		2: {},
	}}
	userTPs := newUserTPRepoStub()
	subjects := &subjectRepoStub{subjects: map[int64]models.Subject{
		1: {ID: 1, Name: "Teoria", Year: 1},
		2: {ID: 2, Name: "Sistemas", Year: 1},
	}}
	return NewProgressService(tps, userTPs, subjects, nil), userTPs
}

func TestComputeProgressNoTPs(t *testing.T) {
	svc, _ := newProgressFixture()

	progress, err := svc.ComputeProgress(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.TotalTPs)
	assert.Equal(t, 0.0, progress.Ratio)
}

func TestComputeProgressPartialApproval(t *testing.T) {
	svc, _ := newProgressFixture()
	ctx := context.Background()

	_, err := svc.SetAssignmentState(ctx, 1, 10, models.StatusApproved, nil)
	require.NoError(t, err)
	_, err = svc.SetAssignmentState(ctx, 1, 11, models.StatusApproved, nil)
	require.NoError(t, err)
	_, err = svc.SetAssignmentState(ctx, 1, 12, models.StatusSubmitted, nil)
	require.NoError(t, err)

	progress, err := svc.ComputeProgress(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalTPs)
	assert.Equal(t, 2, progress.ApprovedCount)
	assert.InDelta(t, 2.0/3.0, progress.Ratio, 1e-9)
	require.Len(t, progress.Items, 3)
	assert.Equal(t, models.StatusSubmitted, progress.Items[2].State)
}

func TestGetAssignmentStateDefaultsToPending(t *testing.T) {
	svc, _ := newProgressFixture()

	state, grade, err := svc.GetAssignmentState(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, state)
	assert.Nil(t, grade)
}

func TestSetAssignmentStateRejectsUnknownState(t *testing.T) {
	svc, _ := newProgressFixture()

	_, err := svc.SetAssignmentState(context.Background(), 1, 10, models.AssignmentStatus("done"), nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestSetAssignmentStateAllowsAnyDirection(t *testing.T) {
	svc, _ := newProgressFixture()
	ctx := context.Background()

	_, err := svc.SetAssignmentState(ctx, 1, 10, models.StatusApproved, nil)
	require.NoError(t, err)
	_, err = svc.SetAssignmentState(ctx, 1, 10, models.StatusPending, nil)
	require.NoError(t, err)

	state, _, err := svc.GetAssignmentState(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, state)
}

func TestSetAssignmentStateUnknownTP(t *testing.T) {
	svc, _ := newProgressFixture()

	_, err := svc.SetAssignmentState(context.Background(), 1, 999, models.StatusApproved, nil)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSetAssignmentStateKeepsGrade(t *testing.T) {
	svc, _ := newProgressFixture()
	ctx := context.Background()

	grade := 8.5
	_, err := svc.SetAssignmentState(ctx, 1, 10, models.StatusApproved, &grade)
	require.NoError(t, err)

	state, got, err := svc.GetAssignmentState(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, state)
	require.NotNil(t, got)
	assert.Equal(t, 8.5, *got)
}

func TestSubjectOverview(t *testing.T) {
	svc, _ := newProgressFixture()
	ctx := context.Background()

	_, err := svc.SetAssignmentState(ctx, 1, 10, models.StatusApproved, nil)
	require.NoError(t, err)

	overview, err := svc.SubjectOverview(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, overview, 2)

	_, err = svc.SubjectOverview(ctx, 1, 9)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
