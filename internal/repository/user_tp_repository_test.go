package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserTPRepositoryFindMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserTPRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, tp_id, state, grade FROM user_tps WHERE user_id = $1 AND tp_id = $2")).
		WithArgs(int64(1), int64(10)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), 1, 10)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserTPRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserTPRepository(db)

	mock.ExpectQuery("INSERT INTO user_tps").
		WithArgs(int64(1), int64(10), models.StatusApproved, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	userTP := &models.UserTP{UserID: 1, TPID: 10, State: models.StatusApproved}
	require.NoError(t, repo.Upsert(context.Background(), userTP))
	assert.Equal(t, int64(7), userTP.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserTPRepositoryFindBySubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserTPRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "tp_id", "state", "grade"}).
		AddRow(1, 1, 10, "approved", nil).
		AddRow(2, 1, 11, "submitted", 7.5)
	mock.ExpectQuery("SELECT ut.id, ut.user_id, ut.tp_id, ut.state, ut.grade").
		WithArgs(int64(1), int64(3)).
		WillReturnRows(rows)

	states, err := repo.FindBySubject(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, models.StatusApproved, states[10].State)
	require.NotNil(t, states[11].Grade)
	assert.Equal(t, 7.5, *states[11].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}
