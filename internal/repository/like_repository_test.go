package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepositoryToggleInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO likes").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM likes WHERE post_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	liked, count, err := repo.Toggle(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryToggleDeletesWhenPresent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO likes").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM likes").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM likes WHERE post_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	liked, count, err := repo.Toggle(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepositoryToggleRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO likes").
		WithArgs(int64(1), int64(5)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := repo.Toggle(context.Background(), 1, 5)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
