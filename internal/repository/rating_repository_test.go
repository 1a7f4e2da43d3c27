package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archihub/archihub-api/internal/models"
)

func TestRatingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery("INSERT INTO ratings").
		WithArgs(int64(1), int64(5), 4, "muy buena", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	rating := &models.Rating{UserID: 1, CatedraID: 5, Score: 4, Comment: "muy buena"}
	require.NoError(t, repo.Create(context.Background(), rating))
	assert.Equal(t, int64(9), rating.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryDeleteReportsExistence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectExec("DELETE FROM ratings").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	existed, err := repo.Delete(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, existed)

	mock.ExpectExec("DELETE FROM ratings").
		WithArgs(int64(1), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	existed, err = repo.Delete(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositorySummaryEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	rows := sqlmock.NewRows([]string{"catedra_id", "average", "review_count"}).
		AddRow(5, nil, 0)
	mock.ExpectQuery("SELECT (.+) AS catedra_id, AVG\\(score\\) AS average").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	summary, err := repo.Summary(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, summary.Average)
	assert.Equal(t, 0, summary.ReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryRankingOrdersUnratedLast(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	rows := sqlmock.NewRows([]string{"catedra_id", "catedra_name", "subject_id", "subject_name", "average", "review_count"}).
		AddRow(2, "Taller A", 1, "Teoria", 4.5, 10).
		AddRow(3, "Taller B", 1, "Teoria", nil, 0)
	mock.ExpectQuery("SELECT c.id AS catedra_id").
		WillReturnRows(rows)

	ranking, err := repo.Ranking(context.Background())
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	require.NotNil(t, ranking[0].Average)
	assert.Equal(t, 4.5, *ranking[0].Average)
	assert.Nil(t, ranking[1].Average)
	assert.NoError(t, mock.ExpectationsWereMet())
}
