package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// RatingRepository handles persistence of catedra ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a rating. The (user_id, catedra_id) unique constraint is
// the authoritative duplicate guard; its violation is returned wrapped so
// the service can translate it.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ratings (user_id, catedra_id, score, comment, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	if err := r.db.GetContext(ctx, &rating.ID, query,
		rating.UserID, rating.CatedraID, rating.Score, rating.Comment, rating.CreatedAt); err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// Delete removes the rating of a (user, catedra) pair and reports whether a
// row existed.
func (r *RatingRepository) Delete(ctx context.Context, userID, catedraID int64) (bool, error) {
	const query = `DELETE FROM ratings WHERE user_id = $1 AND catedra_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, catedraID)
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rating rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByUserAndCatedra returns the caller's own rating for a catedra.
func (r *RatingRepository) FindByUserAndCatedra(ctx context.Context, userID, catedraID int64) (*models.Rating, error) {
	const query = `SELECT id, user_id, catedra_id, score, comment, created_at
        FROM ratings WHERE user_id = $1 AND catedra_id = $2`
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, userID, catedraID); err != nil {
		return nil, err
	}
	return &rating, nil
}

// Summary aggregates the ratings of a catedra. AVG over the empty set is
// NULL, which scans into a nil Average.
func (r *RatingRepository) Summary(ctx context.Context, catedraID int64) (*models.RatingSummary, error) {
	const query = `SELECT $1::BIGINT AS catedra_id, AVG(score) AS average, COUNT(*) AS review_count
        FROM ratings WHERE catedra_id = $1`
	var summary models.RatingSummary
	if err := r.db.GetContext(ctx, &summary, query, catedraID); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &summary, nil
}

// Ranking returns every catedra with its subject and aggregate rating,
// best rated first, unrated sections last.
func (r *RatingRepository) Ranking(ctx context.Context) ([]models.CatedraRanking, error) {
	const query = `SELECT c.id AS catedra_id, c.name AS catedra_name,
        s.id AS subject_id, s.name AS subject_name,
        AVG(rt.score) AS average, COUNT(rt.id) AS review_count
        FROM catedras c
        JOIN subjects s ON s.id = c.subject_id
        LEFT JOIN ratings rt ON rt.catedra_id = c.id
        GROUP BY c.id, c.name, s.id, s.name
        ORDER BY AVG(rt.score) DESC NULLS LAST, c.name`
	var ranking []models.CatedraRanking
	if err := r.db.SelectContext(ctx, &ranking, query); err != nil {
		return nil, fmt.Errorf("catedra ranking: %w", err)
	}
	return ranking, nil
}
