package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LikeRepository handles persistence of post likes.
type LikeRepository struct {
	db *sqlx.DB
}

// NewLikeRepository constructs the repository.
func NewLikeRepository(db *sqlx.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Toggle flips the like of a (user, post) pair inside one transaction and
// returns the resulting state with the count recomputed against the same
// snapshot. ON CONFLICT DO NOTHING absorbs a concurrent insert on the
// (user_id, post_id) unique constraint: losing that race means the like
// already exists, so the call falls through to the delete branch.
func (r *LikeRepository) Toggle(ctx context.Context, userID, postID int64) (liked bool, likeCount int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin like toggle: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const insert = `INSERT INTO likes (user_id, post_id) VALUES ($1, $2)
        ON CONFLICT (user_id, post_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert, userID, postID)
	if err != nil {
		return false, 0, fmt.Errorf("insert like: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("insert like rows affected: %w", err)
	}

	if inserted > 0 {
		liked = true
	} else {
		const remove = `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`
		if _, err = tx.ExecContext(ctx, remove, userID, postID); err != nil {
			return false, 0, fmt.Errorf("delete like: %w", err)
		}
		liked = false
	}

	const count = `SELECT COUNT(*) FROM likes WHERE post_id = $1`
	if err = tx.GetContext(ctx, &likeCount, count, postID); err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit like toggle: %w", err)
	}
	return liked, likeCount, nil
}

// Count returns the number of likes on a post.
func (r *LikeRepository) Count(ctx context.Context, postID int64) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return total, nil
}
