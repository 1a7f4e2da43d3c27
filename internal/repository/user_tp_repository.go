package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// UserTPRepository handles persistence of per-user assignment states.
type UserTPRepository struct {
	db *sqlx.DB
}

// NewUserTPRepository constructs the repository.
func NewUserTPRepository(db *sqlx.DB) *UserTPRepository {
	return &UserTPRepository{db: db}
}

// Find returns the state row for a (user, tp) pair. sql.ErrNoRows is passed
// through; callers treat absence as pending.
func (r *UserTPRepository) Find(ctx context.Context, userID, tpID int64) (*models.UserTP, error) {
	const query = `SELECT id, user_id, tp_id, state, grade FROM user_tps WHERE user_id = $1 AND tp_id = $2`
	var userTP models.UserTP
	if err := r.db.GetContext(ctx, &userTP, query, userID, tpID); err != nil {
		return nil, err
	}
	return &userTP, nil
}

// Upsert inserts or updates the state for a (user, tp) pair. The unique
// constraint on (user_id, tp_id) makes the insert race-safe: a concurrent
// insert degrades into the DO UPDATE branch.
func (r *UserTPRepository) Upsert(ctx context.Context, userTP *models.UserTP) error {
	const query = `INSERT INTO user_tps (user_id, tp_id, state, grade)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, tp_id)
        DO UPDATE SET state = EXCLUDED.state, grade = EXCLUDED.grade
        RETURNING id`
	if err := r.db.GetContext(ctx, &userTP.ID, query,
		userTP.UserID, userTP.TPID, userTP.State, userTP.Grade); err != nil {
		return fmt.Errorf("upsert user tp: %w", err)
	}
	return nil
}

// FindBySubject returns the user's state rows for every TP of a subject,
// keyed by tp id. TPs without a row are simply absent from the map.
func (r *UserTPRepository) FindBySubject(ctx context.Context, userID, subjectID int64) (map[int64]models.UserTP, error) {
	const query = `SELECT ut.id, ut.user_id, ut.tp_id, ut.state, ut.grade
        FROM user_tps ut
        JOIN tps t ON t.id = ut.tp_id
        WHERE ut.user_id = $1 AND t.subject_id = $2`
	rows, err := r.db.QueryxContext(ctx, query, userID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("find user tps by subject: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	states := make(map[int64]models.UserTP)
	for rows.Next() {
		var userTP models.UserTP
		if err := rows.StructScan(&userTP); err != nil {
			return nil, fmt.Errorf("scan user tp: %w", err)
		}
		states[userTP.TPID] = userTP
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user tps: %w", err)
	}
	return states, nil
}
