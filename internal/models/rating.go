package models

import "time"

// Rating is one user's review of a catedra. At most one row exists per
// (user_id, catedra_id); editing is retract followed by a fresh submit, so
// created_at always reflects the latest submission.
type Rating struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CatedraID int64     `db:"catedra_id" json:"catedra_id"`
	Score     int       `db:"score" json:"score"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RatingSummary aggregates the ratings of one catedra. Average is nil when
// no reviews exist, which callers must render distinctly from a numeric score.
type RatingSummary struct {
	CatedraID   int64    `db:"catedra_id" json:"catedra_id"`
	Average     *float64 `db:"average" json:"average"`
	ReviewCount int      `db:"review_count" json:"review_count"`
}

// CatedraRanking is a ranking row: catedra, subject and aggregate rating.
type CatedraRanking struct {
	CatedraID   int64    `db:"catedra_id" json:"catedra_id"`
	CatedraName string   `db:"catedra_name" json:"catedra_name"`
	SubjectID   int64    `db:"subject_id" json:"subject_id"`
	SubjectName string   `db:"subject_name" json:"subject_name"`
	Average     *float64 `db:"average" json:"average"`
	ReviewCount int      `db:"review_count" json:"review_count"`
}
