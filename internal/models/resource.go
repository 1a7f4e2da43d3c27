package models

import "time"

// Resource is a study material attached to a subject, optionally with a
// stored file.
type Resource struct {
	ID          int64     `db:"id" json:"id"`
	SubjectID   int64     `db:"subject_id" json:"subject_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
