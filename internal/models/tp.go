package models

// TP is a practical assignment within a subject, ordered by position.
// (subject_id, position) is unique at the storage layer.
type TP struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	SubjectID int64  `db:"subject_id" json:"subject_id"`
	Position  int    `db:"position" json:"position"`
}

// AssignmentStatus enumerates the per-user state of a TP.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusSubmitted AssignmentStatus = "submitted"
	StatusApproved  AssignmentStatus = "approved"
)

// Valid reports whether the status is one of the enumerated values.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved:
		return true
	}
	return false
}

// UserTP links a user to a TP with the current state and an optional grade.
// At most one row exists per (user_id, tp_id); absence reads as pending.
type UserTP struct {
	ID     int64            `db:"id" json:"id"`
	UserID int64            `db:"user_id" json:"user_id"`
	TPID   int64            `db:"tp_id" json:"tp_id"`
	State  AssignmentStatus `db:"state" json:"state"`
	Grade  *float64         `db:"grade" json:"grade,omitempty"`
}

// ProgressItem is one TP of a subject with the user's current state.
type ProgressItem struct {
	TPID     int64            `json:"tp_id"`
	Name     string           `json:"name"`
	Position int              `json:"position"`
	State    AssignmentStatus `json:"state"`
	Grade    *float64         `json:"grade,omitempty"`
}

// Progress is the per-user completion summary of one subject.
type Progress struct {
	SubjectID     int64          `json:"subject_id"`
	TotalTPs      int            `json:"total_tps"`
	ApprovedCount int            `json:"approved_count"`
	Ratio         float64        `json:"ratio"`
	Items         []ProgressItem `json:"items,omitempty"`
}

// SubjectProgress pairs a subject with the caller's progress, used by the
// per-year dashboard overview.
type SubjectProgress struct {
	Subject  Subject  `json:"subject"`
	Progress Progress `json:"progress"`
}
