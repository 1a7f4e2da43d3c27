package models

import "time"

// UserRole represents the available roles on the platform.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleAssistant UserRole = "assistant"
	RoleProfessor UserRole = "professor"
	RoleAdmin     UserRole = "admin"
)

// User represents a platform user stored in the users table.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Name           string    `db:"name" json:"name"`
	Year           int       `db:"year" json:"year"`
	CurrentCatedra string    `db:"current_catedra" json:"current_catedra"`
	Role           UserRole  `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
