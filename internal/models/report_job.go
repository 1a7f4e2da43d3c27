package models

import "time"

// ReportStatus enumerates the lifecycle of an export job.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusRunning   ReportStatus = "running"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportJob tracks an asynchronous progress export.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	UserID      int64        `db:"user_id" json:"user_id"`
	Format      ReportFormat `db:"format" json:"format"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    *string      `db:"file_path" json:"-"`
	Error       *string      `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}
