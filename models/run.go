package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// EvaluationRun records one orchestrator pass over all active criteria.
type EvaluationRun struct {
	ID                int64      `json:"id" db:"id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	CriteriaChecked   int        `json:"criteria_checked" db:"criteria_checked"`
	ListingsFound     int        `json:"listings_found" db:"listings_found"`
	ListingsNovel     int        `json:"listings_novel" db:"listings_novel"`
	NotificationsSent int        `json:"notifications_sent" db:"notifications_sent"`
	ErrorsCount       int        `json:"errors_count" db:"errors_count"`
}
