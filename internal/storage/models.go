package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interview session lifecycle states. Only completed sessions are eligible
// for candidate evaluation.
const (
	SessionScheduled  = "scheduled"
	SessionInProgress = "in_progress"
	SessionInReview   = "in_review"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
)

type JobPosting struct {
	ID          string
	Title       string
	Description string
	CreatedAt   time.Time
}

// Question belongs to one job posting. Category is stored as the raw string
// received from upstream; canonicalization happens in the scoring layer.
type Question struct {
	ID        string
	JobID     string
	Text      string
	Category  string
	Order     int
	CreatedAt time.Time
}

// Response is one recorded answer to a (session, question) pair. Retries
// produce multiple rows; rows are immutable except for the one-time
// final-score backfill. Score fields are nil when the analysis step has not
// produced them.
type Response struct {
	ID              string
	SessionID       string
	QuestionID      string
	Transcript      string
	ContentScore    *float64
	ConfidenceScore *float64
	FinalScore      *float64
	CreatedAt       time.Time
}

type InterviewSession struct {
	ID               string
	JobID            string
	CandidateContact string
	Status           string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// ResumeEvaluation is one resume-matching run over a job posting. The most
// recently created evaluation per posting is the current one; older runs are
// superseded but kept.
type ResumeEvaluation struct {
	ID        string
	JobID     string
	CreatedAt time.Time
	Entries   []ResumeEntry
}

// ResumeEntry is one candidate's row within a resume evaluation.
// OverallScore is on the retrieval system's 0–100 scale and nil when the
// entry carries no report.
type ResumeEntry struct {
	CandidateContact string
	OverallScore     *float64
}

type CandidateProfile struct {
	ID         string
	Contact    string
	Name       string
	ResumeText string
	CreatedAt  time.Time
}

// Task is a queued unit of background work (score backfill).
type Task struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
