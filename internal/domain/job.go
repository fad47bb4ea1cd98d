// Package domain holds the types shared by every component of the queue
// engine: the durable job record, its history, worker heartbeats, and the
// small set of sentinel errors the store and intake layers use to signal
// validation failures, missing rows, and forbidden transitions.
package domain

import "time"

// Status is the lifecycle state of a Job: PENDING and SCHEDULED jobs are
// not yet claimed, PROCESSING jobs are under lease by a worker, FAILED
// jobs wait for a scheduled retry, and COMPLETED, DEAD, and CANCELLED are
// terminal outcomes.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusScheduled  Status = "SCHEDULED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusDead       Status = "DEAD"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether status has no outbound edge except Intake.retry.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDead, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is the coarse dispatch class used by the priority queue's score
// function. Zero value is invalid; always set explicitly.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Weight returns the score offset for p. The gap between classes (1e13)
// exceeds any plausible millisecond timestamp range, so class always
// dominates the FIFO tie-break within a class.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1e13
	case PriorityLow:
		return 2e13
	default:
		return 2e13
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Job is the canonical entity persisted in the durable store (C1).
type Job struct {
	ID                string
	Queue             string
	Type              string
	Priority          Priority
	Status            Status
	Payload           []byte
	Result            []byte
	Error             string
	Attempts          int
	MaxRetries        int
	VisibilityTimeout time.Duration
	IdempotencyKey    string
	ScheduledAt       *time.Time
	LockedBy          string
	LockedAt          *time.Time
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// JobHistory is one append-only audit row for a Job.
type JobHistory struct {
	ID        int64
	JobID     string
	Status    Status
	Message   string
	WorkerID  string
	CreatedAt time.Time
}

// WorkerHeartbeat records liveness for a single worker process.
type WorkerHeartbeat struct {
	WorkerID      string
	Hostname      string
	Queues        []string
	Concurrency   int
	ActiveJobs    int
	StartedAt     time.Time
	LastHeartbeat time.Time
}
