// Package intake implements job intake: create, retry, cancel, and
// complete, plus the validation and initial-placement logic that decides
// whether a new job lands in waiting(Q) or delayed(Q).
package intake

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/enqio/enq/internal/domain"
	"github.com/enqio/enq/internal/metrics"
	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
)

const (
	minVisibilityTimeout = 5 * time.Second
	maxVisibilityTimeout = 60 * time.Minute
)

type Intake struct {
	store             *storage.Store
	coord             *queue.Coordinator
	defaultMaxRetries int
	defaultVisibility time.Duration
	metrics           *metrics.Registry
}

func New(store *storage.Store, coord *queue.Coordinator, defaultMaxRetries int, defaultVisibility time.Duration, m *metrics.Registry) *Intake {
	return &Intake{
		store:             store,
		coord:             coord,
		defaultMaxRetries: defaultMaxRetries,
		defaultVisibility: defaultVisibility,
		metrics:           m,
	}
}

// CreateInput is the validated shape of POST /jobs.
type CreateInput struct {
	Queue             string
	Type              string
	Priority          domain.Priority
	Payload           json.RawMessage
	IdempotencyKey    string
	MaxRetries        *int
	ScheduledAt       *time.Time
	VisibilityTimeout *time.Duration
}

// CreateResult carries the job plus the idempotent flag the HTTP layer
// needs to pick between 201 and 200.
type CreateResult struct {
	Job        *domain.Job
	Idempotent bool
}

// Create validates input, persists the job, and places it into waiting(Q)
// or delayed(Q).
func (in *Intake) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	maxRetries := in.defaultMaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}
	visibility := in.defaultVisibility
	if input.VisibilityTimeout != nil {
		visibility = *input.VisibilityTimeout
	}

	job, idempotent, err := in.store.Insert(ctx, storage.InsertParams{
		ID:                uuid.NewString(),
		Queue:             input.Queue,
		Type:              input.Type,
		Priority:          input.Priority,
		Payload:           []byte(input.Payload),
		MaxRetries:        maxRetries,
		VisibilityTimeout: visibility,
		IdempotencyKey:    input.IdempotencyKey,
		ScheduledAt:       input.ScheduledAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "intake: create")
	}
	if idempotent {
		return &CreateResult{Job: job, Idempotent: true}, nil
	}

	if err := in.store.AppendHistory(ctx, job.ID, job.Status, "Job created", ""); err != nil {
		return nil, errors.Wrap(err, "intake: append creation history")
	}

	if job.Status == domain.StatusScheduled {
		if err := in.coord.ScheduleAt(ctx, job.Queue, job.ID, *job.ScheduledAt); err != nil {
			return nil, errors.Wrap(err, "intake: schedule delayed placement")
		}
	} else {
		if err := in.coord.Enqueue(ctx, job.Queue, job.ID, job.Priority); err != nil {
			return nil, errors.Wrap(err, "intake: enqueue placement")
		}
		if in.metrics != nil {
			in.metrics.JobsEnqueued.WithLabelValues(job.Queue, string(job.Priority)).Inc()
		}
	}

	return &CreateResult{Job: job}, nil
}

// Retry re-opens a FAILED, DEAD, or CANCELLED job; any other status is a
// conflict.
func (in *Intake) Retry(ctx context.Context, id string) (*domain.Job, error) {
	existing, err := in.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := in.store.Retry(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := in.store.AppendHistory(ctx, id, domain.StatusPending, "Job retried", ""); err != nil {
		return nil, errors.Wrap(err, "intake: append retry history")
	}

	if existing.Status == domain.StatusDead {
		if err := in.coord.RemoveFromDLQ(ctx, job.Queue, id); err != nil {
			return nil, errors.Wrap(err, "intake: remove from dlq on retry")
		}
	}

	if err := in.coord.Enqueue(ctx, job.Queue, id, job.Priority); err != nil {
		return nil, errors.Wrap(err, "intake: enqueue on retry")
	}
	if in.metrics != nil {
		in.metrics.JobsEnqueued.WithLabelValues(job.Queue, string(job.Priority)).Inc()
	}
	return job, nil
}

// Cancel cancels a PENDING or SCHEDULED job. It removes the id from
// waiting(Q) if the job was PENDING, or from delayed(Q) if it was
// SCHEDULED, so a cancelled scheduled job does not linger in the delayed
// index until promotion silently drops it.
func (in *Intake) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	before, err := in.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := in.store.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := in.store.AppendHistory(ctx, id, domain.StatusCancelled, "Job cancelled", ""); err != nil {
		return nil, errors.Wrap(err, "intake: append cancel history")
	}

	switch before.Status {
	case domain.StatusPending:
		if err := in.coord.RemoveWaiting(ctx, job.Queue, id); err != nil {
			return nil, errors.Wrap(err, "intake: remove waiting on cancel")
		}
	case domain.StatusScheduled:
		if err := in.coord.RemoveDelayed(ctx, job.Queue, id); err != nil {
			return nil, errors.Wrap(err, "intake: remove delayed on cancel")
		}
	}
	return job, nil
}

// Complete is the external finalization hand-off, for callers that
// signal success out-of-band rather than by a worker handler returning.
func (in *Intake) Complete(ctx context.Context, id string) (*domain.Job, error) {
	job, err := in.store.CompleteExternal(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.store.AppendHistory(ctx, id, domain.StatusCompleted, "Completed externally", ""); err != nil {
		return nil, errors.Wrap(err, "intake: append complete history")
	}
	if err := in.coord.Ack(ctx, job.Queue, id); err != nil {
		return nil, errors.Wrap(err, "intake: ack on external complete")
	}
	return job, nil
}

// Get and List are thin read paths over the durable store, for GET
// /jobs/{id} and GET /jobs.
func (in *Intake) Get(ctx context.Context, id string) (*domain.Job, []domain.JobHistory, error) {
	job, err := in.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history, err := in.store.History(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return job, history, nil
}

func (in *Intake) List(ctx context.Context, f storage.ListFilter) ([]domain.Job, int, error) {
	return in.store.List(ctx, f)
}

func validateCreate(input CreateInput) error {
	if l := len(input.Queue); l < 1 || l > 100 {
		return domain.NewValidationError("queue", "must be 1-100 characters")
	}
	if l := len(input.Type); l < 1 || l > 200 {
		return domain.NewValidationError("type", "must be 1-200 characters")
	}
	if !input.Priority.Valid() {
		return domain.NewValidationError("priority", "must be HIGH, MEDIUM, or LOW")
	}
	if len(input.Payload) == 0 || !json.Valid(input.Payload) {
		return domain.NewValidationError("payload", "must be a structured (JSON) value")
	}
	if input.MaxRetries != nil && *input.MaxRetries < 0 {
		return domain.NewValidationError("maxRetries", "must be >= 0")
	}
	if input.VisibilityTimeout != nil {
		if *input.VisibilityTimeout < minVisibilityTimeout || *input.VisibilityTimeout > maxVisibilityTimeout {
			return domain.NewValidationError("visibilityTimeout", "must be between 5000 and 3600000 ms")
		}
	}
	return nil
}
