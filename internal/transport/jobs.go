package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enqio/enq/internal/domain"
	"github.com/enqio/enq/internal/intake"
	"github.com/enqio/enq/internal/storage"
)

// jobView is the wire shape of a domain.Job.
type jobView struct {
	ID                string          `json:"id"`
	Queue             string          `json:"queue"`
	Type              string          `json:"type"`
	Priority          domain.Priority `json:"priority"`
	Status            domain.Status   `json:"status"`
	Payload           json.RawMessage `json:"payload"`
	Result            json.RawMessage `json:"result,omitempty"`
	Error             string          `json:"error,omitempty"`
	Attempts          int             `json:"attempts"`
	MaxRetries        int             `json:"maxRetries"`
	VisibilityTimeout int64           `json:"visibilityTimeout"`
	IdempotencyKey    string          `json:"idempotencyKey,omitempty"`
	ScheduledAt       *time.Time      `json:"scheduledAt,omitempty"`
	LockedBy          string          `json:"lockedBy,omitempty"`
	LockedAt          *time.Time      `json:"lockedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
}

func toJobView(j *domain.Job) jobView {
	return jobView{
		ID:                j.ID,
		Queue:             j.Queue,
		Type:              j.Type,
		Priority:          j.Priority,
		Status:            j.Status,
		Payload:           j.Payload,
		Result:            j.Result,
		Error:             j.Error,
		Attempts:          j.Attempts,
		MaxRetries:        j.MaxRetries,
		VisibilityTimeout: j.VisibilityTimeout.Milliseconds(),
		IdempotencyKey:    j.IdempotencyKey,
		ScheduledAt:       j.ScheduledAt,
		LockedBy:          j.LockedBy,
		LockedAt:          j.LockedAt,
		CreatedAt:         j.CreatedAt,
		CompletedAt:       j.CompletedAt,
	}
}

type historyView struct {
	Status    domain.Status `json:"status"`
	Message   string        `json:"message,omitempty"`
	WorkerID  string        `json:"workerId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type createJobRequest struct {
	Queue             string          `json:"queue"`
	Type              string          `json:"type"`
	Priority          domain.Priority `json:"priority"`
	Payload           json.RawMessage `json:"payload"`
	IdempotencyKey    string          `json:"idempotencyKey,omitempty"`
	MaxRetries        *int            `json:"maxRetries,omitempty"`
	ScheduledAt       *time.Time      `json:"scheduledAt,omitempty"`
	VisibilityTimeout *int64          `json:"visibilityTimeout,omitempty"`
}

// handleCreateJob implements POST /jobs.
func (h *Handlers) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError("body", "malformed JSON"))
		return
	}

	input := intake.CreateInput{
		Queue:          req.Queue,
		Type:           req.Type,
		Priority:       req.Priority,
		Payload:        req.Payload,
		IdempotencyKey: req.IdempotencyKey,
		MaxRetries:     req.MaxRetries,
		ScheduledAt:    req.ScheduledAt,
	}
	if req.VisibilityTimeout != nil {
		d := time.Duration(*req.VisibilityTimeout) * time.Millisecond
		input.VisibilityTimeout = &d
	}

	result, err := h.intake.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}
	writeJSON(w, status, struct {
		Job        jobView `json:"job"`
		Idempotent bool    `json:"idempotent,omitempty"`
	}{Job: toJobView(result.Job), Idempotent: result.Idempotent})
}

// handleGetJob implements GET /jobs/{id}.
func (h *Handlers) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, history, err := h.intake.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]historyView, 0, len(history))
	for _, hh := range history {
		views = append(views, historyView{Status: hh.Status, Message: hh.Message, WorkerID: hh.WorkerID, CreatedAt: hh.CreatedAt})
	}
	writeJSON(w, http.StatusOK, struct {
		Job     jobView       `json:"job"`
		History []historyView `json:"history"`
	}{Job: toJobView(job), History: views})
}

// handleListJobs implements GET /jobs?queue=&status=&limit=&offset=.
func (h *Handlers) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	jobs, total, err := h.intake.List(r.Context(), storage.ListFilter{
		Queue:  q.Get("queue"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, toJobView(&jobs[i]))
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	writeJSON(w, http.StatusOK, struct {
		Jobs       []jobView  `json:"jobs"`
		Pagination pagination `json:"pagination"`
	}{Jobs: views, Pagination: pagination{Total: total, Limit: limit, Offset: offset}})
}

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// handleRetryJob implements POST /jobs/{id}/retry.
func (h *Handlers) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.intake.Retry(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Job jobView `json:"job"`
	}{Job: toJobView(job)})
}

// handleCancelJob implements DELETE /jobs/{id}.
func (h *Handlers) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.intake.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Job jobView `json:"job"`
	}{Job: toJobView(job)})
}

// handleCompleteJob implements POST /jobs/{id}/complete.
func (h *Handlers) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.intake.Complete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Job jobView `json:"job"`
	}{Job: toJobView(job)})
}

// handleQueueStats implements GET /queues/{name}/stats: a read-only
// introspection endpoint reporting per-index queue depth.
func (h *Handlers) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	depths, err := h.coord.QueueDepths(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Queue      string `json:"queue"`
		Waiting    int64  `json:"waiting"`
		Processing int64  `json:"processing"`
		Delayed    int64  `json:"delayed"`
		DLQ        int64  `json:"dlq"`
	}{Queue: name, Waiting: depths.Waiting, Processing: depths.Processing, Delayed: depths.Delayed, DLQ: depths.DLQ})
}
