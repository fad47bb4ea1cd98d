package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/enqio/enq/internal/queue"
	"github.com/enqio/enq/internal/storage"
)

// HealthChecker implements GET /health: pings the durable and
// coordination stores and reports per-dependency latency.
type HealthChecker struct {
	store *storage.Store
	coord *queue.Coordinator
}

func NewHealthChecker(store *storage.Store, coord *queue.Coordinator) *HealthChecker {
	return &HealthChecker{store: store, coord: coord}
}

type checkResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

func (h *HealthChecker) check(ctx context.Context) (bool, checkResult, checkResult) {
	dbStart := time.Now()
	dbErr := h.store.Ping(ctx)
	db := checkResult{Status: "ok", LatencyMS: time.Since(dbStart).Milliseconds()}
	if dbErr != nil {
		db.Status = "error"
	}

	coordStart := time.Now()
	coordErr := h.coord.Ping(ctx)
	coord := checkResult{Status: "ok", LatencyMS: time.Since(coordStart).Milliseconds()}
	if coordErr != nil {
		coord.Status = "error"
	}

	return dbErr == nil && coordErr == nil, db, coord
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthy, db, coord := h.health.check(ctx)

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, struct {
		Status string `json:"status"`
		Checks struct {
			DB           checkResult `json:"db"`
			Coordination checkResult `json:"coordination"`
		} `json:"checks"`
	}{
		Status: overall,
		Checks: struct {
			DB           checkResult `json:"db"`
			Coordination checkResult `json:"coordination"`
		}{DB: db, Coordination: coord},
	})
}
