package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/enqio/enq/internal/intake"
	"github.com/enqio/enq/internal/queue"
)

// Handlers bundles the collaborators every route needs.
type Handlers struct {
	intake *intake.Intake
	coord  *queue.Coordinator
	health *HealthChecker
	logger *zap.Logger
}

func NewHandlers(in *intake.Intake, coord *queue.Coordinator, health *HealthChecker, logger *zap.Logger) *Handlers {
	return &Handlers{intake: in, coord: coord, health: health, logger: logger}
}

// NewRouter wires the HTTP surface. Admin routes (create, retry, cancel)
// sit behind AdminAuth; /health, /metrics, and the complete/read routes
// do not.
func NewRouter(h *Handlers, adminTokenHash string) http.Handler {
	rtr := chi.NewRouter()

	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.RealIP)
	rtr.Use(middleware.Recoverer)
	rtr.Use(loggingMiddleware(h.logger))
	rtr.Use(middleware.Timeout(30 * time.Second))

	rtr.Get("/health", h.handleHealth)
	rtr.Handle("/metrics", promhttp.Handler())

	admin := AdminAuth(adminTokenHash)

	rtr.Group(func(r chi.Router) {
		r.With(admin).Post("/jobs", h.handleCreateJob)
		r.Get("/jobs/{id}", h.handleGetJob)
		r.Get("/jobs", h.handleListJobs)
		r.With(admin).Post("/jobs/{id}/retry", h.handleRetryJob)
		r.With(admin).Delete("/jobs/{id}", h.handleCancelJob)
		r.Post("/jobs/{id}/complete", h.handleCompleteJob)
		r.Get("/queues/{name}/stats", h.handleQueueStats)
	})

	return rtr
}
