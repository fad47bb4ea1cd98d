// Package metrics exposes the Prometheus collectors shared by the api,
// worker, and scheduler processes. The worker and scheduler each register
// against their own registry and serve it on a private /metrics; the api
// process registers against the default registry behind its /metrics
// route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors one process needs. Every process
// registers all of them but only updates the subset its component
// touches; the api process updates JobsEnqueued, through intake.
type Registry struct {
	JobsEnqueued     *prometheus.CounterVec
	JobsDequeued     *prometheus.CounterVec
	JobsCompleted    *prometheus.CounterVec
	JobsFailed       *prometheus.CounterVec
	JobsDeadLettered *prometheus.CounterVec

	QueueDepth *prometheus.GaugeVec

	ClaimLatency    *prometheus.HistogramVec
	HandlerDuration *prometheus.HistogramVec

	InFlight prometheus.Gauge
}

// New constructs and registers a Registry against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enq", Name: "jobs_enqueued_total", Help: "Jobs placed into waiting.",
		}, []string{"queue", "priority"}),
		JobsDequeued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enq", Name: "jobs_dequeued_total", Help: "Jobs popped from waiting and claimed.",
		}, []string{"queue"}),
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enq", Name: "jobs_completed_total", Help: "Jobs that reached COMPLETED.",
		}, []string{"queue"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enq", Name: "jobs_failed_total", Help: "Jobs that reached FAILED (will retry).",
		}, []string{"queue"}),
		JobsDeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enq", Name: "jobs_dead_lettered_total", Help: "Jobs that reached DEAD.",
		}, []string{"queue", "reason"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "enq", Name: "queue_depth", Help: "Sampled depth of a coordination-store index.",
		}, []string{"queue", "index"}),
		ClaimLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "enq", Name: "claim_latency_seconds", Help: "Duration of the durable-store claim update for a successful claim.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "enq", Name: "handler_duration_seconds", Help: "Handler execution wall time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue", "type"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "enq", Name: "jobs_in_flight", Help: "Jobs currently being executed by this worker process.",
		}),
	}

	reg.MustRegister(
		r.JobsEnqueued, r.JobsDequeued, r.JobsCompleted, r.JobsFailed, r.JobsDeadLettered,
		r.QueueDepth, r.ClaimLatency, r.HandlerDuration, r.InFlight,
	)
	return r
}
