package queue

import (
	"time"

	"github.com/enqio/enq/internal/domain"
)

// score computes the sorted-set member score used to order a queue: class
// weight dominates, enqueue instant (ms since epoch) breaks ties within a
// class. The weight gap (1e13) exceeds any plausible millisecond
// timestamp, so a LOW job enqueued now still sorts after every MEDIUM
// job, however old.
func score(p domain.Priority, at time.Time) float64 {
	return p.Weight() + float64(at.UnixMilli())
}
