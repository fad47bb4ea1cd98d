//go:build integration

package queue

import (
	"context"
	"os"
	"testing"
	"time"

	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/enqio/enq/internal/domain"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	client := r.NewClient(&r.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestCoordinator_EnqueueDequeueAck(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	queueName := "it-" + t.Name()
	jobID := "job-" + t.Name()

	require.NoError(t, c.Enqueue(ctx, queueName, jobID, domain.PriorityHigh))

	id, err := c.Dequeue(ctx, queueName)
	require.NoError(t, err)
	require.Equal(t, jobID, id)

	members, err := c.ProcessingMembers(ctx, queueName)
	require.NoError(t, err)
	require.Contains(t, members, jobID)

	require.NoError(t, c.Ack(ctx, queueName, jobID))

	members, err = c.ProcessingMembers(ctx, queueName)
	require.NoError(t, err)
	require.NotContains(t, members, jobID)
}

func TestCoordinator_DequeueEmptyReturnsNoError(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	id, err := c.Dequeue(ctx, "it-empty-"+t.Name())
	require.NoError(t, err)
	require.Empty(t, id)
}

func TestCoordinator_PromoteDue(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	queueName := "it-promote-" + t.Name()
	jobID := "job-" + t.Name()

	require.NoError(t, c.ScheduleAt(ctx, queueName, jobID, time.Now().Add(-time.Second)))

	ids, err := c.PromoteDue(ctx, queueName, time.Now())
	require.NoError(t, err)
	require.Contains(t, ids, jobID)
}

func TestCoordinator_TrackFailureCountsWithinWindow(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	jobID := "job-" + t.Name()
	window := time.Minute

	n1, err := c.TrackFailure(ctx, jobID, time.Now(), window)
	require.NoError(t, err)
	require.Equal(t, int64(1), n1)

	n2, err := c.TrackFailure(ctx, jobID, time.Now(), window)
	require.NoError(t, err)
	require.Equal(t, int64(2), n2)
}

func TestCoordinator_MoveToDLQAndRemove(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()
	queueName := "it-dlq-" + t.Name()
	jobID := "job-" + t.Name()

	require.NoError(t, c.Enqueue(ctx, queueName, jobID, domain.PriorityLow))
	_, err := c.Dequeue(ctx, queueName)
	require.NoError(t, err)

	require.NoError(t, c.MoveToDLQ(ctx, queueName, jobID))

	ids, err := c.DLQIDs(ctx, queueName, 10)
	require.NoError(t, err)
	require.Contains(t, ids, jobID)

	require.NoError(t, c.RemoveFromDLQ(ctx, queueName, jobID))
	ids, err = c.DLQIDs(ctx, queueName, 10)
	require.NoError(t, err)
	require.NotContains(t, ids, jobID)
}
