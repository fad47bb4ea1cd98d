//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/enqio/enq/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool)
}

func TestStore_InsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, idempotent, err := s.Insert(ctx, InsertParams{
		ID:                "it-" + t.Name(),
		Queue:             "orders",
		Type:              "send-email",
		Priority:          domain.PriorityMedium,
		Payload:           []byte(`{"to":"a@example.com"}`),
		MaxRetries:        3,
		VisibilityTimeout: 30 * time.Second,
	})
	require.NoError(t, err)
	require.False(t, idempotent)
	require.Equal(t, domain.StatusPending, job.Status)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)
}

func TestStore_InsertIdempotentReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "idem-" + t.Name()

	params := InsertParams{
		ID:                "it-a-" + t.Name(),
		Queue:             "orders",
		Type:              "send-email",
		Priority:          domain.PriorityHigh,
		Payload:           []byte(`{}`),
		MaxRetries:        3,
		VisibilityTimeout: 30 * time.Second,
		IdempotencyKey:    key,
	}
	first, idempotent, err := s.Insert(ctx, params)
	require.NoError(t, err)
	require.False(t, idempotent)

	params.ID = "it-b-" + t.Name()
	second, idempotent, err := s.Insert(ctx, params)
	require.NoError(t, err)
	require.True(t, idempotent)
	require.Equal(t, first.ID, second.ID)
}

func TestStore_ClaimConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.Insert(ctx, InsertParams{
		ID:                "it-claim-" + t.Name(),
		Queue:             "orders",
		Type:              "send-email",
		Priority:          domain.PriorityLow,
		Payload:           []byte(`{}`),
		MaxRetries:        3,
		VisibilityTimeout: 30 * time.Second,
	})
	require.NoError(t, err)

	_, err = s.Claim(ctx, job.ID, "worker-1")
	require.NoError(t, err)

	_, err = s.Claim(ctx, job.ID, "worker-2")
	require.ErrorIs(t, err, domain.ErrConflict)
}
