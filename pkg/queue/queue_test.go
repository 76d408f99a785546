package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*miniredis.Miniredis, *Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewQueue(client, nil)
}

func TestQueue_EnqueueDequeueBroadcast(t *testing.T) {
	_, q := setupTestQueue(t)
	ctx := context.Background()
	admin := uuid.New()

	id, err := q.EnqueueBroadcast(ctx, BroadcastPayload{Channel: "email", RequestedBy: admin})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeBroadcast, job.Type)

	var p BroadcastPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, "email", p.Channel)
	assert.Equal(t, admin, p.RequestedBy)
}

func TestQueue_DequeueSkipsGarbage(t *testing.T) {
	mr, q := setupTestQueue(t)
	_, err := mr.Push(QueueBroadcasts, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestQueue_RetryThenDeadLetter(t *testing.T) {
	mr, q := setupTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "job-1", Type: JobTypeBroadcast}
	cause := errors.New("lock busy")

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job, cause))
		assert.Equal(t, i, job.Attempt)
	}
	requeued, err := mr.List(QueueBroadcasts)
	require.NoError(t, err)
	assert.Len(t, requeued, MaxRetries-1)

	require.NoError(t, q.Retry(ctx, job, cause))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	require.Len(t, dlq, 1)

	var parked Job
	require.NoError(t, json.Unmarshal([]byte(dlq[0]), &parked))
	assert.Equal(t, MaxRetries, parked.Attempt)
	assert.Equal(t, "lock busy", parked.LastError)
}
