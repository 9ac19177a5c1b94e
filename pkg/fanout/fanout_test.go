package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/mock"
)

// countingBackend records the peak number of concurrent GetJob calls.
type countingBackend struct {
	core.Backend

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (b *countingBackend) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	b.mu.Lock()
	b.inFlight++
	b.peak = max(b.peak, b.inFlight)
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()
	return b.Backend.GetJob(ctx, jobID)
}

func seededStore(t *testing.T, opts ...mock.Option) *mock.Store {
	t.Helper()
	s := mock.NewStore(opts...)
	require.NoError(t, s.Seed())
	return s
}

func fast() Option { return WithInterval(5 * time.Millisecond) }

func TestWatchAll_CollectAll(t *testing.T) {
	store := seededStore(t)
	ids := []string{mock.DemoJobID, mock.FailedJobID, mock.LargeJobID}

	results, err := WatchAll(context.Background(), store, ids, fast())
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, ids[i], r.JobID)
	}
	assert.Len(t, results[0].Items, 3)
	assert.Equal(t, core.StatusDone, results[0].Job.Status)

	var failed *core.JobFailedError
	require.True(t, errors.As(results[1].Err, &failed))
	assert.Equal(t, "Missing required column: name", failed.Message)

	assert.Len(t, results[2].Items, 100)
	assert.True(t, results[2].HasMore)

	done, bad := Partition(results)
	assert.Len(t, done, 2)
	assert.Len(t, bad, 1)
	assert.Equal(t, 2, SuccessCount(results))
	assert.False(t, AllSucceeded(results))
}

func TestWatchAll_LoadAll(t *testing.T) {
	store := seededStore(t)

	results, err := WatchAll(context.Background(), store, []string{mock.LargeJobID}, fast(), LoadAll(), WithPageSize(100))
	require.NoError(t, err)
	assert.Len(t, results[0].Items, 250)
	assert.False(t, results[0].HasMore)
	assert.True(t, AllSucceeded(results))
}

func TestWatchAll_FailFast(t *testing.T) {
	store := seededStore(t, mock.WithPhase(time.Hour))
	pending := store.Submit([]mock.Record{{Name: "Jane Doe"}})

	results, err := WatchAll(context.Background(), store, []string{mock.FailedJobID, pending}, fast(), FailFast())

	var fanErr *Error
	require.ErrorAs(t, err, &fanErr)
	assert.Equal(t, StrategyFailFast, fanErr.Strategy)
	assert.Equal(t, 2, fanErr.TotalCount)
	assert.Equal(t, 2, fanErr.FailedCount, "the pending job is cancelled")
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}

func TestWatchAll_Threshold(t *testing.T) {
	store := seededStore(t)
	ids := []string{mock.DemoJobID, mock.LargeJobID, mock.FailedJobID}

	_, err := WatchAll(context.Background(), store, ids, fast(), Threshold(0.5))
	assert.NoError(t, err)

	_, err = WatchAll(context.Background(), store, ids, fast(), Threshold(0.9))
	var fanErr *Error
	require.ErrorAs(t, err, &fanErr)
	assert.Equal(t, 1, fanErr.FailedCount)
	assert.Equal(t, mock.FailedJobID, fanErr.Failures[0].JobID)
}

func TestWatchAll_Timeout(t *testing.T) {
	store := seededStore(t, mock.WithPhase(time.Hour))
	pending := store.Submit([]mock.Record{{Name: "Jane Doe"}})

	results, err := WatchAll(context.Background(), store, []string{pending}, fast(), WithTimeout(50*time.Millisecond))
	require.NoError(t, err, "collect all reports failures in results")
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	require.NotNil(t, results[0].Job)
	assert.Equal(t, core.StatusQueued, results[0].Job.Status)
}

func TestWatchAll_Concurrency(t *testing.T) {
	store := seededStore(t, mock.WithLatency(20*time.Millisecond))
	b := &countingBackend{Backend: store}
	ids := []string{mock.DemoJobID, mock.LargeJobID, mock.FailedJobID, mock.DemoJobID}

	_, err := WatchAll(context.Background(), b, ids, fast(), WithConcurrency(1))
	require.NoError(t, err)
	assert.Equal(t, 1, b.peak)
}

func TestWatchAll_InvalidID(t *testing.T) {
	_, err := WatchAll(context.Background(), seededStore(t), []string{mock.DemoJobID, ""})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	results, err := WatchAll(context.Background(), seededStore(t), nil)
	assert.NoError(t, err)
	assert.Nil(t, results)
}
