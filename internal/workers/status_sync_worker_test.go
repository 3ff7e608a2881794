package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"seatpool_backend/internal/services/dto"
)

type fakeSyncService struct {
	mu       sync.Mutex
	calls    int
	deadline bool
	err      error
}

func (f *fakeSyncService) RunSweep(ctx context.Context, _ *gorm.DB) (*dto.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SweepResult{PoolsExpired: 1}, nil
}

func (f *fakeSyncService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnce_AppliesTimeout(t *testing.T) {
	svc := &fakeSyncService{}
	w := NewStatusSyncWorker(nil, svc, "@every 1m", time.Minute)

	w.RunOnce(context.Background())
	assert.Equal(t, 1, svc.Calls())
	assert.True(t, svc.deadline)
}

func TestRunOnce_SkipsCanceledContext(t *testing.T) {
	svc := &fakeSyncService{}
	w := NewStatusSyncWorker(nil, svc, "@every 1m", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.RunOnce(ctx)
	assert.Zero(t, svc.Calls())
}

func TestRunOnce_SweepErrorIsLogged(t *testing.T) {
	svc := &fakeSyncService{err: errors.New("db down")}
	w := NewStatusSyncWorker(nil, svc, "@every 1m", 0)

	assert.NotPanics(t, func() { w.RunOnce(context.Background()) })
	assert.Equal(t, 1, svc.Calls())
}

func TestRun_InvalidSchedule(t *testing.T) {
	w := NewStatusSyncWorker(nil, &fakeSyncService{}, "not a schedule", 0)
	require.Error(t, w.Run(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	w := NewStatusSyncWorker(nil, &fakeSyncService{}, "@every 1h", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
