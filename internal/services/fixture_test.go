package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"seatpool_backend/internal/models"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/internal/testutil"
)

type fixture struct {
	ctx   context.Context
	db    *gorm.DB
	clock *testutil.Clock
	repos *Repositories
	sc    *ServiceContainer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(testutil.Date(2024, 1, 15))
	repos := NewRepositories()
	return &fixture{
		ctx:   context.Background(),
		db:    testutil.NewTestDB(t),
		clock: clock,
		repos: repos,
		sc:    NewServiceContainer(repos, clock.Func(), true),
	}
}

func (f *fixture) createPool(t *testing.T, maxSeats int, endAt time.Time) *dto.PoolResponse {
	t.Helper()
	pool, err := f.sc.PoolService.CreatePool(f.ctx, f.db, &dto.CreatePoolRequest{
		Provider: "netflix",
		PoolType: "family",
		Login:    "owner@example.com",
		Password: "secret",
		StartAt:  testutil.Date(2024, 1, 1),
		EndAt:    endAt,
		MaxSeats: maxSeats,
	})
	require.NoError(t, err)
	return pool
}

func (f *fixture) createMonthly(t *testing.T, startedAt time.Time) *dto.SubscriptionResponse {
	t.Helper()
	sub, err := f.sc.SubscriptionService.CreateSubscription(f.ctx, f.db, &dto.CreateSubscriptionRequest{
		ServiceID: "svc-1",
		ClientID:  "client-1",
		StartedAt: &startedAt,
		Strategy:  string(models.RenewalStrategyMonthly),
	})
	require.NoError(t, err)
	return sub
}

func (f *fixture) assignEmail(t *testing.T, poolID, email string) *dto.SeatResponse {
	t.Helper()
	seat, err := f.sc.SeatService.AssignNextFreeSeat(f.ctx, f.db, poolID, &dto.AssignSeatRequest{Email: &email})
	require.NoError(t, err)
	return seat
}

func (f *fixture) reloadPool(t *testing.T, poolID string) *models.Pool {
	t.Helper()
	pool, err := f.repos.Pools.FindPoolWithSeats(f.db, poolID)
	require.NoError(t, err)
	return pool
}

func (f *fixture) reloadSub(t *testing.T, subID string) *models.Subscription {
	t.Helper()
	sub, err := f.repos.Subscriptions.FindSubscriptionByID(f.db, subID)
	require.NoError(t, err)
	return sub
}

func (f *fixture) eventTypes(t *testing.T, subID string) []models.SubscriptionEventType {
	t.Helper()
	events, err := f.repos.Events.FindEventsBySubscription(f.db, subID)
	require.NoError(t, err)
	types := make([]models.SubscriptionEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

// assertUsedSeatsConsistent - used_seats совпадает с числом занятых мест
func (f *fixture) assertUsedSeatsConsistent(t *testing.T, poolID string) {
	t.Helper()
	pool := f.reloadPool(t, poolID)
	assigned := 0
	for _, s := range pool.Seats {
		if s.SeatStatus == models.SeatStatusAssigned {
			assigned++
		}
	}
	require.Equal(t, assigned, pool.UsedSeats, "used_seats must match assigned seat rows")
}

func ptr[T any](v T) *T {
	return &v
}
