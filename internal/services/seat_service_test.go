package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool_backend/internal/models"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/internal/testutil"
	"seatpool_backend/pkg/apperrors"
)

func TestAssignNextFreeSeat_FillsPoolInIndexOrder(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 3, testutil.Date(2024, 3, 1))

	assert.Equal(t, 0, pool.UsedSeats)
	assert.Len(t, pool.Seats, 3)

	for i := 1; i <= 3; i++ {
		seat := f.assignEmail(t, pool.ID, fmt.Sprintf("user%d@example.com", i))
		assert.Equal(t, i, seat.SeatIndex)
		assert.Equal(t, models.SeatStatusAssigned, seat.SeatStatus)
		require.NotNil(t, seat.AssignedAt)
	}

	_, err := f.sc.SeatService.AssignNextFreeSeat(f.ctx, f.db, pool.ID, &dto.AssignSeatRequest{Email: ptr("late@example.com")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePoolFull), "got %v", err)

	assert.Equal(t, 3, f.reloadPool(t, pool.ID).UsedSeats)
	f.assertUsedSeatsConsistent(t, pool.ID)
}

func TestAssignNextFreeSeat_ReusesLowestReleasedIndex(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 3, testutil.Date(2024, 3, 1))

	f.assignEmail(t, pool.ID, "a@example.com")
	second := f.assignEmail(t, pool.ID, "b@example.com")
	f.assignEmail(t, pool.ID, "c@example.com")

	require.NoError(t, f.sc.SeatService.ReleaseSeat(f.ctx, f.db, second.ID))

	seat := f.assignEmail(t, pool.ID, "d@example.com")
	assert.Equal(t, 2, seat.SeatIndex)
	assert.Equal(t, "d@example.com", *seat.AssignedEmail)
	f.assertUsedSeatsConsistent(t, pool.ID)
}

func TestAssignNextFreeSeat_ConcurrentCallersGetDistinctSeats(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 5, testutil.Date(2024, 3, 1))

	const callers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seats []string
		full  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@example.com", i)
			seat, err := f.sc.SeatService.AssignNextFreeSeat(f.ctx, f.db, pool.ID, &dto.AssignSeatRequest{Email: &email})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if apperrors.HasCode(err, apperrors.CodePoolFull) {
					full++
				}
				return
			}
			seats = append(seats, seat.ID)
		}(i)
	}
	wg.Wait()

	assert.Len(t, seats, 5)
	assert.Equal(t, callers-5, full)

	unique := make(map[string]struct{}, len(seats))
	for _, id := range seats {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, len(seats), "no seat may be handed out twice")
	f.assertUsedSeatsConsistent(t, pool.ID)
}

func TestAssignSeat_RejectsDoubleAssignment(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))
	seatID := pool.Seats[0].ID

	_, err := f.sc.SeatService.AssignSeat(f.ctx, f.db, seatID, &dto.AssignSeatRequest{Email: ptr("a@example.com")})
	require.NoError(t, err)

	_, err = f.sc.SeatService.AssignSeat(f.ctx, f.db, seatID, &dto.AssignSeatRequest{Email: ptr("b@example.com")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSeatAlreadyAssigned), "got %v", err)

	seats, err := f.sc.SeatService.ListSeats(f.ctx, f.db, pool.ID, models.SeatStatusAssigned)
	require.NoError(t, err)
	require.Len(t, seats, 1)
	assert.Equal(t, "a@example.com", *seats[0].AssignedEmail)
}

func TestAssignSeat_RequiresEmailOrSubscription(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 1, testutil.Date(2024, 3, 1))

	_, err := f.sc.SeatService.AssignSeat(f.ctx, f.db, pool.Seats[0].ID, &dto.AssignSeatRequest{ClientID: ptr("client-1")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Equal(t, 0, f.reloadPool(t, pool.ID).UsedSeats)
}

func TestAssignSeat_RejectsDeadPool(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 1, testutil.Date(2024, 3, 1))
	_, err := f.sc.PoolService.ArchivePool(f.ctx, f.db, pool.ID)
	require.NoError(t, err)

	_, err = f.sc.SeatService.AssignNextFreeSeat(f.ctx, f.db, pool.ID, &dto.AssignSeatRequest{Email: ptr("a@example.com")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestAssignSeat_UnknownSeat(t *testing.T) {
	f := newFixture(t)

	_, err := f.sc.SeatService.AssignSeat(f.ctx, f.db, "missing", &dto.AssignSeatRequest{Email: ptr("a@example.com")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestReserveSeat_SkippedByAssignNext(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))

	reserved, err := f.sc.SeatService.ReserveSeat(f.ctx, f.db, pool.Seats[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatStatusReserved, reserved.SeatStatus)

	seat := f.assignEmail(t, pool.ID, "a@example.com")
	assert.Equal(t, 2, seat.SeatIndex)

	_, err = f.sc.SeatService.ReserveSeat(f.ctx, f.db, pool.Seats[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSeatAlreadyAssigned))

	available, err := f.sc.SeatService.ListAvailableSeats(f.ctx, f.db, pool.ID)
	require.NoError(t, err)
	assert.Empty(t, available)
	f.assertUsedSeatsConsistent(t, pool.ID)
}

func TestReleaseSeat_AvailableSeatIsNoop(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 1, testutil.Date(2024, 3, 1))

	require.NoError(t, f.sc.SeatService.ReleaseSeat(f.ctx, f.db, pool.Seats[0].ID))
	require.NoError(t, f.sc.SeatService.ReleaseSeat(f.ctx, f.db, pool.Seats[0].ID))

	reloaded := f.reloadPool(t, pool.ID)
	assert.Equal(t, 0, reloaded.UsedSeats)
	assert.Nil(t, reloaded.Seats[0].UnassignedAt)
}

func TestReleaseSeat_ClearsSubscriptionLink(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))
	sub := f.createMonthly(t, testutil.Date(2024, 1, 1))

	linked, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID})
	require.NoError(t, err)
	require.NotNil(t, linked.ResourcePoolSeatID)
	seatID := *linked.ResourcePoolSeatID

	require.NoError(t, f.sc.SeatService.ReleaseSeat(f.ctx, f.db, seatID))

	reloaded := f.reloadSub(t, sub.ID)
	assert.Nil(t, reloaded.ResourcePoolID)
	assert.Nil(t, reloaded.ResourcePoolSeatID)
	assert.True(t, testutil.Date(2024, 2, 1).Equal(reloaded.NextRenewalAt), "baseline restored, got %s", reloaded.NextRenewalAt)

	seats, err := f.sc.SeatService.ListSeats(f.ctx, f.db, pool.ID, "")
	require.NoError(t, err)
	for _, s := range seats {
		assert.Equal(t, models.SeatStatusAvailable, s.SeatStatus)
		assert.Nil(t, s.AssignedSubscriptionID)
		assert.Nil(t, s.AssignedEmail)
	}

	events, err := f.repos.Events.FindEventsBySubscription(f.db, sub.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, models.EventUpdated, last.Type)
	action, _ := last.MetadataString(MetaAction)
	assert.Equal(t, ActionPoolUnlinked, action)
	f.assertUsedSeatsConsistent(t, pool.ID)
}

func TestLinkSubscriptionToPool_PinsRenewalToPoolEnd(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))
	sub := f.createMonthly(t, testutil.Date(2024, 1, 1))
	require.True(t, testutil.Date(2024, 2, 1).Equal(sub.NextRenewalAt))

	linked, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID, Email: ptr("a@example.com")})
	require.NoError(t, err)
	assert.Equal(t, pool.ID, *linked.ResourcePoolID)
	assert.True(t, testutil.Date(2024, 3, 1).Equal(linked.NextRenewalAt), "got %s", linked.NextRenewalAt)

	next, err := f.sc.SubscriptionService.ComputeNextRenewal(f.ctx, f.db, sub.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Date(2024, 3, 1).Equal(next.NextRenewalAt))
	assert.True(t, testutil.Date(2024, 2, 1).Equal(next.WithoutCustom))
	require.NotNil(t, next.PoolOverride)

	seat, err := f.repos.Seats.FindSeatByID(f.db, *linked.ResourcePoolSeatID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, *seat.AssignedSubscriptionID)
	assert.Equal(t, "client-1", *seat.AssignedClientID)
	assert.Equal(t, "a@example.com", *seat.AssignedEmail)
}

func TestLinkSubscriptionToPool_SameSeatIsIdempotent(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))
	other := f.createPool(t, 2, testutil.Date(2024, 4, 1))
	sub := f.createMonthly(t, testutil.Date(2024, 1, 1))

	first, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID})
	require.NoError(t, err)

	again, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID, SeatID: first.ResourcePoolSeatID})
	require.NoError(t, err)
	assert.Equal(t, *first.ResourcePoolSeatID, *again.ResourcePoolSeatID)
	assert.Equal(t, 1, f.reloadPool(t, pool.ID).UsedSeats)

	_, err = f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: other.ID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	assert.Equal(t, 0, f.reloadPool(t, other.ID).UsedSeats)
}

func TestLinkSubscriptionToPool_SeatFromAnotherPool(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 1, testutil.Date(2024, 3, 1))
	other := f.createPool(t, 1, testutil.Date(2024, 3, 1))
	sub := f.createMonthly(t, testutil.Date(2024, 1, 1))

	_, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID, SeatID: &other.Seats[0].ID})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUnlinkSubscriptionFromPool(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 1, testutil.Date(2024, 3, 1))
	sub := f.createMonthly(t, testutil.Date(2024, 1, 1))

	_, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, sub.ID, &dto.LinkPoolRequest{PoolID: pool.ID})
	require.NoError(t, err)

	require.NoError(t, f.sc.SeatService.UnlinkSubscriptionFromPool(f.ctx, f.db, sub.ID))
	// Повторный unlink ничего не делает
	require.NoError(t, f.sc.SeatService.UnlinkSubscriptionFromPool(f.ctx, f.db, sub.ID))

	reloaded := f.reloadSub(t, sub.ID)
	assert.False(t, reloaded.IsLinked())
	assert.True(t, testutil.Date(2024, 2, 1).Equal(reloaded.NextRenewalAt))
	assert.Equal(t, 0, f.reloadPool(t, pool.ID).UsedSeats)
	assert.Equal(t, []models.SubscriptionEventType{models.EventCreated, models.EventUpdated, models.EventUpdated}, f.eventTypes(t, sub.ID))
}
