package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool_backend/internal/models"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/internal/testutil"
)

func TestRunSweep_ExpiresPoolAndMarksLinkedSubscription(t *testing.T) {
	f := newFixture(t)
	pool := f.createPool(t, 2, testutil.Date(2024, 3, 1))
	linked := f.createMonthly(t, testutil.Date(2024, 1, 15))
	paused := f.createMonthly(t, testutil.Date(2024, 1, 15))
	for _, id := range []string{linked.ID, paused.ID} {
		_, err := f.sc.SeatService.LinkSubscriptionToPool(f.ctx, f.db, id, &dto.LinkPoolRequest{PoolID: pool.ID})
		require.NoError(t, err)
	}
	_, err := f.sc.SubscriptionService.Pause(f.ctx, f.db, paused.ID)
	require.NoError(t, err)

	f.clock.Now = testutil.Date(2024, 3, 2)
	result, err := f.sc.StatusSyncService.RunSweep(f.ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PoolsExpired)
	assert.Equal(t, 1, result.SubscriptionsMarkedOverdue)
	assert.Zero(t, result.Failures)

	expired := f.reloadPool(t, pool.ID)
	assert.Equal(t, models.PoolStatusExpired, expired.Status)
	assert.False(t, expired.IsAlive)

	sub := f.reloadSub(t, linked.ID)
	assert.Equal(t, models.SubscriptionStatusOverdue, sub.Status)
	require.NotNil(t, sub.OverdueReason)
	assert.Equal(t, models.OverdueReasonPoolDead, *sub.OverdueReason)
	assert.NotNil(t, sub.ResourcePoolSeatID, "seat stays with the subscription")

	assert.Equal(t, models.SubscriptionStatusPaused, f.reloadSub(t, paused.ID).Status)

	// Повторный прогон ничего не меняет
	again, err := f.sc.StatusSyncService.RunSweep(f.ctx, f.db)
	require.NoError(t, err)
	assert.False(t, again.Changed())

	count, err := f.repos.Events.CountEvents(f.db, linked.ID, models.EventOverdue)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRunSweep_RenewalDue(t *testing.T) {
	f := newFixture(t)
	due := f.createMonthly(t, testutil.Date(2024, 1, 15))
	notYet := f.createMonthly(t, testutil.Date(2024, 2, 10))

	f.clock.Now = testutil.Date(2024, 2, 16)
	result, err := f.sc.StatusSyncService.RunSweep(f.ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SubscriptionsMarkedOverdue)

	sub := f.reloadSub(t, due.ID)
	assert.Equal(t, models.SubscriptionStatusOverdue, sub.Status)
	require.NotNil(t, sub.OverdueReason)
	assert.Equal(t, models.OverdueReasonRenewalDue, *sub.OverdueReason)
	assert.Equal(t, models.SubscriptionStatusActive, f.reloadSub(t, notYet.ID).Status)

	events, err := f.repos.Events.FindEventsBySubscription(f.db, due.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, models.EventOverdue, last.Type)
	assert.Equal(t, "sweep", last.Metadata["source"])
	assert.Equal(t, "active", last.Metadata[MetaPreviousStatus])
}

func TestRunSweep_RenewalDueDisabled(t *testing.T) {
	f := newFixture(t)
	sc := NewServiceContainer(f.repos, f.clock.Func(), false)
	sub := f.createMonthly(t, testutil.Date(2024, 1, 15))

	f.clock.Now = testutil.Date(2024, 2, 16)
	result, err := sc.StatusSyncService.RunSweep(f.ctx, f.db)
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Equal(t, models.SubscriptionStatusActive, f.reloadSub(t, sub.ID).Status)
}

func TestMarkOverdue_StaleSnapshotIsSkipped(t *testing.T) {
	f := newFixture(t)
	created := f.createMonthly(t, testutil.Date(2024, 1, 15))

	f.clock.Now = testutil.Date(2024, 2, 16)
	snapshot := f.reloadSub(t, created.ID)

	// Ручное продление между чтением и записью синхронизатора
	_, err := f.sc.SubscriptionService.RenewNow(f.ctx, f.db, created.ID)
	require.NoError(t, err)

	svc := NewStatusSyncService(f.repos.Pools, f.repos.Subscriptions, f.repos.Events, f.clock.Func(), true).(*statusSyncService)
	changed, err := svc.markOverdue(f.ctx, f.db, snapshot, nil, models.OverdueReasonRenewalDue, f.clock.Now)
	require.NoError(t, err)
	assert.False(t, changed)

	sub := f.reloadSub(t, created.ID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 1, sub.IterationsDone)

	count, err := f.repos.Events.CountEvents(f.db, created.ID, models.EventOverdue)
	require.NoError(t, err)
	assert.Zero(t, count)
}
