package renewal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seatpool_backend/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(i int) *int              { return &i }
func ptrStr(s string) *string        { return &s }

func assertSameTime(t *testing.T, expected, actual time.Time) {
	t.Helper()
	assert.True(t, expected.Equal(actual), "expected %s, got %s", expected, actual)
}

func TestMonthlyFromCycleStartWhenNeverRenewed(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 15),
	}

	assertSameTime(t, date(2024, 2, 15), ComputeNextRenewal(sub))
}

func TestMonthlyUsesLastRenewal(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 15),
		LastRenewalAt:       ptrTime(date(2024, 3, 10)),
	}

	assertSameTime(t, date(2024, 4, 10), ComputeNextRenewal(sub))
}

func TestAddMonthsClampsToEndOfMonth(t *testing.T) {
	cases := []struct {
		name     string
		in       time.Time
		expected time.Time
	}{
		{"leap february", date(2024, 1, 31), date(2024, 2, 29)},
		{"plain february", date(2023, 1, 31), date(2023, 2, 28)},
		{"thirty day month", date(2024, 3, 31), date(2024, 4, 30)},
		{"year rollover", date(2024, 12, 31), date(2025, 1, 31)},
		{"mid month", date(2024, 5, 14), date(2024, 6, 14)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertSameTime(t, tc.expected, AddMonths(tc.in, 1))
		})
	}
}

func TestAddMonthsKeepsClock(t *testing.T) {
	in := time.Date(2024, 1, 31, 13, 45, 10, 0, time.UTC)
	assertSameTime(t, time.Date(2024, 2, 29, 13, 45, 10, 0, time.UTC), AddMonths(in, 1))
}

func TestEveryNDays(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyEveryNDays,
		IntervalDays:        ptrInt(10),
		CurrentCycleStartAt: date(2024, 1, 25),
	}
	assertSameTime(t, date(2024, 2, 4), ComputeNextRenewal(sub))
}

func TestEveryNDaysDefaultsToThirty(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyEveryNDays,
		CurrentCycleStartAt: date(2024, 1, 1),
	}
	assertSameTime(t, date(2024, 1, 31), ComputeNextRenewal(sub))

	sub.IntervalDays = ptrInt(0)
	assertSameTime(t, date(2024, 1, 31), ComputeNextRenewal(sub))
}

func TestCustomDateOnlyHonoredWithCustomMode(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 15),
		CustomNextRenewalAt: ptrTime(date(2024, 2, 1)),
	}

	assertSameTime(t, date(2024, 2, 1), ComputeNextRenewal(sub))
	assertSameTime(t, date(2024, 2, 15), ComputeNextRenewalWithoutCustom(sub))
}

func TestTargetEndCapsFormula(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 15),
		TargetEndAt:         ptrTime(date(2024, 2, 1)),
	}
	assertSameTime(t, date(2024, 2, 1), ComputeNextRenewalWithoutCustom(sub))
}

func TestOnRenewReturnsPatchWithoutMutating(t *testing.T) {
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyEveryNDays,
		IntervalDays:        ptrInt(7),
		CurrentCycleStartAt: date(2024, 1, 1),
		NextRenewalAt:       date(2024, 1, 8),
		CustomNextRenewalAt: ptrTime(date(2024, 1, 20)),
		IterationsDone:      2,
	}
	now := date(2024, 1, 9)

	patch := OnRenew(sub, now)

	assertSameTime(t, now, patch.CurrentCycleStartAt)
	assertSameTime(t, now, patch.LastRenewalAt)
	assertSameTime(t, date(2024, 1, 16), patch.NextRenewalAt)
	assert.Equal(t, 3, patch.IterationsDone)
	assert.True(t, patch.ClearCustom)

	// Исходная подписка не изменилась
	assert.Nil(t, sub.LastRenewalAt)
	assert.NotNil(t, sub.CustomNextRenewalAt)
	assert.Equal(t, 2, sub.IterationsDone)

	patch.Apply(sub)
	assert.Nil(t, sub.CustomNextRenewalAt)
	assert.Equal(t, 3, sub.IterationsDone)
	assertSameTime(t, date(2024, 1, 16), sub.NextRenewalAt)
	assertSameTime(t, now, *sub.LastRenewalAt)
}

func TestLivePoolOverridesComputedDate(t *testing.T) {
	pool := &models.Pool{EndAt: date(2024, 3, 1), IsAlive: true}
	pool.ID = "pool-1"
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 1),
		NextRenewalAt:       date(2024, 2, 1),
		ResourcePoolID:      ptrStr("pool-1"),
		ResourcePoolSeatID:  ptrStr("seat-1"),
	}

	assertSameTime(t, date(2024, 3, 1), EffectiveNextRenewal(sub, pool))

	// Ручная дата не перебивает живой пул
	sub.CustomNextRenewalAt = ptrTime(date(2024, 1, 20))
	assertSameTime(t, date(2024, 3, 1), EffectiveNextRenewal(sub, pool))
}

func TestDeadPoolDoesNotOverride(t *testing.T) {
	pool := &models.Pool{EndAt: date(2024, 3, 1), IsAlive: false}
	pool.ID = "pool-1"
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 1),
		ResourcePoolID:      ptrStr("pool-1"),
	}

	_, ok := PoolOverride(sub, pool)
	assert.False(t, ok)
	assertSameTime(t, date(2024, 2, 1), EffectiveNextRenewal(sub, pool))
}

func TestOverrideIgnoresUnrelatedPool(t *testing.T) {
	pool := &models.Pool{EndAt: date(2024, 3, 1), IsAlive: true}
	pool.ID = "other"
	sub := &models.Subscription{
		Strategy:            models.RenewalStrategyMonthly,
		CurrentCycleStartAt: date(2024, 1, 1),
		ResourcePoolID:      ptrStr("pool-1"),
	}
	assertSameTime(t, date(2024, 2, 1), EffectiveNextRenewal(sub, pool))
	assertSameTime(t, date(2024, 2, 1), BaselineNextRenewal(sub, nil))
}
