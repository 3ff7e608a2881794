package renewal

import (
	"time"

	"seatpool_backend/internal/models"
)

// PoolOverride возвращает end_at живого пула, к которому привязана подписка.
// Мертвый или чужой пул ничего не переопределяет.
func PoolOverride(sub *models.Subscription, pool *models.Pool) (time.Time, bool) {
	if pool == nil || sub.ResourcePoolID == nil || *sub.ResourcePoolID != pool.ID {
		return time.Time{}, false
	}
	if !pool.IsAlive {
		return time.Time{}, false
	}
	return pool.EndAt, true
}

// Effective применяет переопределение пула к уже посчитанной дате
func Effective(sub *models.Subscription, pool *models.Pool, computed time.Time) time.Time {
	if end, ok := PoolOverride(sub, pool); ok {
		return end
	}
	return computed
}

// EffectiveNextRenewal - итоговая дата с учетом ручной даты и пула
func EffectiveNextRenewal(sub *models.Subscription, pool *models.Pool) time.Time {
	return Effective(sub, pool, ComputeNextRenewal(sub))
}

// BaselineNextRenewal - дата без ручной даты, но с учетом пула
func BaselineNextRenewal(sub *models.Subscription, pool *models.Pool) time.Time {
	return Effective(sub, pool, ComputeNextRenewalWithoutCustom(sub))
}
