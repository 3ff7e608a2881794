package renewal

import (
	"time"

	"seatpool_backend/internal/models"
)

// Base - от чего считается следующая дата: последнее продление или начало цикла
func Base(sub *models.Subscription) time.Time {
	if sub.LastRenewalAt != nil {
		return *sub.LastRenewalAt
	}
	return sub.CurrentCycleStartAt
}

// ComputeNextRenewal учитывает ручную дату, если она задана
func ComputeNextRenewal(sub *models.Subscription) time.Time {
	if sub.CustomNextRenewalAt != nil {
		return *sub.CustomNextRenewalAt
	}
	return ComputeNextRenewalWithoutCustom(sub)
}

// ComputeNextRenewalWithoutCustom всегда применяет формулу стратегии
func ComputeNextRenewalWithoutCustom(sub *models.Subscription) time.Time {
	return ComputeFrom(sub, Base(sub))
}

// ComputeFrom применяет формулу от явной базы и ограничивает результат TargetEndAt
func ComputeFrom(sub *models.Subscription, base time.Time) time.Time {
	next := StrategyFor(sub).Next(base)
	if sub.TargetEndAt != nil && next.After(*sub.TargetEndAt) {
		return *sub.TargetEndAt
	}
	return next
}

// RenewPatch - изменения подписки при продлении. Применяется вызывающей стороной.
type RenewPatch struct {
	CurrentCycleStartAt time.Time
	LastRenewalAt       time.Time
	NextRenewalAt       time.Time
	IterationsDone      int
	ClearCustom         bool
}

// OnRenew считает патч продления на момент now, подписку не меняет
func OnRenew(sub *models.Subscription, now time.Time) RenewPatch {
	next := *sub
	next.LastRenewalAt = &now
	next.CurrentCycleStartAt = now
	next.CustomNextRenewalAt = nil

	return RenewPatch{
		CurrentCycleStartAt: now,
		LastRenewalAt:       now,
		NextRenewalAt:       ComputeNextRenewalWithoutCustom(&next),
		IterationsDone:      sub.IterationsDone + 1,
		ClearCustom:         true,
	}
}

// Apply переносит патч в подписку
func (p RenewPatch) Apply(sub *models.Subscription) {
	last := p.LastRenewalAt
	sub.CurrentCycleStartAt = p.CurrentCycleStartAt
	sub.LastRenewalAt = &last
	sub.NextRenewalAt = p.NextRenewalAt
	sub.IterationsDone = p.IterationsDone
	if p.ClearCustom {
		sub.CustomNextRenewalAt = nil
	}
}
