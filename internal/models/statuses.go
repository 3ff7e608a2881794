package models

type PoolStatus string
type SeatStatus string
type SubscriptionStatus string
type RenewalStrategy string
type OverdueReason string
type SubscriptionEventType string

const (
	PoolStatusActive    PoolStatus = "active"
	PoolStatusPaused    PoolStatus = "paused"
	PoolStatusCompleted PoolStatus = "completed"
	PoolStatusOverdue   PoolStatus = "overdue"
	PoolStatusExpired   PoolStatus = "expired"

	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusAssigned  SeatStatus = "assigned"

	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOverdue   SubscriptionStatus = "overdue"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCompleted SubscriptionStatus = "completed"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
	SubscriptionStatusArchived  SubscriptionStatus = "archived"

	RenewalStrategyMonthly    RenewalStrategy = "MONTHLY"
	RenewalStrategyEveryNDays RenewalStrategy = "EVERY_N_DAYS"

	// Причина просрочки: наступила дата продления или умер пул
	OverdueReasonRenewalDue OverdueReason = "renewal_due"
	OverdueReasonPoolDead   OverdueReason = "pool_dead"

	EventCreated           SubscriptionEventType = "created"
	EventRenewed           SubscriptionEventType = "renewed"
	EventCustomDateSet     SubscriptionEventType = "custom_date_set"
	EventCustomDateCleared SubscriptionEventType = "custom_date_cleared"
	EventCompleted         SubscriptionEventType = "completed"
	EventOverdue           SubscriptionEventType = "overdue"
	EventReverted          SubscriptionEventType = "reverted"
	EventUpdated           SubscriptionEventType = "updated"
	EventArchived          SubscriptionEventType = "archived"
	EventPaused            SubscriptionEventType = "paused"
	EventResumed           SubscriptionEventType = "resumed"
	EventCanceled          SubscriptionEventType = "canceled"
)

// Списки значений для валидации enum'ов
var (
	PoolStatuses = []PoolStatus{
		PoolStatusActive, PoolStatusPaused, PoolStatusCompleted, PoolStatusOverdue, PoolStatusExpired,
	}
	SeatStatuses = []SeatStatus{
		SeatStatusAvailable, SeatStatusReserved, SeatStatusAssigned,
	}
	SubscriptionStatuses = []SubscriptionStatus{
		SubscriptionStatusActive, SubscriptionStatusOverdue, SubscriptionStatusPaused,
		SubscriptionStatusCompleted, SubscriptionStatusCanceled, SubscriptionStatusArchived,
	}
	RenewalStrategies = []RenewalStrategy{
		RenewalStrategyMonthly, RenewalStrategyEveryNDays,
	}
)

func (s PoolStatus) Valid() bool {
	for _, v := range PoolStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s SeatStatus) Valid() bool {
	for _, v := range SeatStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s SubscriptionStatus) Valid() bool {
	for _, v := range SubscriptionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s RenewalStrategy) Valid() bool {
	for _, v := range RenewalStrategies {
		if v == s {
			return true
		}
	}
	return false
}
