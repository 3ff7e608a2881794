package models

import "time"

type Subscription struct {
	BaseModel
	ServiceID           string             `gorm:"size:64;not null;index" json:"service_id"`
	ClientID            string             `gorm:"size:64;not null;index" json:"client_id"`
	StartedAt           time.Time          `gorm:"not null" json:"started_at"`
	CurrentCycleStartAt time.Time          `gorm:"not null" json:"current_cycle_start_at"`
	LastRenewalAt       *time.Time         `json:"last_renewal_at,omitempty"`
	NextRenewalAt       time.Time          `gorm:"not null;index" json:"next_renewal_at"`
	CustomNextRenewalAt *time.Time         `json:"custom_next_renewal_at,omitempty"`
	TargetEndAt         *time.Time         `json:"target_end_at,omitempty"`
	IntervalDays        *int               `json:"interval_days,omitempty"`
	Strategy            RenewalStrategy    `gorm:"size:20;not null" json:"strategy"`
	Status              SubscriptionStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	OverdueReason       *OverdueReason     `gorm:"size:20" json:"overdue_reason,omitempty"`
	IterationsDone      int                `gorm:"not null;default:0" json:"iterations_done"`
	ResourcePoolID      *string            `gorm:"size:36;index" json:"resource_pool_id,omitempty"`
	ResourcePoolSeatID  *string            `gorm:"size:36" json:"resource_pool_seat_id,omitempty"`
	Notes               string             `json:"notes,omitempty"`
	Version             int                `gorm:"not null;default:1" json:"version"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsLinked - привязана ли подписка к месту в пуле
func (s *Subscription) IsLinked() bool {
	return s.ResourcePoolID != nil && s.ResourcePoolSeatID != nil
}
