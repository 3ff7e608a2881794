package models

import "time"

// Seat - одно место внутри пула. Поля назначения заполняются и очищаются вместе.
type Seat struct {
	BaseModel
	PoolID                 string     `gorm:"size:36;not null;uniqueIndex:idx_pool_seat_index" json:"pool_id"`
	SeatIndex              int        `gorm:"not null;uniqueIndex:idx_pool_seat_index" json:"seat_index"`
	SeatStatus             SeatStatus `gorm:"size:20;not null;default:'available';index" json:"seat_status"`
	AssignedEmail          *string    `json:"assigned_email,omitempty"`
	AssignedClientID       *string    `gorm:"size:64" json:"assigned_client_id,omitempty"`
	AssignedSubscriptionID *string    `gorm:"size:36;index" json:"assigned_subscription_id,omitempty"`
	AssignedAt             *time.Time `json:"assigned_at,omitempty"`
	UnassignedAt           *time.Time `json:"unassigned_at,omitempty"`
}

func (Seat) TableName() string {
	return "pool_seats"
}

func (s *Seat) IsAvailable() bool {
	return s.SeatStatus == SeatStatusAvailable
}
