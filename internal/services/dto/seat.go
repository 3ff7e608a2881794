package dto

import (
	"time"

	"seatpool_backend/internal/models"
)

// AssignSeatRequest - нужен email или subscription_id (или оба)
type AssignSeatRequest struct {
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	ClientID       *string `json:"client_id,omitempty" validate:"omitempty,max=64"`
	SubscriptionID *string `json:"subscription_id,omitempty" validate:"omitempty,max=36"`
}

type SeatListQuery struct {
	Status string `form:"status" json:"status" validate:"omitempty,is-seat-status"`
}

type SeatResponse struct {
	ID                     string            `json:"id"`
	PoolID                 string            `json:"pool_id"`
	SeatIndex              int               `json:"seat_index"`
	SeatStatus             models.SeatStatus `json:"seat_status"`
	AssignedEmail          *string           `json:"assigned_email,omitempty"`
	AssignedClientID       *string           `json:"assigned_client_id,omitempty"`
	AssignedSubscriptionID *string           `json:"assigned_subscription_id,omitempty"`
	AssignedAt             *time.Time        `json:"assigned_at,omitempty"`
	UnassignedAt           *time.Time        `json:"unassigned_at,omitempty"`
}

func NewSeatResponse(s *models.Seat) *SeatResponse {
	return &SeatResponse{
		ID:                     s.ID,
		PoolID:                 s.PoolID,
		SeatIndex:              s.SeatIndex,
		SeatStatus:             s.SeatStatus,
		AssignedEmail:          s.AssignedEmail,
		AssignedClientID:       s.AssignedClientID,
		AssignedSubscriptionID: s.AssignedSubscriptionID,
		AssignedAt:             s.AssignedAt,
		UnassignedAt:           s.UnassignedAt,
	}
}

func NewSeatResponses(seats []models.Seat) []*SeatResponse {
	out := make([]*SeatResponse, 0, len(seats))
	for i := range seats {
		out = append(out, NewSeatResponse(&seats[i]))
	}
	return out
}
