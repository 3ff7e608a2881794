package dto

import (
	"time"

	"seatpool_backend/internal/models"
)

// Pool Request DTOs

type CreatePoolRequest struct {
	Provider string    `json:"provider" validate:"required,max=100"`
	PoolType string    `json:"pool_type" validate:"required,max=50"`
	Login    string    `json:"login" validate:"max=255"`
	Password string    `json:"password" validate:"max=255"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required"`
	MaxSeats int       `json:"max_seats" validate:"required,min=1,max=10000"`
	Notes    string    `json:"notes"`
}

type UpdatePoolRequest struct {
	Provider *string    `json:"provider,omitempty" validate:"omitempty,max=100"`
	PoolType *string    `json:"pool_type,omitempty" validate:"omitempty,max=50"`
	Login    *string    `json:"login,omitempty" validate:"omitempty,max=255"`
	Password *string    `json:"password,omitempty" validate:"omitempty,max=255"`
	StartAt  *time.Time `json:"start_at,omitempty"`
	EndAt    *time.Time `json:"end_at,omitempty"`
	Status   *string    `json:"status,omitempty" validate:"omitempty,is-pool-status"`
	IsAlive  *bool      `json:"is_alive,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

type ResizePoolRequest struct {
	MaxSeats int `json:"max_seats" validate:"required,min=1,max=10000"`
}

type PoolListQuery struct {
	Status   string `form:"status" json:"status" validate:"omitempty,is-pool-status"`
	Provider string `form:"provider" json:"provider"`
	IsAlive  *bool  `form:"is_alive" json:"is_alive"`
}

// Pool Response DTOs

type PoolResponse struct {
	ID        string            `json:"id"`
	Provider  string            `json:"provider"`
	PoolType  string            `json:"pool_type"`
	Login     string            `json:"login"`
	StartAt   time.Time         `json:"start_at"`
	EndAt     time.Time         `json:"end_at"`
	MaxSeats  int               `json:"max_seats"`
	UsedSeats int               `json:"used_seats"`
	FreeSeats int               `json:"free_seats"`
	Status    models.PoolStatus `json:"status"`
	IsAlive   bool              `json:"is_alive"`
	Notes     string            `json:"notes,omitempty"`
	Seats     []*SeatResponse   `json:"seats,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type PoolListResponse struct {
	Pools    []*PoolResponse `json:"pools"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// IntegrityReport - результат проверки инвариантов пула
type IntegrityReport struct {
	PoolID              string   `json:"pool_id"`
	UsedSeatsStored     int      `json:"used_seats_stored"`
	AssignedSeatsActual int      `json:"assigned_seats_actual"`
	OrphanedSeats       []string `json:"orphaned_seats,omitempty"`
	OrphanedLinks       []string `json:"orphaned_subscriptions,omitempty"`
	IncompleteSeats     []string `json:"incomplete_seats,omitempty"`
	Consistent          bool     `json:"consistent"`
}

func NewPoolResponse(p *models.Pool) *PoolResponse {
	resp := &PoolResponse{
		ID:        p.ID,
		Provider:  p.Provider,
		PoolType:  p.PoolType,
		Login:     p.Login,
		StartAt:   p.StartAt,
		EndAt:     p.EndAt,
		MaxSeats:  p.MaxSeats,
		UsedSeats: p.UsedSeats,
		FreeSeats: p.FreeSeats(),
		Status:    p.Status,
		IsAlive:   p.IsAlive,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for i := range p.Seats {
		resp.Seats = append(resp.Seats, NewSeatResponse(&p.Seats[i]))
	}
	return resp
}
