package dto

import (
	"time"

	"seatpool_backend/internal/models"
)

// Subscription Request DTOs

type CreateSubscriptionRequest struct {
	ServiceID    string     `json:"service_id" validate:"required,max=64"`
	ClientID     string     `json:"client_id" validate:"required,max=64"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	Strategy     string     `json:"strategy" validate:"required,is-renewal-strategy"`
	IntervalDays *int       `json:"interval_days,omitempty" validate:"omitempty,min=1,max=3650"`
	TargetEndAt  *time.Time `json:"target_end_at,omitempty"`
	Notes        string     `json:"notes"`

	// Необязательная привязка к пулу при создании
	ResourcePoolID     *string `json:"resource_pool_id,omitempty" validate:"omitempty,max=36"`
	ResourcePoolSeatID *string `json:"resource_pool_seat_id,omitempty" validate:"omitempty,max=36"`
	AssignedEmail      *string `json:"assigned_email,omitempty" validate:"omitempty,email"`
}

type SetCustomRenewalDateRequest struct {
	Date time.Time `json:"date" validate:"required"`
}

type LinkPoolRequest struct {
	PoolID string  `json:"pool_id" validate:"required,max=36"`
	SeatID *string `json:"seat_id,omitempty" validate:"omitempty,max=36"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
}

type SubscriptionListQuery struct {
	Status    string `form:"status" json:"status" validate:"omitempty,is-subscription-status"`
	ClientID  string `form:"client_id" json:"client_id"`
	ServiceID string `form:"service_id" json:"service_id"`
	PoolID    string `form:"pool_id" json:"pool_id"`
}

// Subscription Response DTOs

type SubscriptionResponse struct {
	ID                  string                    `json:"id"`
	ServiceID           string                    `json:"service_id"`
	ClientID            string                    `json:"client_id"`
	StartedAt           time.Time                 `json:"started_at"`
	CurrentCycleStartAt time.Time                 `json:"current_cycle_start_at"`
	LastRenewalAt       *time.Time                `json:"last_renewal_at,omitempty"`
	NextRenewalAt       time.Time                 `json:"next_renewal_at"`
	CustomNextRenewalAt *time.Time                `json:"custom_next_renewal_at,omitempty"`
	TargetEndAt         *time.Time                `json:"target_end_at,omitempty"`
	IntervalDays        *int                      `json:"interval_days,omitempty"`
	Strategy            models.RenewalStrategy    `json:"strategy"`
	Status              models.SubscriptionStatus `json:"status"`
	OverdueReason       *models.OverdueReason     `json:"overdue_reason,omitempty"`
	IterationsDone      int                       `json:"iterations_done"`
	ResourcePoolID      *string                   `json:"resource_pool_id,omitempty"`
	ResourcePoolSeatID  *string                   `json:"resource_pool_seat_id,omitempty"`
	Notes               string                    `json:"notes,omitempty"`
	Version             int                       `json:"version"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

type SubscriptionListResponse struct {
	Subscriptions []*SubscriptionResponse `json:"subscriptions"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
}

// NextRenewalResponse - все варианты расчета даты продления
type NextRenewalResponse struct {
	SubscriptionID string     `json:"subscription_id"`
	NextRenewalAt  time.Time  `json:"next_renewal_at"`
	WithoutCustom  time.Time  `json:"without_custom"`
	PoolOverride   *time.Time `json:"pool_override,omitempty"`
}

type SubscriptionEventResponse struct {
	ID             string                       `json:"id"`
	SubscriptionID string                       `json:"subscription_id"`
	Type           models.SubscriptionEventType `json:"type"`
	OccurredAt     time.Time                    `json:"occurred_at"`
	Metadata       map[string]interface{}       `json:"metadata,omitempty"`
}

func NewSubscriptionResponse(s *models.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                  s.ID,
		ServiceID:           s.ServiceID,
		ClientID:            s.ClientID,
		StartedAt:           s.StartedAt,
		CurrentCycleStartAt: s.CurrentCycleStartAt,
		LastRenewalAt:       s.LastRenewalAt,
		NextRenewalAt:       s.NextRenewalAt,
		CustomNextRenewalAt: s.CustomNextRenewalAt,
		TargetEndAt:         s.TargetEndAt,
		IntervalDays:        s.IntervalDays,
		Strategy:            s.Strategy,
		Status:              s.Status,
		OverdueReason:       s.OverdueReason,
		IterationsDone:      s.IterationsDone,
		ResourcePoolID:      s.ResourcePoolID,
		ResourcePoolSeatID:  s.ResourcePoolSeatID,
		Notes:               s.Notes,
		Version:             s.Version,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func NewSubscriptionEventResponse(e *models.SubscriptionEvent) *SubscriptionEventResponse {
	return &SubscriptionEventResponse{
		ID:             e.ID,
		SubscriptionID: e.SubscriptionID,
		Type:           e.Type,
		OccurredAt:     e.OccurredAt,
		Metadata:       e.Metadata,
	}
}
