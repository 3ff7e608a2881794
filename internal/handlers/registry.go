package handlers

import (
	"seatpool_backend/internal/services"
	"seatpool_backend/internal/validator"
)

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	PoolHandler         *PoolHandler
	SeatHandler         *SeatHandler
	SubscriptionHandler *SubscriptionHandler
	SyncHandler         *SyncHandler
	HealthHandler       *HealthHandler
}

func NewAppHandlers(sc *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		PoolHandler:         NewPoolHandler(base, sc.PoolService, sc.SeatService),
		SeatHandler:         NewSeatHandler(base, sc.SeatService),
		SubscriptionHandler: NewSubscriptionHandler(base, sc.SubscriptionService, sc.SeatService),
		SyncHandler:         NewSyncHandler(base, sc.StatusSyncService),
		HealthHandler:       NewHealthHandler(base),
	}
}
