package services

import (
	"seatpool_backend/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	PoolService         PoolService
	SeatService         SeatService
	SubscriptionService SubscriptionService
	StatusSyncService   StatusSyncService
}

// Repositories - набор репозиториев, общий для всех сервисов
type Repositories struct {
	Pools         repositories.PoolRepository
	Seats         repositories.SeatRepository
	Subscriptions repositories.SubscriptionRepository
	Events        repositories.SubscriptionEventRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Pools:         repositories.NewPoolRepository(),
		Seats:         repositories.NewSeatRepository(),
		Subscriptions: repositories.NewSubscriptionRepository(),
		Events:        repositories.NewSubscriptionEventRepository(),
	}
}

// NewServiceContainer собирает сервисы. clock == nil - системное время в UTC.
func NewServiceContainer(repos *Repositories, clock Clock, markRenewalOverdue bool) *ServiceContainer {
	return &ServiceContainer{
		PoolService:         NewPoolService(repos.Pools, repos.Seats, repos.Subscriptions, repos.Events, clock),
		SeatService:         NewSeatService(repos.Pools, repos.Seats, repos.Subscriptions, repos.Events, clock),
		SubscriptionService: NewSubscriptionService(repos.Pools, repos.Seats, repos.Subscriptions, repos.Events, clock),
		StatusSyncService:   NewStatusSyncService(repos.Pools, repos.Subscriptions, repos.Events, clock, markRenewalOverdue),
	}
}
