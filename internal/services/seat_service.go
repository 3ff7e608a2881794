package services

import (
	"context"

	"gorm.io/gorm"

	"seatpool_backend/internal/metrics"
	"seatpool_backend/internal/models"
	"seatpool_backend/internal/repositories"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/pkg/apperrors"
)

// SeatService - движок выдачи мест. Каждая операция - одна транзакция
// с блокировкой строки пула.
type SeatService interface {
	ListSeats(ctx context.Context, db *gorm.DB, poolID string, status models.SeatStatus) ([]*dto.SeatResponse, error)
	ListAvailableSeats(ctx context.Context, db *gorm.DB, poolID string) ([]*dto.SeatResponse, error)
	AssignSeat(ctx context.Context, db *gorm.DB, seatID string, req *dto.AssignSeatRequest) (*dto.SeatResponse, error)
	AssignNextFreeSeat(ctx context.Context, db *gorm.DB, poolID string, req *dto.AssignSeatRequest) (*dto.SeatResponse, error)
	ReserveSeat(ctx context.Context, db *gorm.DB, seatID string) (*dto.SeatResponse, error)
	ReleaseSeat(ctx context.Context, db *gorm.DB, seatID string) error

	LinkSubscriptionToPool(ctx context.Context, db *gorm.DB, subscriptionID string, req *dto.LinkPoolRequest) (*dto.SubscriptionResponse, error)
	UnlinkSubscriptionFromPool(ctx context.Context, db *gorm.DB, subscriptionID string) error
}

type seatService struct {
	alloc *seatAllocator
}

func NewSeatService(
	poolRepo repositories.PoolRepository,
	seatRepo repositories.SeatRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.SubscriptionEventRepository,
	clock Clock,
) SeatService {
	return &seatService{
		alloc: newSeatAllocator(poolRepo, seatRepo, subRepo, eventRepo, clock),
	}
}

func newSeatAllocator(
	poolRepo repositories.PoolRepository,
	seatRepo repositories.SeatRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.SubscriptionEventRepository,
	clock Clock,
) *seatAllocator {
	if clock == nil {
		clock = systemClock
	}
	return &seatAllocator{
		poolRepo:  poolRepo,
		seatRepo:  seatRepo,
		subRepo:   subRepo,
		eventRepo: eventRepo,
		now:       clock,
	}
}

func (s *seatService) ListSeats(ctx context.Context, db *gorm.DB, poolID string, status models.SeatStatus) ([]*dto.SeatResponse, error) {
	db = db.WithContext(ctx)
	if _, err := s.alloc.poolRepo.FindPoolByID(db, poolID); err != nil {
		return nil, handleRepoError(err)
	}
	seats, err := s.alloc.seatRepo.FindSeatsByPool(db, poolID, status)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewSeatResponses(seats), nil
}

func (s *seatService) ListAvailableSeats(ctx context.Context, db *gorm.DB, poolID string) ([]*dto.SeatResponse, error) {
	return s.ListSeats(ctx, db, poolID, models.SeatStatusAvailable)
}

func (s *seatService) AssignSeat(ctx context.Context, db *gorm.DB, seatID string, req *dto.AssignSeatRequest) (*dto.SeatResponse, error) {
	var result *models.Seat
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		seat, err := s.alloc.seatRepo.FindSeatByID(tx, seatID)
		if err != nil {
			return handleRepoError(err)
		}
		pool, err := s.alloc.poolRepo.LockPool(tx, seat.PoolID)
		if err != nil {
			return handleRepoError(err)
		}
		// Перечитываем место под блокировкой пула
		seat, err = s.alloc.seatRepo.FindSeatByID(tx, seatID)
		if err != nil {
			return handleRepoError(err)
		}

		sub, err := s.lockAssignee(tx, req)
		if err != nil {
			return err
		}

		result, err = s.alloc.assign(ctx, tx, pool, seat, toAssignment(req), sub, metrics.ModeSpecific)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSeatResponse(result), nil
}

func (s *seatService) AssignNextFreeSeat(ctx context.Context, db *gorm.DB, poolID string, req *dto.AssignSeatRequest) (*dto.SeatResponse, error) {
	var result *models.Seat
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		pool, err := s.alloc.poolRepo.LockPool(tx, poolID)
		if err != nil {
			return handleRepoError(err)
		}

		sub, err := s.lockAssignee(tx, req)
		if err != nil {
			return err
		}

		result, err = s.alloc.assignNext(ctx, tx, pool, toAssignment(req), sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSeatResponse(result), nil
}

// ReserveSeat - available -> reserved. Зарезервированное место не выдается
// автоматически и не удаляется при уменьшении пула.
func (s *seatService) ReserveSeat(ctx context.Context, db *gorm.DB, seatID string) (*dto.SeatResponse, error) {
	var result *models.Seat
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		seat, err := s.alloc.seatRepo.FindSeatByID(tx, seatID)
		if err != nil {
			return handleRepoError(err)
		}
		if _, err := s.alloc.poolRepo.LockPool(tx, seat.PoolID); err != nil {
			return handleRepoError(err)
		}

		ok, err := s.alloc.seatRepo.ReserveSeat(tx, seatID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		if !ok {
			return apperrors.ErrSeatAlreadyAssigned(seatID)
		}

		result, err = s.alloc.seatRepo.FindSeatByID(tx, seatID)
		return handleRepoError(err)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSeatResponse(result), nil
}

func (s *seatService) ReleaseSeat(ctx context.Context, db *gorm.DB, seatID string) error {
	return runInTx(ctx, db, func(tx *gorm.DB) error {
		seat, err := s.alloc.seatRepo.FindSeatByID(tx, seatID)
		if err != nil {
			return handleRepoError(err)
		}
		pool, err := s.alloc.poolRepo.LockPool(tx, seat.PoolID)
		if err != nil {
			return handleRepoError(err)
		}
		seat, err = s.alloc.seatRepo.FindSeatByID(tx, seatID)
		if err != nil {
			return handleRepoError(err)
		}
		return s.alloc.release(ctx, tx, pool, seat, ActionPoolUnlinked)
	})
}

func (s *seatService) LinkSubscriptionToPool(ctx context.Context, db *gorm.DB, subscriptionID string, req *dto.LinkPoolRequest) (*dto.SubscriptionResponse, error) {
	var result *models.Subscription
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		var err error
		result, err = s.alloc.link(ctx, tx, subscriptionID, req.PoolID, req.SeatID, req.Email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(result), nil
}

func (s *seatService) UnlinkSubscriptionFromPool(ctx context.Context, db *gorm.DB, subscriptionID string) error {
	return runInTx(ctx, db, func(tx *gorm.DB) error {
		_, err := s.alloc.unlink(ctx, tx, subscriptionID, ActionPoolUnlinked)
		return err
	})
}

// lockAssignee блокирует подписку из запроса (после пула)
func (s *seatService) lockAssignee(tx *gorm.DB, req *dto.AssignSeatRequest) (*models.Subscription, error) {
	if isBlank(req.SubscriptionID) {
		return nil, nil
	}
	sub, err := s.alloc.subRepo.LockSubscription(tx, *req.SubscriptionID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return sub, nil
}

func toAssignment(req *dto.AssignSeatRequest) repositories.SeatAssignment {
	as := repositories.SeatAssignment{
		Email:          req.Email,
		ClientID:       req.ClientID,
		SubscriptionID: req.SubscriptionID,
	}
	if isBlank(as.Email) {
		as.Email = nil
	}
	if isBlank(as.ClientID) {
		as.ClientID = nil
	}
	if isBlank(as.SubscriptionID) {
		as.SubscriptionID = nil
	}
	return as
}
