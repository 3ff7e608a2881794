package services

import (
	"context"

	"gorm.io/gorm"

	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/metrics"
	"seatpool_backend/internal/models"
	"seatpool_backend/internal/renewal"
	"seatpool_backend/internal/repositories"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/pkg/apperrors"
)

type PoolService interface {
	CreatePool(ctx context.Context, db *gorm.DB, req *dto.CreatePoolRequest) (*dto.PoolResponse, error)
	GetPool(ctx context.Context, db *gorm.DB, poolID string) (*dto.PoolResponse, error)
	ListPools(ctx context.Context, db *gorm.DB, query *dto.PoolListQuery, page, pageSize int) (*dto.PoolListResponse, error)
	UpdatePool(ctx context.Context, db *gorm.DB, poolID string, req *dto.UpdatePoolRequest) (*dto.PoolResponse, error)
	ResizePool(ctx context.Context, db *gorm.DB, poolID string, newMax int) (*dto.PoolResponse, error)
	ArchivePool(ctx context.Context, db *gorm.DB, poolID string) (*dto.PoolResponse, error)
	DeletePool(ctx context.Context, db *gorm.DB, poolID string) error
	CheckIntegrity(ctx context.Context, db *gorm.DB, poolID string) (*dto.IntegrityReport, error)
}

type poolService struct {
	alloc *seatAllocator
}

func NewPoolService(
	poolRepo repositories.PoolRepository,
	seatRepo repositories.SeatRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.SubscriptionEventRepository,
	clock Clock,
) PoolService {
	return &poolService{
		alloc: newSeatAllocator(poolRepo, seatRepo, subRepo, eventRepo, clock),
	}
}

func (s *poolService) CreatePool(ctx context.Context, db *gorm.DB, req *dto.CreatePoolRequest) (*dto.PoolResponse, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, apperrors.ErrInvalidDateRange(apperrors.DomainPool, "end_at must be after start_at", req.StartAt, req.EndAt)
	}
	if req.MaxSeats < 1 {
		return nil, apperrors.ValidationError(map[string]string{"max_seats": "Must be at least 1"})
	}

	pool := &models.Pool{
		Provider: req.Provider,
		PoolType: req.PoolType,
		Login:    req.Login,
		Password: req.Password,
		StartAt:  req.StartAt.UTC(),
		EndAt:    req.EndAt.UTC(),
		MaxSeats: req.MaxSeats,
		Status:   models.PoolStatusActive,
		IsAlive:  true,
		Notes:    req.Notes,
	}

	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		if err := s.alloc.poolRepo.CreatePool(tx, pool); err != nil {
			return handleRepoError(err)
		}
		return s.alloc.initSeats(tx, pool, req.MaxSeats)
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "pool created", "pool_id", pool.ID, "provider", pool.Provider, "max_seats", pool.MaxSeats)
	return s.GetPool(ctx, db, pool.ID)
}

func (s *poolService) GetPool(ctx context.Context, db *gorm.DB, poolID string) (*dto.PoolResponse, error) {
	pool, err := s.alloc.poolRepo.FindPoolWithSeats(db.WithContext(ctx), poolID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return dto.NewPoolResponse(pool), nil
}

func (s *poolService) ListPools(ctx context.Context, db *gorm.DB, query *dto.PoolListQuery, page, pageSize int) (*dto.PoolListResponse, error) {
	filter := repositories.PoolFilter{
		Status:     models.PoolStatus(query.Status),
		Provider:   query.Provider,
		IsAlive:    query.IsAlive,
		Pagination: repositories.Pagination{Page: page, PageSize: pageSize},
	}
	pools, total, err := s.alloc.poolRepo.FindPools(db.WithContext(ctx), filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.PoolListResponse{
		Pools:    make([]*dto.PoolResponse, 0, len(pools)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range pools {
		resp.Pools = append(resp.Pools, dto.NewPoolResponse(&pools[i]))
	}
	return resp, nil
}

// UpdatePool меняет метаданные пула. Если изменились end_at или is_alive,
// даты продления привязанных подписок пересчитываются.
func (s *poolService) UpdatePool(ctx context.Context, db *gorm.DB, poolID string, req *dto.UpdatePoolRequest) (*dto.PoolResponse, error) {
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		pool, err := s.alloc.poolRepo.LockPool(tx, poolID)
		if err != nil {
			return handleRepoError(err)
		}

		prevEnd, prevAlive := pool.EndAt, pool.IsAlive

		if req.Provider != nil {
			pool.Provider = *req.Provider
		}
		if req.PoolType != nil {
			pool.PoolType = *req.PoolType
		}
		if req.Login != nil {
			pool.Login = *req.Login
		}
		if req.Password != nil {
			pool.Password = *req.Password
		}
		if req.StartAt != nil {
			pool.StartAt = req.StartAt.UTC()
		}
		if req.EndAt != nil {
			pool.EndAt = req.EndAt.UTC()
		}
		if req.Notes != nil {
			pool.Notes = *req.Notes
		}
		if req.Status != nil {
			pool.Status = models.PoolStatus(*req.Status)
			if pool.Status == models.PoolStatusExpired && req.IsAlive == nil {
				pool.IsAlive = false
			}
		}
		if req.IsAlive != nil {
			pool.IsAlive = *req.IsAlive
		}

		if !pool.EndAt.After(pool.StartAt) {
			return apperrors.ErrInvalidDateRange(apperrors.DomainPool, "end_at must be after start_at", pool.StartAt, pool.EndAt)
		}

		if err := s.alloc.poolRepo.UpdatePool(tx, pool); err != nil {
			return handleRepoError(err)
		}

		if !pool.EndAt.Equal(prevEnd) || pool.IsAlive != prevAlive {
			return s.repinSubscriptions(ctx, tx, pool)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPool(ctx, db, poolID)
}

func (s *poolService) ResizePool(ctx context.Context, db *gorm.DB, poolID string, newMax int) (*dto.PoolResponse, error) {
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		_, err := s.alloc.resizeSeats(ctx, tx, poolID, newMax)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetPool(ctx, db, poolID)
}

// ArchivePool - мягкое удаление: expired и is_alive=false. Места не трогаем.
func (s *poolService) ArchivePool(ctx context.Context, db *gorm.DB, poolID string) (*dto.PoolResponse, error) {
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		pool, err := s.alloc.poolRepo.LockPool(tx, poolID)
		if err != nil {
			return handleRepoError(err)
		}
		wasAlive := pool.IsAlive

		pool.Status = models.PoolStatusExpired
		pool.IsAlive = false
		if err := s.alloc.poolRepo.UpdatePool(tx, pool); err != nil {
			return handleRepoError(err)
		}
		if wasAlive {
			return s.repinSubscriptions(ctx, tx, pool)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "pool archived", "pool_id", poolID)
	return s.GetPool(ctx, db, poolID)
}

// DeletePool отвязывает подписки, затем удаляет места и сам пул
func (s *poolService) DeletePool(ctx context.Context, db *gorm.DB, poolID string) error {
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		pool, err := s.alloc.poolRepo.LockPool(tx, poolID)
		if err != nil {
			return handleRepoError(err)
		}

		seats, err := s.alloc.seatRepo.FindSeatsByPool(tx, poolID, "")
		if err != nil {
			return apperrors.InternalError(err)
		}
		for i := range seats {
			if err := s.alloc.release(ctx, tx, pool, &seats[i], ActionPoolDeleted); err != nil {
				return err
			}
		}

		// Подписки, которые все еще ссылаются на пул, но не на его место
		subs, err := s.alloc.subRepo.FindSubscriptionsByPool(tx, poolID)
		if err != nil {
			return apperrors.InternalError(err)
		}
		for i := range subs {
			sub, err := s.alloc.subRepo.LockSubscription(tx, subs[i].ID)
			if err != nil {
				return handleRepoError(err)
			}
			if !samePoolRef(sub.ResourcePoolID, &pool.ID) {
				continue
			}
			logger.CtxWarn(ctx, "subscription referenced deleted pool without a seat", "subscription_id", sub.ID, "pool_id", poolID)
			if err := s.alloc.detach(tx, sub, pool, nil, ActionPoolDeleted, s.alloc.now()); err != nil {
				return err
			}
		}

		if err := s.alloc.seatRepo.DeleteSeatsByPool(tx, poolID); err != nil {
			return apperrors.InternalError(err)
		}
		return handleRepoError(s.alloc.poolRepo.DeletePool(tx, poolID))
	})
	if err != nil {
		return err
	}

	logger.CtxInfo(ctx, "pool deleted", "pool_id", poolID)
	return nil
}

// CheckIntegrity сверяет used_seats и обратные ссылки. Расхождения не исправляются.
func (s *poolService) CheckIntegrity(ctx context.Context, db *gorm.DB, poolID string) (*dto.IntegrityReport, error) {
	db = db.WithContext(ctx)
	pool, err := s.alloc.poolRepo.FindPoolWithSeats(db, poolID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	subs, err := s.alloc.subRepo.FindSubscriptionsByPool(db, poolID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	subsByID := make(map[string]*models.Subscription, len(subs))
	for i := range subs {
		subsByID[subs[i].ID] = &subs[i]
	}
	seatsByID := make(map[string]*models.Seat, len(pool.Seats))

	report := &dto.IntegrityReport{PoolID: pool.ID, UsedSeatsStored: pool.UsedSeats}
	for i := range pool.Seats {
		seat := &pool.Seats[i]
		seatsByID[seat.ID] = seat

		switch seat.SeatStatus {
		case models.SeatStatusAssigned:
			report.AssignedSeatsActual++
			if (isBlank(seat.AssignedEmail) && isBlank(seat.AssignedSubscriptionID)) || seat.AssignedAt == nil {
				report.IncompleteSeats = append(report.IncompleteSeats, seat.ID)
			}
			if seat.AssignedSubscriptionID != nil {
				sub, ok := subsByID[*seat.AssignedSubscriptionID]
				if !ok || sub.ResourcePoolSeatID == nil || *sub.ResourcePoolSeatID != seat.ID {
					report.OrphanedSeats = append(report.OrphanedSeats, seat.ID)
				}
			}
		case models.SeatStatusAvailable:
			if seat.AssignedEmail != nil || seat.AssignedSubscriptionID != nil || seat.AssignedAt != nil {
				report.IncompleteSeats = append(report.IncompleteSeats, seat.ID)
			}
		}
	}

	for _, sub := range subs {
		if sub.ResourcePoolSeatID == nil {
			report.OrphanedLinks = append(report.OrphanedLinks, sub.ID)
			continue
		}
		seat, ok := seatsByID[*sub.ResourcePoolSeatID]
		if !ok || seat.AssignedSubscriptionID == nil || *seat.AssignedSubscriptionID != sub.ID {
			report.OrphanedLinks = append(report.OrphanedLinks, sub.ID)
		}
	}

	report.Consistent = report.UsedSeatsStored == report.AssignedSeatsActual &&
		report.AssignedSeatsActual <= pool.MaxSeats &&
		len(report.OrphanedSeats) == 0 &&
		len(report.OrphanedLinks) == 0 &&
		len(report.IncompleteSeats) == 0

	if !report.Consistent {
		if report.UsedSeatsStored != report.AssignedSeatsActual {
			metrics.IntegrityViolationsTotal.WithLabelValues("used_seats_mismatch").Inc()
		}
		if len(report.OrphanedSeats)+len(report.OrphanedLinks) > 0 {
			metrics.IntegrityViolationsTotal.WithLabelValues("orphaned_reference").Inc()
		}
		if len(report.IncompleteSeats) > 0 {
			metrics.IntegrityViolationsTotal.WithLabelValues("incomplete_seat").Inc()
		}
		logger.CtxError(ctx, "pool integrity violation", "pool_id", poolID, "report", report)
		return report, apperrors.ErrIntegrityViolation(apperrors.DomainPool, "Pool failed consistency check", report)
	}
	return report, nil
}

// repinSubscriptions пересчитывает даты продления подписок пула после
// изменения end_at или живости пула
func (s *poolService) repinSubscriptions(ctx context.Context, tx *gorm.DB, pool *models.Pool) error {
	subs, err := s.alloc.subRepo.FindSubscriptionsByPool(tx, pool.ID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	now := s.alloc.now()
	for i := range subs {
		sub, err := s.alloc.subRepo.LockSubscription(tx, subs[i].ID)
		if err != nil {
			return handleRepoError(err)
		}
		// Подписку могли перепривязать после чтения списка
		if !samePoolRef(sub.ResourcePoolID, &pool.ID) {
			continue
		}

		next := renewal.EffectiveNextRenewal(sub, pool)
		if next.Equal(sub.NextRenewalAt) {
			continue
		}
		sub.NextRenewalAt = next
		if err := saveSubscription(tx, s.alloc.subRepo, sub); err != nil {
			return err
		}
		if err := appendEvent(tx, s.alloc.eventRepo, sub.ID, models.EventUpdated, now, map[string]interface{}{
			MetaAction:        ActionPoolChanged,
			MetaPoolID:        pool.ID,
			MetaNextRenewalAt: next,
			"pool_alive":      pool.IsAlive,
		}); err != nil {
			return err
		}
		logger.CtxDebug(ctx, "subscription re-pinned to pool", "subscription_id", sub.ID, "pool_id", pool.ID, "next_renewal_at", next)
	}
	return nil
}
