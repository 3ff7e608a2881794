package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"seatpool_backend/internal/lifecycle"
	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/metrics"
	"seatpool_backend/internal/models"
	"seatpool_backend/internal/renewal"
	"seatpool_backend/internal/repositories"
	"seatpool_backend/pkg/apperrors"
)

// seatAllocator - примитивы движка мест. Все методы работают внутри уже открытой
// транзакции tx. Порядок блокировок всегда: пул, затем подписка.
type seatAllocator struct {
	poolRepo  repositories.PoolRepository
	seatRepo  repositories.SeatRepository
	subRepo   repositories.SubscriptionRepository
	eventRepo repositories.SubscriptionEventRepository
	now       Clock
}

// initSeats создает места 1..n. Пул должен быть пустым.
func (a *seatAllocator) initSeats(tx *gorm.DB, pool *models.Pool, n int) error {
	count, err := a.seatRepo.CountSeats(tx, pool.ID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if count > 0 {
		return apperrors.ErrInvalidState(apperrors.DomainPool, "Pool already has seats", pool.Status).
			WithDetails(map[string]any{"pool_id": pool.ID, "seat_count": count})
	}

	seats := make([]models.Seat, 0, n)
	for i := 1; i <= n; i++ {
		seats = append(seats, models.Seat{
			PoolID:     pool.ID,
			SeatIndex:  i,
			SeatStatus: models.SeatStatusAvailable,
		})
	}
	if err := a.seatRepo.CreateSeats(tx, seats); err != nil {
		return handleRepoError(err)
	}
	return a.syncCounters(tx, pool, n)
}

// resizeSeats доводит число мест до newMax. Новые индексы продолжают максимальный,
// удаляются только свободные места, начиная с наибольшего индекса.
func (a *seatAllocator) resizeSeats(ctx context.Context, tx *gorm.DB, poolID string, newMax int) (*models.Pool, error) {
	if newMax < 1 {
		return nil, apperrors.NewBadRequestError("max_seats must be at least 1")
	}

	pool, err := a.poolRepo.LockPool(tx, poolID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	count, err := a.seatRepo.CountSeats(tx, poolID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	current := int(count)

	switch {
	case newMax > current:
		maxIndex, err := a.seatRepo.MaxSeatIndex(tx, poolID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		seats := make([]models.Seat, 0, newMax-current)
		for i := 1; i <= newMax-current; i++ {
			seats = append(seats, models.Seat{
				PoolID:     poolID,
				SeatIndex:  maxIndex + i,
				SeatStatus: models.SeatStatusAvailable,
			})
		}
		if err := a.seatRepo.CreateSeats(tx, seats); err != nil {
			metrics.PoolResizesTotal.WithLabelValues("grow", metrics.OutcomeError).Inc()
			return nil, handleRepoError(err)
		}
		metrics.PoolResizesTotal.WithLabelValues("grow", metrics.OutcomeOK).Inc()

	case newMax < current:
		toRemove := current - newMax
		available, err := a.seatRepo.CountSeatsByStatus(tx, poolID, models.SeatStatusAvailable)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if int(available) < toRemove {
			metrics.PoolResizesTotal.WithLabelValues("shrink", "insufficient_free_seats").Inc()
			return nil, apperrors.ErrInsufficientFreeSeats(poolID, toRemove, int(available))
		}

		seats, err := a.seatRepo.FindAvailableSeatsForRemoval(tx, poolID, toRemove)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		ids := make([]string, 0, len(seats))
		for _, s := range seats {
			ids = append(ids, s.ID)
		}
		if err := a.seatRepo.DeleteSeats(tx, ids); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				return nil, apperrors.ErrConcurrentModification(apperrors.DomainPool, poolID)
			}
			return nil, apperrors.InternalError(err)
		}
		metrics.PoolResizesTotal.WithLabelValues("shrink", metrics.OutcomeOK).Inc()
	}

	if err := a.syncCounters(tx, pool, newMax); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "pool resized", "pool_id", poolID, "from", current, "to", newMax)
	return pool, nil
}

// syncCounters пересчитывает used_seats по строкам мест
func (a *seatAllocator) syncCounters(tx *gorm.DB, pool *models.Pool, maxSeats int) error {
	assigned, err := a.seatRepo.CountSeatsByStatus(tx, pool.ID, models.SeatStatusAssigned)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if int(assigned) > maxSeats {
		return apperrors.ErrIntegrityViolation(apperrors.DomainPool, "Assigned seats exceed max_seats", map[string]any{
			"pool_id":   pool.ID,
			"assigned":  assigned,
			"max_seats": maxSeats,
		})
	}
	if err := a.poolRepo.UpdateSeatCounters(tx, pool.ID, int(assigned), maxSeats); err != nil {
		return handleRepoError(err)
	}
	pool.UsedSeats = int(assigned)
	pool.MaxSeats = maxSeats
	pool.Version++
	return nil
}

// assign занимает конкретное место. pool должен быть заблокирован,
// sub (если есть) заблокирован после пула.
func (a *seatAllocator) assign(ctx context.Context, tx *gorm.DB, pool *models.Pool, seat *models.Seat, as repositories.SeatAssignment, sub *models.Subscription, mode string) (*models.Seat, error) {
	if isBlank(as.Email) && isBlank(as.SubscriptionID) {
		return nil, apperrors.ValidationError(map[string]string{
			"email": "Either email or subscription_id is required",
		})
	}
	if !pool.IsAlive {
		return nil, apperrors.ErrInvalidState(apperrors.DomainPool, "Pool is not alive", pool.Status)
	}
	if seat.PoolID != pool.ID {
		return nil, apperrors.ErrSeatNotFound(nil)
	}
	if !seat.IsAvailable() {
		metrics.SeatAssignmentsTotal.WithLabelValues(mode, metrics.OutcomeAlreadyAssigned).Inc()
		logger.CtxError(ctx, "assign attempted on a seat that is not available",
			"pool_id", pool.ID, "seat_id", seat.ID, "seat_status", seat.SeatStatus)
		return nil, apperrors.ErrSeatAlreadyAssigned(seat.ID)
	}

	if sub != nil {
		if lifecycle.IsTerminal(sub.Status) {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Subscription cannot hold a seat in its current status", sub.Status)
		}
		if sub.IsLinked() {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Subscription is already linked to a seat, unlink it first", sub.Status).
				WithDetails(map[string]any{
					"current_status": sub.Status,
					"pool_id":        *sub.ResourcePoolID,
					"seat_id":        *sub.ResourcePoolSeatID,
				})
		}
		if isBlank(as.ClientID) {
			as.ClientID = strPtr(sub.ClientID)
		}
	}

	now := a.now()
	ok, err := a.seatRepo.AssignSeat(tx, seat.ID, as, now)
	if err != nil {
		metrics.SeatAssignmentsTotal.WithLabelValues(mode, metrics.OutcomeError).Inc()
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		// Место заняли между чтением и условным обновлением
		metrics.SeatAssignmentsTotal.WithLabelValues(mode, metrics.OutcomeAlreadyAssigned).Inc()
		logger.CtxError(ctx, "seat already assigned", "pool_id", pool.ID, "seat_id", seat.ID, "seat_index", seat.SeatIndex)
		return nil, apperrors.ErrSeatAlreadyAssigned(seat.ID)
	}

	if sub != nil {
		sub.ResourcePoolID = strPtr(pool.ID)
		sub.ResourcePoolSeatID = strPtr(seat.ID)
		sub.NextRenewalAt = renewal.EffectiveNextRenewal(sub, pool)
		reasonChanged := dropPoolDeadReason(sub)
		if err := saveSubscription(tx, a.subRepo, sub); err != nil {
			return nil, err
		}
		metadata := map[string]interface{}{
			MetaAction:        ActionPoolLinked,
			MetaPoolID:        pool.ID,
			MetaSeatID:        seat.ID,
			MetaSeatIndex:     seat.SeatIndex,
			MetaNextRenewalAt: sub.NextRenewalAt,
		}
		if reasonChanged {
			addReasonChange(metadata, sub)
		}
		if err := appendEvent(tx, a.eventRepo, sub.ID, models.EventUpdated, now, metadata); err != nil {
			return nil, err
		}
	}

	if err := a.syncCounters(tx, pool, pool.MaxSeats); err != nil {
		return nil, err
	}

	assigned, err := a.seatRepo.FindSeatByID(tx, seat.ID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	metrics.SeatAssignmentsTotal.WithLabelValues(mode, metrics.OutcomeOK).Inc()
	logger.CtxInfo(ctx, "seat assigned",
		"pool_id", pool.ID,
		"seat_id", seat.ID,
		"seat_index", seat.SeatIndex,
		"subscription_id", as.SubscriptionID,
	)
	return assigned, nil
}

// assignNext выбирает свободное место с наименьшим индексом
func (a *seatAllocator) assignNext(ctx context.Context, tx *gorm.DB, pool *models.Pool, as repositories.SeatAssignment, sub *models.Subscription) (*models.Seat, error) {
	seat, err := a.seatRepo.FindFirstAvailableSeat(tx, pool.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeatNotFound) {
			metrics.SeatAssignmentsTotal.WithLabelValues(metrics.ModeNext, metrics.OutcomePoolFull).Inc()
			return nil, apperrors.ErrPoolFull(pool.ID)
		}
		return nil, apperrors.InternalError(err)
	}
	return a.assign(ctx, tx, pool, seat, as, sub, metrics.ModeNext)
}

// release освобождает место и снимает обратную ссылку подписки.
// Свободное место освобождать повторно не нужно: операция ничего не делает.
func (a *seatAllocator) release(ctx context.Context, tx *gorm.DB, pool *models.Pool, seat *models.Seat, action string) error {
	if seat.IsAvailable() {
		return nil
	}

	now := a.now()
	subID := seat.AssignedSubscriptionID
	if err := a.seatRepo.ReleaseSeat(tx, seat.ID, now); err != nil {
		return handleRepoError(err)
	}

	if subID != nil {
		sub, err := a.subRepo.LockSubscription(tx, *subID)
		switch {
		case errors.Is(err, repositories.ErrSubscriptionNotFound):
			logger.CtxWarn(ctx, "released seat referenced a missing subscription", "seat_id", seat.ID, "subscription_id", *subID)
		case err != nil:
			return apperrors.InternalError(err)
		case sub.ResourcePoolSeatID != nil && *sub.ResourcePoolSeatID == seat.ID:
			if err := a.detach(tx, sub, pool, seat, action, now); err != nil {
				return err
			}
		}
	}

	if err := a.syncCounters(tx, pool, pool.MaxSeats); err != nil {
		return err
	}

	metrics.SeatReleasesTotal.Inc()
	logger.CtxInfo(ctx, "seat released", "pool_id", pool.ID, "seat_id", seat.ID, "action", action)
	return nil
}

// detach очищает ссылки подписки на пул и возвращает базовую дату продления
func (a *seatAllocator) detach(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, seat *models.Seat, action string, now time.Time) error {
	sub.ResourcePoolID = nil
	sub.ResourcePoolSeatID = nil
	hadCustom := sub.CustomNextRenewalAt != nil
	sub.CustomNextRenewalAt = nil
	sub.NextRenewalAt = renewal.ComputeNextRenewalWithoutCustom(sub)
	reasonChanged := dropPoolDeadReason(sub)
	if err := saveSubscription(tx, a.subRepo, sub); err != nil {
		return err
	}

	metadata := map[string]interface{}{
		MetaAction:        action,
		MetaPoolID:        pool.ID,
		MetaNextRenewalAt: sub.NextRenewalAt,
		"custom_cleared":  hadCustom,
	}
	if reasonChanged {
		addReasonChange(metadata, sub)
	}
	if seat != nil {
		metadata[MetaSeatID] = seat.ID
		metadata[MetaSeatIndex] = seat.SeatIndex
	}
	return appendEvent(tx, a.eventRepo, sub.ID, models.EventUpdated, now, metadata)
}

// dropPoolDeadReason: причина pool_dead относится к прежнему пулу. Подписка
// остается overdue до продления, но уже с причиной renewal_due.
func dropPoolDeadReason(sub *models.Subscription) bool {
	if sub.OverdueReason == nil || *sub.OverdueReason != models.OverdueReasonPoolDead {
		return false
	}
	reason := models.OverdueReasonRenewalDue
	sub.OverdueReason = &reason
	return true
}

func addReasonChange(metadata map[string]interface{}, sub *models.Subscription) {
	metadata["previous_overdue_reason"] = string(models.OverdueReasonPoolDead)
	metadata["overdue_reason"] = string(*sub.OverdueReason)
}

// link привязывает подписку к пулу: к указанному месту или к первому свободному
func (a *seatAllocator) link(ctx context.Context, tx *gorm.DB, subID, poolID string, seatID, email *string) (*models.Subscription, error) {
	pool, err := a.poolRepo.LockPool(tx, poolID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	sub, err := a.subRepo.LockSubscription(tx, subID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	// Повторная привязка к тому же месту ничего не меняет
	if sub.IsLinked() && *sub.ResourcePoolID == poolID && (isBlank(seatID) || *seatID == *sub.ResourcePoolSeatID) {
		return sub, nil
	}

	as := repositories.SeatAssignment{
		Email:          email,
		ClientID:       strPtr(sub.ClientID),
		SubscriptionID: strPtr(sub.ID),
	}

	if isBlank(seatID) {
		if _, err := a.assignNext(ctx, tx, pool, as, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	seat, err := a.seatRepo.FindSeatByID(tx, *seatID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if seat.PoolID != pool.ID {
		return nil, apperrors.ErrSeatNotFound(nil).WithDetails(map[string]any{"seat_id": *seatID, "pool_id": poolID})
	}
	if _, err := a.assign(ctx, tx, pool, seat, as, sub, metrics.ModeSpecific); err != nil {
		return nil, err
	}
	return sub, nil
}

// lockWithPool блокирует пул подписки, затем саму подписку (порядок пул -> подписка).
// Пул берется из чтения без блокировки, поэтому после блокировки подписки привязка
// сверяется еще раз: если ее успели поменять, возвращается конфликт версии.
// Ссылка на несуществующий пул дает pool == nil.
func (a *seatAllocator) lockWithPool(ctx context.Context, tx *gorm.DB, subID string) (*models.Subscription, *models.Pool, error) {
	sub, err := a.subRepo.FindSubscriptionByID(tx, subID)
	if err != nil {
		return nil, nil, handleRepoError(err)
	}
	expected := sub.ResourcePoolID

	var pool *models.Pool
	if expected != nil {
		pool, err = a.poolRepo.LockPool(tx, *expected)
		switch {
		case errors.Is(err, repositories.ErrPoolNotFound):
			logger.CtxWarn(ctx, "subscription references a missing pool", "subscription_id", sub.ID, "pool_id", *expected)
			pool = nil
		case err != nil:
			return nil, nil, apperrors.InternalError(err)
		}
	}

	locked, err := a.subRepo.LockSubscription(tx, subID)
	if err != nil {
		return nil, nil, handleRepoError(err)
	}
	if !samePoolRef(expected, locked.ResourcePoolID) {
		logger.CtxWarn(ctx, "subscription pool changed while locking",
			"subscription_id", subID,
			"expected_pool_id", derefOr(expected, ""),
			"pool_id", derefOr(locked.ResourcePoolID, ""),
		)
		return nil, nil, apperrors.ErrConcurrentModification(apperrors.DomainSubscription, subID)
	}
	return locked, pool, nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func samePoolRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// unlink освобождает место подписки. Без привязки ничего не делает.
func (a *seatAllocator) unlink(ctx context.Context, tx *gorm.DB, subID, action string) (*models.Subscription, error) {
	sub, pool, err := a.lockWithPool(ctx, tx, subID)
	if err != nil {
		return nil, err
	}
	if sub.ResourcePoolID == nil {
		return sub, nil
	}
	if pool == nil {
		return nil, apperrors.ErrIntegrityViolation(apperrors.DomainSubscription, "Subscription references a missing pool", map[string]any{
			"subscription_id": sub.ID,
			"pool_id":         *sub.ResourcePoolID,
		})
	}
	if !sub.IsLinked() {
		return sub, nil
	}

	seat, err := a.seatRepo.FindSeatByID(tx, *sub.ResourcePoolSeatID)
	if err != nil && !errors.Is(err, repositories.ErrSeatNotFound) {
		return nil, apperrors.InternalError(err)
	}
	if seat == nil || seat.AssignedSubscriptionID == nil || *seat.AssignedSubscriptionID != sub.ID {
		return nil, apperrors.ErrIntegrityViolation(apperrors.DomainSubscription, "Subscription and seat references disagree", map[string]any{
			"subscription_id": sub.ID,
			"pool_id":         pool.ID,
			"seat_id":         *sub.ResourcePoolSeatID,
		})
	}

	if err := a.release(ctx, tx, pool, seat, action); err != nil {
		return nil, err
	}
	sub, err = a.subRepo.FindSubscriptionByID(tx, subID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return sub, nil
}
