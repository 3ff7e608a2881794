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
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/pkg/apperrors"
)

// =======================
// 1. ИНТЕРФЕЙС
// =======================

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, db *gorm.DB, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, db *gorm.DB, query *dto.SubscriptionListQuery, page, pageSize int) (*dto.SubscriptionListResponse, error)
	ComputeNextRenewal(ctx context.Context, db *gorm.DB, subID string) (*dto.NextRenewalResponse, error)
	GetSubscriptionHistory(ctx context.Context, db *gorm.DB, subID string) ([]*dto.SubscriptionEventResponse, error)

	RenewNow(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	MarkOverdue(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Complete(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Archive(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Revert(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Pause(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Resume(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
	Cancel(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)

	SetCustomRenewalDate(ctx context.Context, db *gorm.DB, subID string, date time.Time) (*dto.SubscriptionResponse, error)
	ClearCustomRenewalDate(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error)
}

// =======================
// 2. РЕАЛИЗАЦИЯ
// =======================

type subscriptionService struct {
	alloc *seatAllocator
}

func NewSubscriptionService(
	poolRepo repositories.PoolRepository,
	seatRepo repositories.SeatRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.SubscriptionEventRepository,
	clock Clock,
) SubscriptionService {
	return &subscriptionService{
		alloc: newSeatAllocator(poolRepo, seatRepo, subRepo, eventRepo, clock),
	}
}

// mutation - результат изменения подписки: какое событие записать в историю
type mutation struct {
	transition lifecycle.Event
	eventType  models.SubscriptionEventType
	metadata   map[string]interface{}
}

type mutateFunc func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error)

// mutate - общий каркас операций над подпиской: блокировки, изменение,
// запись с проверкой версии и событие в одной транзакции.
// fn может вернуть nil, тогда ничего не пишется.
func (s *subscriptionService) mutate(ctx context.Context, db *gorm.DB, subID string, fn mutateFunc) (*dto.SubscriptionResponse, error) {
	var (
		result  *models.Subscription
		applied *mutation
	)

	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		sub, pool, err := s.loadForUpdate(ctx, tx, subID)
		if err != nil {
			return err
		}

		now := s.alloc.now()
		m, err := fn(tx, sub, pool, now)
		if err != nil {
			return err
		}
		result = sub
		if m == nil {
			return nil
		}

		if err := saveSubscription(tx, s.alloc.subRepo, sub); err != nil {
			return err
		}
		if err := appendEvent(tx, s.alloc.eventRepo, sub.ID, m.eventType, now, m.metadata); err != nil {
			return err
		}
		applied = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied != nil {
		if applied.transition != "" {
			metrics.SubscriptionTransitionsTotal.WithLabelValues(string(applied.transition)).Inc()
		}
		logger.CtxInfo(ctx, "subscription updated",
			"subscription_id", result.ID,
			"event", applied.eventType,
			"status", result.Status,
			"next_renewal_at", result.NextRenewalAt,
		)
	}
	return dto.NewSubscriptionResponse(result), nil
}

// loadForUpdate блокирует пул (если подписка привязана), затем подписку
func (s *subscriptionService) loadForUpdate(ctx context.Context, tx *gorm.DB, subID string) (*models.Subscription, *models.Pool, error) {
	return s.alloc.lockWithPool(ctx, tx, subID)
}

func invalidTransition(sub *models.Subscription, err error) error {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return apperrors.ErrInvalidState(apperrors.DomainSubscription, te.Error(), sub.Status)
	}
	return apperrors.ErrInvalidState(apperrors.DomainSubscription, err.Error(), sub.Status)
}

// resumeFrom пересчитывает дату продления так, будто подписка продолжается с now
func resumeFrom(sub *models.Subscription, pool *models.Pool, now time.Time) time.Time {
	next := renewal.ComputeFrom(sub, now)
	if sub.CustomNextRenewalAt != nil {
		next = *sub.CustomNextRenewalAt
	}
	return renewal.Effective(sub, pool, next)
}

// =======================
// 3. СОЗДАНИЕ И ЧТЕНИЕ
// =======================

func (s *subscriptionService) CreateSubscription(ctx context.Context, db *gorm.DB, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	strategy := models.RenewalStrategy(req.Strategy)
	if !strategy.Valid() {
		return nil, apperrors.ValidationError(map[string]string{"strategy": "Unknown renewal strategy"})
	}

	now := s.alloc.now()
	startedAt := now
	if req.StartedAt != nil {
		startedAt = req.StartedAt.UTC()
	}

	var targetEnd *time.Time
	if req.TargetEndAt != nil {
		t := req.TargetEndAt.UTC()
		if !t.After(startedAt) {
			return nil, apperrors.ErrInvalidDateRange(apperrors.DomainSubscription, "target_end_at must be after started_at", startedAt, t)
		}
		targetEnd = &t
	}

	intervalDays := req.IntervalDays
	if strategy == models.RenewalStrategyEveryNDays && intervalDays == nil {
		d := renewal.DefaultIntervalDays
		intervalDays = &d
	}

	sub := &models.Subscription{
		ServiceID:           req.ServiceID,
		ClientID:            req.ClientID,
		StartedAt:           startedAt,
		CurrentCycleStartAt: startedAt,
		TargetEndAt:         targetEnd,
		IntervalDays:        intervalDays,
		Strategy:            strategy,
		Status:              models.SubscriptionStatusActive,
		Notes:               req.Notes,
		Version:             1,
	}
	sub.NextRenewalAt = renewal.ComputeNextRenewal(sub)

	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		if err := s.alloc.subRepo.CreateSubscription(tx, sub); err != nil {
			return handleRepoError(err)
		}
		if err := appendEvent(tx, s.alloc.eventRepo, sub.ID, models.EventCreated, now, map[string]interface{}{
			"strategy":        string(sub.Strategy),
			MetaNextRenewalAt: sub.NextRenewalAt,
		}); err != nil {
			return err
		}

		poolID := req.ResourcePoolID
		if isBlank(poolID) && !isBlank(req.ResourcePoolSeatID) {
			// Пул берем из места
			seat, err := s.alloc.seatRepo.FindSeatByID(tx, *req.ResourcePoolSeatID)
			if err != nil {
				return handleRepoError(err)
			}
			poolID = strPtr(seat.PoolID)
		}
		if isBlank(poolID) {
			return nil
		}

		linked, err := s.alloc.link(ctx, tx, sub.ID, *poolID, req.ResourcePoolSeatID, req.AssignedEmail)
		if err != nil {
			return err
		}
		sub = linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription created",
		"subscription_id", sub.ID,
		"client_id", sub.ClientID,
		"strategy", sub.Strategy,
		"pool_id", sub.ResourcePoolID,
	)
	return s.GetSubscription(ctx, db, sub.ID)
}

func (s *subscriptionService) GetSubscription(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.alloc.subRepo.FindSubscriptionByID(db.WithContext(ctx), subID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, db *gorm.DB, query *dto.SubscriptionListQuery, page, pageSize int) (*dto.SubscriptionListResponse, error) {
	filter := repositories.SubscriptionFilter{
		Status:     models.SubscriptionStatus(query.Status),
		ClientID:   query.ClientID,
		ServiceID:  query.ServiceID,
		PoolID:     query.PoolID,
		Pagination: repositories.Pagination{Page: page, PageSize: pageSize},
	}
	subs, total, err := s.alloc.subRepo.FindSubscriptions(db.WithContext(ctx), filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.SubscriptionListResponse{
		Subscriptions: make([]*dto.SubscriptionResponse, 0, len(subs)),
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	}
	for i := range subs {
		resp.Subscriptions = append(resp.Subscriptions, dto.NewSubscriptionResponse(&subs[i]))
	}
	return resp, nil
}

// ComputeNextRenewal только считает, ничего не сохраняет
func (s *subscriptionService) ComputeNextRenewal(ctx context.Context, db *gorm.DB, subID string) (*dto.NextRenewalResponse, error) {
	db = db.WithContext(ctx)
	sub, err := s.alloc.subRepo.FindSubscriptionByID(db, subID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	var pool *models.Pool
	if sub.ResourcePoolID != nil {
		pool, err = s.alloc.poolRepo.FindPoolByID(db, *sub.ResourcePoolID)
		if err != nil && !errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, apperrors.InternalError(err)
		}
	}

	resp := &dto.NextRenewalResponse{
		SubscriptionID: sub.ID,
		NextRenewalAt:  renewal.EffectiveNextRenewal(sub, pool),
		WithoutCustom:  renewal.ComputeNextRenewalWithoutCustom(sub),
	}
	if end, ok := renewal.PoolOverride(sub, pool); ok {
		resp.PoolOverride = &end
	}
	return resp, nil
}

func (s *subscriptionService) GetSubscriptionHistory(ctx context.Context, db *gorm.DB, subID string) ([]*dto.SubscriptionEventResponse, error) {
	db = db.WithContext(ctx)
	if _, err := s.alloc.subRepo.FindSubscriptionByID(db, subID); err != nil {
		return nil, handleRepoError(err)
	}

	events, err := s.alloc.eventRepo.FindEventsBySubscription(db, subID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := make([]*dto.SubscriptionEventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, dto.NewSubscriptionEventResponse(&events[i]))
	}
	return resp, nil
}

// =======================
// 4. ПЕРЕХОДЫ СОСТОЯНИЙ
// =======================

func (s *subscriptionService) RenewNow(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		next, err := lifecycle.Next(sub.Status, lifecycle.Renew)
		if err != nil {
			return nil, invalidTransition(sub, err)
		}
		previous := sub.Status
		hadCustom := sub.CustomNextRenewalAt != nil

		patch := renewal.OnRenew(sub, now)
		patch.Apply(sub)
		sub.NextRenewalAt = renewal.Effective(sub, pool, patch.NextRenewalAt)
		sub.Status = next
		sub.OverdueReason = nil

		_, pinned := renewal.PoolOverride(sub, pool)
		metadata := map[string]interface{}{
			MetaRenewalNumber:  sub.IterationsDone,
			MetaPreviousStatus: string(previous),
			MetaNextRenewalAt:  sub.NextRenewalAt,
			"renewed_at":       now,
			"strategy":         string(sub.Strategy),
			"custom_consumed":  hadCustom,
			"pool_pinned":      pinned,
		}
		if sub.IntervalDays != nil {
			metadata["interval_days"] = *sub.IntervalDays
		}
		return &mutation{transition: lifecycle.Renew, eventType: models.EventRenewed, metadata: metadata}, nil
	})
}

// MarkOverdue переводит в overdue, только если итоговая дата продления уже прошла.
// Повторный вызов на overdue ничего не меняет.
func (s *subscriptionService) MarkOverdue(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		if sub.Status == models.SubscriptionStatusOverdue {
			return nil, nil
		}
		next, err := lifecycle.Next(sub.Status, lifecycle.MarkOverdue)
		if err != nil {
			return nil, invalidTransition(sub, err)
		}

		effective := renewal.EffectiveNextRenewal(sub, pool)
		if !effective.Before(now) {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Renewal date has not passed yet", sub.Status).
				WithDetails(map[string]any{"current_status": sub.Status, "next_renewal_at": effective})
		}

		reason := models.OverdueReasonRenewalDue
		previous := sub.Status
		sub.Status = next
		sub.OverdueReason = &reason
		return &mutation{
			transition: lifecycle.MarkOverdue,
			eventType:  models.EventOverdue,
			metadata: map[string]interface{}{
				MetaReason:         string(reason),
				MetaPreviousStatus: string(previous),
				MetaNextRenewalAt:  effective,
			},
		}, nil
	})
}

func (s *subscriptionService) Complete(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.simpleTransition(ctx, db, subID, lifecycle.Complete)
}

// Archive не освобождает место: инвентарь остается занятым до явного unlink
func (s *subscriptionService) Archive(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.simpleTransition(ctx, db, subID, lifecycle.Archive)
}

func (s *subscriptionService) Pause(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.simpleTransition(ctx, db, subID, lifecycle.Pause)
}

func (s *subscriptionService) Cancel(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.simpleTransition(ctx, db, subID, lifecycle.Cancel)
}

// simpleTransition меняет только статус и пишет previous_status в metadata
func (s *subscriptionService) simpleTransition(ctx context.Context, db *gorm.DB, subID string, ev lifecycle.Event) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		next, err := lifecycle.Next(sub.Status, ev)
		if err != nil {
			return nil, invalidTransition(sub, err)
		}
		previous := sub.Status
		sub.Status = next

		metadata := map[string]interface{}{
			MetaPreviousStatus: string(previous),
		}
		if sub.OverdueReason != nil {
			metadata[MetaReason] = string(*sub.OverdueReason)
		}
		if sub.ResourcePoolSeatID != nil {
			metadata[MetaPoolID] = *sub.ResourcePoolID
			metadata[MetaSeatID] = *sub.ResourcePoolSeatID
		}
		return &mutation{transition: ev, eventType: lifecycle.EventType(ev), metadata: metadata}, nil
	})
}

// Revert возвращает статус из последнего события archived
func (s *subscriptionService) Revert(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		if sub.Status != models.SubscriptionStatusArchived {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Only archived subscriptions can be reverted", sub.Status)
		}

		event, err := s.alloc.eventRepo.FindLatestEvent(tx, sub.ID, models.EventArchived)
		if err != nil && !errors.Is(err, repositories.ErrEventNotFound) {
			return nil, apperrors.InternalError(err)
		}
		var stored string
		if event != nil {
			stored, _ = event.MetadataString(MetaPreviousStatus)
		}
		if stored == "" {
			return nil, apperrors.ErrIntegrityViolation(apperrors.DomainSubscription, "Archive event with previous status not found", map[string]any{
				"subscription_id": sub.ID,
			})
		}

		restored, err := lifecycle.RevertTo(sub.Status, models.SubscriptionStatus(stored))
		if err != nil {
			return nil, apperrors.ErrIntegrityViolation(apperrors.DomainSubscription, err.Error(), map[string]any{
				"subscription_id": sub.ID,
				"previous_status": stored,
			})
		}

		sub.Status = restored
		if restored != models.SubscriptionStatusOverdue {
			sub.OverdueReason = nil
		}
		if !lifecycle.IsTerminal(restored) {
			sub.NextRenewalAt = resumeFrom(sub, pool, now)
		}
		return &mutation{
			transition: lifecycle.Revert,
			eventType:  models.EventReverted,
			metadata: map[string]interface{}{
				MetaPreviousStatus: string(models.SubscriptionStatusArchived),
				MetaRestoredStatus: string(restored),
				MetaNextRenewalAt:  sub.NextRenewalAt,
				"archive_event_id": event.ID,
			},
		}, nil
	})
}

// Resume продолжает подписку с текущего момента
func (s *subscriptionService) Resume(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		next, err := lifecycle.Next(sub.Status, lifecycle.Resume)
		if err != nil {
			return nil, invalidTransition(sub, err)
		}
		previous := sub.Status
		sub.Status = next
		sub.OverdueReason = nil
		sub.NextRenewalAt = resumeFrom(sub, pool, now)
		return &mutation{
			transition: lifecycle.Resume,
			eventType:  models.EventResumed,
			metadata: map[string]interface{}{
				MetaPreviousStatus: string(previous),
				MetaNextRenewalAt:  sub.NextRenewalAt,
			},
		}, nil
	})
}

// =======================
// 5. РУЧНАЯ ДАТА ПРОДЛЕНИЯ
// =======================

// SetCustomRenewalDate отклоняется, пока действует дата живого пула
func (s *subscriptionService) SetCustomRenewalDate(ctx context.Context, db *gorm.DB, subID string, date time.Time) (*dto.SubscriptionResponse, error) {
	date = date.UTC()
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		if lifecycle.IsTerminal(sub.Status) {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Cannot change renewal date in current status", sub.Status)
		}
		if end, ok := renewal.PoolOverride(sub, pool); ok {
			return nil, apperrors.ErrInvalidState(apperrors.DomainSubscription, "Renewal date is pinned to a live pool", sub.Status).
				WithDetails(map[string]any{
					"current_status": sub.Status,
					"pool_id":        pool.ID,
					"pool_end_at":    end,
				})
		}
		if !date.After(sub.CurrentCycleStartAt) {
			return nil, apperrors.ErrInvalidDateRange(apperrors.DomainSubscription, "Custom renewal date must be after the current cycle start", sub.CurrentCycleStartAt, date)
		}

		metadata := map[string]interface{}{
			"date":                  date,
			"previous_next_renewal": sub.NextRenewalAt,
		}
		if sub.CustomNextRenewalAt != nil {
			metadata["previous_custom_date"] = *sub.CustomNextRenewalAt
		}

		sub.CustomNextRenewalAt = &date
		sub.NextRenewalAt = renewal.EffectiveNextRenewal(sub, pool)
		metadata[MetaNextRenewalAt] = sub.NextRenewalAt
		return &mutation{eventType: models.EventCustomDateSet, metadata: metadata}, nil
	})
}

// ClearCustomRenewalDate без ручной даты ничего не делает
func (s *subscriptionService) ClearCustomRenewalDate(ctx context.Context, db *gorm.DB, subID string) (*dto.SubscriptionResponse, error) {
	return s.mutate(ctx, db, subID, func(tx *gorm.DB, sub *models.Subscription, pool *models.Pool, now time.Time) (*mutation, error) {
		if sub.CustomNextRenewalAt == nil {
			return nil, nil
		}
		cleared := *sub.CustomNextRenewalAt
		sub.CustomNextRenewalAt = nil
		if !lifecycle.IsTerminal(sub.Status) {
			sub.NextRenewalAt = renewal.BaselineNextRenewal(sub, pool)
		}
		return &mutation{
			eventType: models.EventCustomDateCleared,
			metadata: map[string]interface{}{
				"cleared_date":    cleared,
				MetaNextRenewalAt: sub.NextRenewalAt,
			},
		}, nil
	})
}
