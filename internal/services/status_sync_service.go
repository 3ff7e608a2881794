package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/metrics"
	"seatpool_backend/internal/models"
	"seatpool_backend/internal/renewal"
	"seatpool_backend/internal/repositories"
	"seatpool_backend/internal/services/dto"
	"seatpool_backend/pkg/apperrors"
)

// StatusSyncService - сверка статусов пулов и подписок со временем
type StatusSyncService interface {
	RunSweep(ctx context.Context, db *gorm.DB) (*dto.SweepResult, error)
}

type statusSyncService struct {
	poolRepo  repositories.PoolRepository
	subRepo   repositories.SubscriptionRepository
	eventRepo repositories.SubscriptionEventRepository
	now       Clock

	markRenewalOverdue bool
}

var sweepPoolStatuses = []models.PoolStatus{models.PoolStatusActive, models.PoolStatusOverdue}

func NewStatusSyncService(
	poolRepo repositories.PoolRepository,
	subRepo repositories.SubscriptionRepository,
	eventRepo repositories.SubscriptionEventRepository,
	clock Clock,
	markRenewalOverdue bool,
) StatusSyncService {
	if clock == nil {
		clock = systemClock
	}
	return &statusSyncService{
		poolRepo:           poolRepo,
		subRepo:            subRepo,
		eventRepo:          eventRepo,
		now:                clock,
		markRenewalOverdue: markRenewalOverdue,
	}
}

// RunSweep - один проход синхронизатора. Ошибки по отдельным записям
// логируются и считаются, проход продолжается. Каждая запись - своя транзакция
// с условной записью по версии, поэтому ручная операция, успевшая раньше,
// превращает запись синхронизатора в no-op.
func (s *statusSyncService) RunSweep(ctx context.Context, db *gorm.DB) (*dto.SweepResult, error) {
	ctx = logger.WithCorrelationID(ctx, uuid.NewString())
	start := time.Now()
	now := s.now()

	result := &dto.SweepResult{StartedAt: now}
	metrics.SweepRunsTotal.Inc()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	logger.CtxDebug(ctx, "status sweep started", "mark_renewal_overdue", s.markRenewalOverdue)

	// (a) истекшие пулы
	pools, err := s.poolRepo.FindPoolsByStatuses(db.WithContext(ctx), sweepPoolStatuses...)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range pools {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pool := &pools[i]
		if !pool.EndAt.Before(now) {
			continue
		}
		expired, err := s.poolRepo.ExpirePool(db.WithContext(ctx), pool.ID, pool.Version, sweepPoolStatuses)
		if err != nil {
			s.recordFailure(ctx, result, "expire pool", err, "pool_id", pool.ID)
			continue
		}
		if !expired {
			logger.CtxDebug(ctx, "pool changed concurrently, skipped", "pool_id", pool.ID)
			continue
		}
		result.PoolsExpired++
		metrics.SweepPoolsExpiredTotal.Inc()
		logger.CtxInfo(ctx, "pool expired", "pool_id", pool.ID, "end_at", pool.EndAt)
	}

	// (b), (c) подписки
	subs, err := s.subRepo.FindSubscriptionsByStatuses(db.WithContext(ctx),
		models.SubscriptionStatusActive, models.SubscriptionStatusOverdue)
	if err != nil {
		return result, apperrors.InternalError(err)
	}

	poolCache := make(map[string]*models.Pool)
	for i := range subs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sub := &subs[i]

		var pool *models.Pool
		if sub.ResourcePoolID != nil {
			pool, err = s.cachedPool(ctx, db, poolCache, *sub.ResourcePoolID)
			if err != nil {
				s.recordFailure(ctx, result, "load pool", err, "subscription_id", sub.ID, "pool_id", *sub.ResourcePoolID)
				continue
			}
		}

		reason, ok := s.overdueReason(sub, pool, now)
		if !ok {
			continue
		}

		changed, err := s.markOverdue(ctx, db, sub, pool, reason, now)
		if err != nil {
			s.recordFailure(ctx, result, "mark overdue", err, "subscription_id", sub.ID, "reason", reason)
			continue
		}
		if changed {
			result.SubscriptionsMarkedOverdue++
			metrics.SweepSubscriptionsOverdueTotal.WithLabelValues(string(reason)).Inc()
		}
	}

	result.FinishedAt = s.now()
	logger.CtxInfo(ctx, "status sweep finished",
		"pools_expired", result.PoolsExpired,
		"subscriptions_marked_overdue", result.SubscriptionsMarkedOverdue,
		"failures", result.Failures,
		"duration", time.Since(start),
	)
	return result, nil
}

// overdueReason решает, нужно ли переводить подписку в overdue и почему
func (s *statusSyncService) overdueReason(sub *models.Subscription, pool *models.Pool, now time.Time) (models.OverdueReason, bool) {
	if pool != nil && !pool.IsAlive {
		if sub.Status == models.SubscriptionStatusOverdue && sub.OverdueReason != nil && *sub.OverdueReason == models.OverdueReasonPoolDead {
			return "", false
		}
		return models.OverdueReasonPoolDead, true
	}

	if !s.markRenewalOverdue || sub.Status != models.SubscriptionStatusActive {
		return "", false
	}
	if renewal.EffectiveNextRenewal(sub, pool).Before(now) {
		return models.OverdueReasonRenewalDue, true
	}
	return "", false
}

// markOverdue - условная запись по версии из снимка. false - подписку уже изменили.
func (s *statusSyncService) markOverdue(ctx context.Context, db *gorm.DB, sub *models.Subscription, pool *models.Pool, reason models.OverdueReason, now time.Time) (bool, error) {
	changed := false
	err := runInTx(ctx, db, func(tx *gorm.DB) error {
		previous := sub.Status
		sub.Status = models.SubscriptionStatusOverdue
		sub.OverdueReason = &reason

		if err := s.subRepo.UpdateSubscription(tx, sub); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				logger.CtxDebug(ctx, "subscription changed concurrently, skipped", "subscription_id", sub.ID)
				return nil
			}
			return err
		}

		metadata := map[string]interface{}{
			MetaReason:         string(reason),
			MetaPreviousStatus: string(previous),
			"source":           "sweep",
		}
		if pool != nil {
			metadata[MetaPoolID] = pool.ID
		}
		if err := appendEvent(tx, s.eventRepo, sub.ID, models.EventOverdue, now, metadata); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		logger.CtxInfo(ctx, "subscription marked overdue", "subscription_id", sub.ID, "reason", reason)
	}
	return changed, nil
}

func (s *statusSyncService) cachedPool(ctx context.Context, db *gorm.DB, cache map[string]*models.Pool, poolID string) (*models.Pool, error) {
	if pool, ok := cache[poolID]; ok {
		return pool, nil
	}
	pool, err := s.poolRepo.FindPoolByID(db.WithContext(ctx), poolID)
	if err != nil {
		return nil, err
	}
	cache[poolID] = pool
	return pool, nil
}

func (s *statusSyncService) recordFailure(ctx context.Context, result *dto.SweepResult, op string, err error, args ...any) {
	result.Failures++
	metrics.SweepFailuresTotal.Inc()
	logger.CtxWithError(ctx, "status sweep item failed: "+op, err, args...)
}
