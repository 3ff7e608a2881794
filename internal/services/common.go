package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"seatpool_backend/internal/models"
	"seatpool_backend/internal/repositories"
	"seatpool_backend/pkg/apperrors"
)

// Clock возвращает текущее время. В тестах подменяется.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Ключи metadata событий подписки
const (
	MetaAction         = "action"
	MetaPreviousStatus = "previous_status"
	MetaRestoredStatus = "restored_status"
	MetaReason         = "reason"
	MetaPoolID         = "pool_id"
	MetaSeatID         = "seat_id"
	MetaSeatIndex      = "seat_index"
	MetaNextRenewalAt  = "next_renewal_at"
	MetaRenewalNumber  = "renewal_number"

	ActionPoolLinked   = "pool_linked"
	ActionPoolUnlinked = "pool_unlinked"
	ActionPoolDeleted  = "pool_deleted"
	ActionPoolChanged  = "pool_changed"
)

// runInTx - одна операция = одна транзакция. Ошибка откатывает все изменения.
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperrors.InternalError(tx.Error)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// handleRepoError переводит ошибки репозиториев в AppError
func handleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrPoolNotFound):
		return apperrors.ErrPoolNotFound(err)
	case errors.Is(err, repositories.ErrSeatNotFound):
		return apperrors.ErrSeatNotFound(err)
	case errors.Is(err, repositories.ErrSubscriptionNotFound):
		return apperrors.ErrSubscriptionNotFound(err)
	case errors.Is(err, repositories.ErrDuplicate):
		return apperrors.ErrConflict(err, "store", "Record already exists")
	default:
		return apperrors.InternalError(err)
	}
}

// saveSubscription - запись с проверкой версии
func saveSubscription(tx *gorm.DB, repo repositories.SubscriptionRepository, sub *models.Subscription) error {
	if err := repo.UpdateSubscription(tx, sub); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return apperrors.ErrConcurrentModification(apperrors.DomainSubscription, sub.ID)
		}
		return handleRepoError(err)
	}
	return nil
}

// appendEvent добавляет запись в историю подписки
func appendEvent(tx *gorm.DB, repo repositories.SubscriptionEventRepository, subID string, eventType models.SubscriptionEventType, at time.Time, metadata map[string]interface{}) error {
	event := &models.SubscriptionEvent{
		SubscriptionID: subID,
		Type:           eventType,
		OccurredAt:     at,
		Metadata:       metadata,
	}
	if err := repo.CreateEvent(tx, event); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
