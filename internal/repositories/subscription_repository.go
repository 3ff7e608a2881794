package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seatpool_backend/internal/models"
)

type SubscriptionFilter struct {
	Status    models.SubscriptionStatus
	ClientID  string
	ServiceID string
	PoolID    string
	Pagination
}

type SubscriptionRepository interface {
	CreateSubscription(db *gorm.DB, sub *models.Subscription) error
	FindSubscriptionByID(db *gorm.DB, id string) (*models.Subscription, error)
	LockSubscription(db *gorm.DB, id string) (*models.Subscription, error)
	FindSubscriptions(db *gorm.DB, filter SubscriptionFilter) ([]models.Subscription, int64, error)
	FindSubscriptionsByPool(db *gorm.DB, poolID string) ([]models.Subscription, error)
	FindSubscriptionsByStatuses(db *gorm.DB, statuses ...models.SubscriptionStatus) ([]models.Subscription, error)
	// UpdateSubscription - запись с проверкой версии (optimistic locking)
	UpdateSubscription(db *gorm.DB, sub *models.Subscription) error
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

func (r *SubscriptionRepositoryImpl) CreateSubscription(db *gorm.DB, sub *models.Subscription) error {
	if sub.Version == 0 {
		sub.Version = 1
	}
	return translateError(db.Create(sub).Error, ErrSubscriptionNotFound)
}

func (r *SubscriptionRepositoryImpl) FindSubscriptionByID(db *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Take(&sub, "id = ?", id).Error; err != nil {
		return nil, translateError(err, ErrSubscriptionNotFound)
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) LockSubscription(db *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&sub).Error
	if err != nil {
		return nil, translateError(err, ErrSubscriptionNotFound)
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindSubscriptions(db *gorm.DB, filter SubscriptionFilter) ([]models.Subscription, int64, error) {
	query := db.Model(&models.Subscription{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ServiceID != "" {
		query = query.Where("service_id = ?", filter.ServiceID)
	}
	if filter.PoolID != "" {
		query = query.Where("resource_pool_id = ?", filter.PoolID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Subscription
	err := filter.Pagination.apply(query).Order("next_renewal_at ASC").Find(&subs).Error
	return subs, total, err
}

func (r *SubscriptionRepositoryImpl) FindSubscriptionsByPool(db *gorm.DB, poolID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Where("resource_pool_id = ?", poolID).Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) FindSubscriptionsByStatuses(db *gorm.DB, statuses ...models.SubscriptionStatus) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Where("status IN ?", statuses).Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) UpdateSubscription(db *gorm.DB, sub *models.Subscription) error {
	result := db.Model(&models.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"current_cycle_start_at": sub.CurrentCycleStartAt,
			"last_renewal_at":        sub.LastRenewalAt,
			"next_renewal_at":        sub.NextRenewalAt,
			"custom_next_renewal_at": sub.CustomNextRenewalAt,
			"target_end_at":          sub.TargetEndAt,
			"interval_days":          sub.IntervalDays,
			"strategy":               sub.Strategy,
			"status":                 sub.Status,
			"overdue_reason":         sub.OverdueReason,
			"iterations_done":        sub.IterationsDone,
			"resource_pool_id":       sub.ResourcePoolID,
			"resource_pool_seat_id":  sub.ResourcePoolSeatID,
			"notes":                  sub.Notes,
			"version":                sub.Version + 1,
			"updated_at":             time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	sub.Version++
	return nil
}
