package repositories

import (
	"gorm.io/gorm"

	"seatpool_backend/internal/models"
)

// SubscriptionEventRepository - только добавление и чтение, события не меняются
type SubscriptionEventRepository interface {
	CreateEvent(db *gorm.DB, event *models.SubscriptionEvent) error
	FindEventsBySubscription(db *gorm.DB, subscriptionID string) ([]models.SubscriptionEvent, error)
	FindLatestEvent(db *gorm.DB, subscriptionID string, eventType models.SubscriptionEventType) (*models.SubscriptionEvent, error)
	CountEvents(db *gorm.DB, subscriptionID string, eventType models.SubscriptionEventType) (int64, error)
}

type SubscriptionEventRepositoryImpl struct{}

func NewSubscriptionEventRepository() SubscriptionEventRepository {
	return &SubscriptionEventRepositoryImpl{}
}

func (r *SubscriptionEventRepositoryImpl) CreateEvent(db *gorm.DB, event *models.SubscriptionEvent) error {
	return db.Create(event).Error
}

func (r *SubscriptionEventRepositoryImpl) FindEventsBySubscription(db *gorm.DB, subscriptionID string) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	err := db.Where("subscription_id = ?", subscriptionID).
		Order("occurred_at ASC").
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *SubscriptionEventRepositoryImpl) FindLatestEvent(db *gorm.DB, subscriptionID string, eventType models.SubscriptionEventType) (*models.SubscriptionEvent, error) {
	var event models.SubscriptionEvent
	err := db.Where("subscription_id = ? AND type = ?", subscriptionID, eventType).
		Order("occurred_at DESC").
		Order("created_at DESC").
		Take(&event).Error
	if err != nil {
		return nil, translateError(err, ErrEventNotFound)
	}
	return &event, nil
}

func (r *SubscriptionEventRepositoryImpl) CountEvents(db *gorm.DB, subscriptionID string, eventType models.SubscriptionEventType) (int64, error) {
	var count int64
	query := db.Model(&models.SubscriptionEvent{}).Where("subscription_id = ?", subscriptionID)
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	err := query.Count(&count).Error
	return count, err
}
