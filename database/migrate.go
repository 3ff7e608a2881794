package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"seatpool_backend/internal/logger"
	"seatpool_backend/internal/models"
)

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	start := time.Now()

	err := db.AutoMigrate(
		&models.Pool{},
		&models.Seat{},
		&models.Subscription{},
		&models.SubscriptionEvent{},
	)
	logger.DBLog("auto_migrate", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	logger.Info("auto migrate completed")
	return nil
}
