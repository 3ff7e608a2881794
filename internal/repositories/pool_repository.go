package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seatpool_backend/internal/models"
)

type PoolFilter struct {
	Status   models.PoolStatus
	Provider string
	IsAlive  *bool
	Pagination
}

type PoolRepository interface {
	CreatePool(db *gorm.DB, pool *models.Pool) error
	FindPoolByID(db *gorm.DB, id string) (*models.Pool, error)
	FindPoolWithSeats(db *gorm.DB, id string) (*models.Pool, error)
	// LockPool - SELECT ... FOR UPDATE, сериализует изменения мест пула
	LockPool(db *gorm.DB, id string) (*models.Pool, error)
	FindPools(db *gorm.DB, filter PoolFilter) ([]models.Pool, int64, error)
	FindPoolsByStatuses(db *gorm.DB, statuses ...models.PoolStatus) ([]models.Pool, error)
	UpdatePool(db *gorm.DB, pool *models.Pool) error
	UpdateSeatCounters(db *gorm.DB, poolID string, usedSeats, maxSeats int) error
	ExpirePool(db *gorm.DB, poolID string, version int, fromStatuses []models.PoolStatus) (bool, error)
	DeletePool(db *gorm.DB, id string) error
}

type PoolRepositoryImpl struct{}

func NewPoolRepository() PoolRepository {
	return &PoolRepositoryImpl{}
}

func (r *PoolRepositoryImpl) CreatePool(db *gorm.DB, pool *models.Pool) error {
	if pool.Version == 0 {
		pool.Version = 1
	}
	return translateError(db.Omit("Seats").Create(pool).Error, ErrPoolNotFound)
}

func (r *PoolRepositoryImpl) FindPoolByID(db *gorm.DB, id string) (*models.Pool, error) {
	var pool models.Pool
	if err := db.Take(&pool, "id = ?", id).Error; err != nil {
		return nil, translateError(err, ErrPoolNotFound)
	}
	return &pool, nil
}

func (r *PoolRepositoryImpl) FindPoolWithSeats(db *gorm.DB, id string) (*models.Pool, error) {
	var pool models.Pool
	err := db.Preload("Seats", func(db *gorm.DB) *gorm.DB {
		return db.Order("seat_index ASC")
	}).Take(&pool, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, ErrPoolNotFound)
	}
	return &pool, nil
}

func (r *PoolRepositoryImpl) LockPool(db *gorm.DB, id string) (*models.Pool, error) {
	var pool models.Pool
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&pool).Error
	if err != nil {
		return nil, translateError(err, ErrPoolNotFound)
	}
	return &pool, nil
}

func (r *PoolRepositoryImpl) FindPools(db *gorm.DB, filter PoolFilter) ([]models.Pool, int64, error) {
	query := db.Model(&models.Pool{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.IsAlive != nil {
		query = query.Where("is_alive = ?", *filter.IsAlive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pools []models.Pool
	err := filter.Pagination.apply(query).Order("created_at DESC").Find(&pools).Error
	return pools, total, err
}

func (r *PoolRepositoryImpl) FindPoolsByStatuses(db *gorm.DB, statuses ...models.PoolStatus) ([]models.Pool, error) {
	var pools []models.Pool
	err := db.Where("status IN ?", statuses).Order("end_at ASC").Find(&pools).Error
	return pools, err
}

// UpdatePool сохраняет изменяемые поля и поднимает версию
func (r *PoolRepositoryImpl) UpdatePool(db *gorm.DB, pool *models.Pool) error {
	result := db.Model(&models.Pool{}).Where("id = ?", pool.ID).Updates(map[string]interface{}{
		"provider":   pool.Provider,
		"pool_type":  pool.PoolType,
		"login":      pool.Login,
		"password":   pool.Password,
		"start_at":   pool.StartAt,
		"end_at":     pool.EndAt,
		"max_seats":  pool.MaxSeats,
		"status":     pool.Status,
		"is_alive":   pool.IsAlive,
		"notes":      pool.Notes,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	pool.Version++
	return nil
}

func (r *PoolRepositoryImpl) UpdateSeatCounters(db *gorm.DB, poolID string, usedSeats, maxSeats int) error {
	result := db.Model(&models.Pool{}).Where("id = ?", poolID).Updates(map[string]interface{}{
		"used_seats": usedSeats,
		"max_seats":  maxSeats,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// ExpirePool - условная запись: срабатывает, только если версия и статус не изменились
func (r *PoolRepositoryImpl) ExpirePool(db *gorm.DB, poolID string, version int, fromStatuses []models.PoolStatus) (bool, error) {
	result := db.Model(&models.Pool{}).
		Where("id = ? AND version = ? AND status IN ?", poolID, version, fromStatuses).
		Updates(map[string]interface{}{
			"status":     models.PoolStatusExpired,
			"is_alive":   false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PoolRepositoryImpl) DeletePool(db *gorm.DB, id string) error {
	result := db.Delete(&models.Pool{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}
