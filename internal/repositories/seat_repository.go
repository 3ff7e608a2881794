package repositories

import (
	"time"

	"gorm.io/gorm"

	"seatpool_backend/internal/models"
)

// SeatAssignment - кому выдается место
type SeatAssignment struct {
	Email          *string
	ClientID       *string
	SubscriptionID *string
}

type SeatRepository interface {
	CreateSeats(db *gorm.DB, seats []models.Seat) error
	FindSeatByID(db *gorm.DB, id string) (*models.Seat, error)
	FindSeatsByPool(db *gorm.DB, poolID string, status models.SeatStatus) ([]models.Seat, error)
	FindFirstAvailableSeat(db *gorm.DB, poolID string) (*models.Seat, error)
	FindAvailableSeatsForRemoval(db *gorm.DB, poolID string, limit int) ([]models.Seat, error)
	FindSeatsBySubscription(db *gorm.DB, subscriptionID string) ([]models.Seat, error)
	CountSeats(db *gorm.DB, poolID string) (int64, error)
	CountSeatsByStatus(db *gorm.DB, poolID string, status models.SeatStatus) (int64, error)
	MaxSeatIndex(db *gorm.DB, poolID string) (int, error)
	AssignSeat(db *gorm.DB, seatID string, a SeatAssignment, at time.Time) (bool, error)
	ReserveSeat(db *gorm.DB, seatID string) (bool, error)
	ReleaseSeat(db *gorm.DB, seatID string, at time.Time) error
	DeleteSeats(db *gorm.DB, ids []string) error
	DeleteSeatsByPool(db *gorm.DB, poolID string) error
}

type SeatRepositoryImpl struct{}

func NewSeatRepository() SeatRepository {
	return &SeatRepositoryImpl{}
}

func (r *SeatRepositoryImpl) CreateSeats(db *gorm.DB, seats []models.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	return translateError(db.Create(&seats).Error, ErrSeatNotFound)
}

func (r *SeatRepositoryImpl) FindSeatByID(db *gorm.DB, id string) (*models.Seat, error) {
	var seat models.Seat
	if err := db.Take(&seat, "id = ?", id).Error; err != nil {
		return nil, translateError(err, ErrSeatNotFound)
	}
	return &seat, nil
}

// FindSeatsByPool - все места пула по возрастанию индекса; пустой статус - без фильтра
func (r *SeatRepositoryImpl) FindSeatsByPool(db *gorm.DB, poolID string, status models.SeatStatus) ([]models.Seat, error) {
	query := db.Where("pool_id = ?", poolID)
	if status != "" {
		query = query.Where("seat_status = ?", status)
	}
	var seats []models.Seat
	err := query.Order("seat_index ASC").Find(&seats).Error
	return seats, err
}

// FindFirstAvailableSeat - свободное место с наименьшим индексом
func (r *SeatRepositoryImpl) FindFirstAvailableSeat(db *gorm.DB, poolID string) (*models.Seat, error) {
	var seat models.Seat
	err := db.Where("pool_id = ? AND seat_status = ?", poolID, models.SeatStatusAvailable).
		Order("seat_index ASC").
		Take(&seat).Error
	if err != nil {
		return nil, translateError(err, ErrSeatNotFound)
	}
	return &seat, nil
}

// FindAvailableSeatsForRemoval - свободные места, начиная с наибольшего индекса
func (r *SeatRepositoryImpl) FindAvailableSeatsForRemoval(db *gorm.DB, poolID string, limit int) ([]models.Seat, error) {
	var seats []models.Seat
	err := db.Where("pool_id = ? AND seat_status = ?", poolID, models.SeatStatusAvailable).
		Order("seat_index DESC").
		Limit(limit).
		Find(&seats).Error
	return seats, err
}

func (r *SeatRepositoryImpl) FindSeatsBySubscription(db *gorm.DB, subscriptionID string) ([]models.Seat, error) {
	var seats []models.Seat
	err := db.Where("assigned_subscription_id = ?", subscriptionID).Find(&seats).Error
	return seats, err
}

func (r *SeatRepositoryImpl) CountSeats(db *gorm.DB, poolID string) (int64, error) {
	var count int64
	err := db.Model(&models.Seat{}).Where("pool_id = ?", poolID).Count(&count).Error
	return count, err
}

func (r *SeatRepositoryImpl) CountSeatsByStatus(db *gorm.DB, poolID string, status models.SeatStatus) (int64, error) {
	var count int64
	err := db.Model(&models.Seat{}).
		Where("pool_id = ? AND seat_status = ?", poolID, status).
		Count(&count).Error
	return count, err
}

func (r *SeatRepositoryImpl) MaxSeatIndex(db *gorm.DB, poolID string) (int, error) {
	var maxIndex int
	err := db.Model(&models.Seat{}).
		Where("pool_id = ?", poolID).
		Select("COALESCE(MAX(seat_index), 0)").
		Scan(&maxIndex).Error
	return maxIndex, err
}

// AssignSeat - условное обновление: место занимается, только если оно свободно.
// false означает, что место уже не available.
func (r *SeatRepositoryImpl) AssignSeat(db *gorm.DB, seatID string, a SeatAssignment, at time.Time) (bool, error) {
	result := db.Model(&models.Seat{}).
		Where("id = ? AND seat_status = ?", seatID, models.SeatStatusAvailable).
		Updates(map[string]interface{}{
			"seat_status":              models.SeatStatusAssigned,
			"assigned_email":           a.Email,
			"assigned_client_id":       a.ClientID,
			"assigned_subscription_id": a.SubscriptionID,
			"assigned_at":              at,
			"unassigned_at":            nil,
			"updated_at":               at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *SeatRepositoryImpl) ReserveSeat(db *gorm.DB, seatID string) (bool, error) {
	result := db.Model(&models.Seat{}).
		Where("id = ? AND seat_status = ?", seatID, models.SeatStatusAvailable).
		Updates(map[string]interface{}{
			"seat_status": models.SeatStatusReserved,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseSeat очищает все поля назначения разом
func (r *SeatRepositoryImpl) ReleaseSeat(db *gorm.DB, seatID string, at time.Time) error {
	result := db.Model(&models.Seat{}).Where("id = ?", seatID).Updates(map[string]interface{}{
		"seat_status":              models.SeatStatusAvailable,
		"assigned_email":           nil,
		"assigned_client_id":       nil,
		"assigned_subscription_id": nil,
		"assigned_at":              nil,
		"unassigned_at":            at,
		"updated_at":               at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSeatNotFound
	}
	return nil
}

func (r *SeatRepositoryImpl) DeleteSeats(db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	// Удаляем только свободные места, занятые не трогаем никогда
	result := db.Where("id IN ? AND seat_status = ?", ids, models.SeatStatusAvailable).Delete(&models.Seat{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		return ErrVersionConflict
	}
	return nil
}

func (r *SeatRepositoryImpl) DeleteSeatsByPool(db *gorm.DB, poolID string) error {
	return db.Where("pool_id = ?", poolID).Delete(&models.Seat{}).Error
}
