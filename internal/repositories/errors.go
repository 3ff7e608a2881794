package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrPoolNotFound         = errors.New("pool not found")
	ErrSeatNotFound         = errors.New("seat not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrEventNotFound        = errors.New("subscription event not found")

	// ErrVersionConflict - условное обновление не нашло строку с ожидаемой версией
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate - нарушение уникального ключа
	ErrDuplicate = errors.New("duplicate key")
)

// pgUniqueViolation - SQLSTATE unique_violation
const pgUniqueViolation = "23505"

// translateError приводит ошибки драйверов к ошибкам репозитория
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

// Pagination - параметры страницы для списков
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) apply(db *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return db
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return db.Offset((page - 1) * p.PageSize).Limit(p.PageSize)
}
