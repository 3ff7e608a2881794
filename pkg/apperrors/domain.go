package apperrors

import (
	"net/http"
	"time"
)

/*
Фабрики доменных ошибок для пулов, мест и подписок.
Каждый вызов возвращает новый экземпляр, поэтому детали можно добавлять без гонок.
*/

// =========================================================================
// Не найдено (404)
// =========================================================================

func ErrPoolNotFound(err error) *AppError {
	return wrapError(err, CodeNotFound, DomainPool, "Pool not found", http.StatusNotFound)
}

func ErrSeatNotFound(err error) *AppError {
	return wrapError(err, CodeNotFound, DomainSeat, "Seat not found", http.StatusNotFound)
}

func ErrSubscriptionNotFound(err error) *AppError {
	return wrapError(err, CodeNotFound, DomainSubscription, "Subscription not found", http.StatusNotFound)
}

// =========================================================================
// Места (409)
// =========================================================================

// ErrPoolFull - в пуле не осталось свободных мест
func ErrPoolFull(poolID string) *AppError {
	return newError(CodePoolFull, DomainPool, "No available seats in pool", http.StatusConflict).
		WithDetails(map[string]any{"pool_id": poolID})
}

// ErrInsufficientFreeSeats - уменьшение пула невозможно без освобождения мест
func ErrInsufficientFreeSeats(poolID string, toRemove, available int) *AppError {
	return newError(CodeInsufficientFreeSeats, DomainPool, "Not enough available seats to shrink pool", http.StatusConflict).
		WithDetails(map[string]any{
			"pool_id":         poolID,
			"seats_to_remove": toRemove,
			"available_seats": available,
		})
}

// ErrSeatAlreadyAssigned - место уже занято (гонка или повторное назначение)
func ErrSeatAlreadyAssigned(seatID string) *AppError {
	return newError(CodeSeatAlreadyAssigned, DomainSeat, "Seat is already assigned", http.StatusConflict).
		WithDetails(map[string]any{"seat_id": seatID})
}

// =========================================================================
// Состояния и даты
// =========================================================================

// ErrInvalidState - операция запрещена в текущем статусе
func ErrInvalidState(domain, message string, current any) *AppError {
	return newError(CodeInvalidState, domain, message, http.StatusConflict).
		WithDetails(map[string]any{"current_status": current})
}

// ErrInvalidDateRange - некорректный интервал дат
func ErrInvalidDateRange(domain, message string, from, to time.Time) *AppError {
	return newError(CodeInvalidDateRange, domain, message, http.StatusBadRequest).
		WithDetails(map[string]any{"from": from, "to": to})
}

// ErrIntegrityViolation - нарушен инвариант хранилища, автоматически не исправляется
func ErrIntegrityViolation(domain, message string, details any) *AppError {
	return newError(CodeIntegrityViolation, domain, message, http.StatusInternalServerError).WithDetails(details)
}

// ErrConcurrentModification - запись изменилась между чтением и обновлением
func ErrConcurrentModification(domain, id string) *AppError {
	return newError(CodeConflict, domain, "Record was modified concurrently, retry the operation", http.StatusConflict).
		WithDetails(map[string]any{"id": id})
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return wrapError(err, CodeConflict, domain, message, http.StatusConflict)
}
