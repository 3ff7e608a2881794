package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

const (
	// Системные ошибки
	CodeInternalError ErrorCode = "INTERNAL_ERROR"

	// Общие ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"

	// Пулы и места
	CodePoolFull              ErrorCode = "POOL_FULL"
	CodeInsufficientFreeSeats ErrorCode = "INSUFFICIENT_FREE_SEATS"
	CodeSeatAlreadyAssigned   ErrorCode = "SEAT_ALREADY_ASSIGNED"

	// Жизненный цикл подписки
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeInvalidDateRange   ErrorCode = "INVALID_DATE_RANGE"
	CodeIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"
)

// Домены ошибок
const (
	DomainPool         = "pool"
	DomainSeat         = "seat"
	DomainSubscription = "subscription"
	DomainSystem       = "system"
	DomainRequest      = "request"
)
