package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError - ошибка сервиса пулов и подписок. HTTPCode выбирает статус ответа,
// Code и Domain уходят клиенту в теле.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Domain   string      `json:"domain"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s/%s: %s", e.Domain, e.Code, e.Message)
	}
	return fmt.Sprintf("%s/%s: %s: %v", e.Domain, e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails возвращает копию ошибки с деталями, исходная не меняется
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(code ErrorCode, domain, message string, status int) *AppError {
	return &AppError{Code: code, Domain: domain, Message: message, HTTPCode: status}
}

func wrapError(err error, code ErrorCode, domain, message string, status int) *AppError {
	appErr := newError(code, domain, message, status)
	appErr.Err = err
	return appErr
}

// AsAppError ищет *AppError в цепочке
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode проверяет код ошибки по всей цепочке
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// InternalError - сбой хранилища или другой неожиданный отказ (500)
func InternalError(err error) *AppError {
	return wrapError(err, CodeInternalError, DomainSystem, "Internal server error", http.StatusInternalServerError)
}

// ValidationError - тело запроса не прошло проверку тегов validate
func ValidationError(details interface{}) *AppError {
	return newError(CodeValidationFailed, DomainRequest, "Validation failed", http.StatusBadRequest).WithDetails(details)
}

// NewBadRequestError - некорректные параметры пути или запроса
func NewBadRequestError(message string) *AppError {
	return newError(CodeValidationFailed, DomainRequest, message, http.StatusBadRequest)
}
