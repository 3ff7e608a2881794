package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"seatpool_backend/internal/models"
)

// registerCustomRules регистрирует правила для enum'ов из statuses.go
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-renewal-strategy", validateRenewalStrategy)
	mustRegister("is-pool-status", validatePoolStatus)
	mustRegister("is-seat-status", validateSeatStatus)
	mustRegister("is-subscription-status", validateSubscriptionStatus)
}

// Пустые значения валидны, для них есть 'required'

func validateRenewalStrategy(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.RenewalStrategy(value).Valid()
}

func validatePoolStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.PoolStatus(value).Valid()
}

func validateSeatStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.SeatStatus(value).Valid()
}

func validateSubscriptionStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.SubscriptionStatus(value).Valid()
}
