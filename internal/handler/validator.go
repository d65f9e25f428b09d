package handler

import (
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface, turning tag failures into EINVALID domain errors.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return domain.WrapError(err, domain.EINVALID, "request.validate", "invalid request body")
	}
	return nil
}
