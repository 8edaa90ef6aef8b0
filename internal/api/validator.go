package api

import "github.com/go-playground/validator/v10"

// RequestValidator plugs validator/v10 into echo's c.Validate
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates an echo validator
func NewRequestValidator(validate *validator.Validate) *RequestValidator {
	return &RequestValidator{validate: validate}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
