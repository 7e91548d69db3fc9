package validator

import (
	"github.com/go-playground/validator/v10"

	apperrors "medbook/pkg/errors"
)

// Validator wraps struct tag validation and converts failures into the
// application error taxonomy with per-field details.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Internal("Validation failed", err)
	}

	details := make(map[string]any, len(invalid))
	for _, fieldErr := range invalid {
		details[fieldErr.Field()] = fieldMessage(fieldErr)
	}

	return apperrors.Validation("Request failed validation", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is too short or too small (min " + fe.Param() + ")"
	case "max":
		return "is too long or too large (max " + fe.Param() + ")"
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
