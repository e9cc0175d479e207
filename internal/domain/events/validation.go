package events

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EventInput is the create payload. CompanyID and StartsAt are pointers so a
// missing value is distinguishable from zero.
type EventInput struct {
	CompanyID   *int64     `json:"company_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required"`
	StartsAt    *time.Time `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Location    string     `json:"location" validate:"required,max=200"`
	Category    string     `json:"category" validate:"required,max=120"`
	Price       string     `json:"price" validate:"required,max=80"`
	Featured    bool       `json:"featured"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateEventInput checks struct constraints and the time ordering.
func ValidateEventInput(v *validator.Validate, input EventInput) error {
	if err := v.Struct(input); err != nil {
		return translateValidationError(err)
	}
	if input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return ValidationError{Field: "ends_at", Message: "must be on or after starts_at"}
	}
	return nil
}

// validateEvent re-checks a stored event after a patch has been applied.
func validateEvent(v *validator.Validate, event Event) error {
	companyID := event.CompanyID
	startsAt := event.StartsAt
	return ValidateEventInput(v, EventInput{
		CompanyID:   &companyID,
		Title:       event.Title,
		Description: event.Description,
		StartsAt:    &startsAt,
		EndsAt:      event.EndsAt,
		Location:    event.Location,
		Category:    event.Category,
		Price:       event.Price,
		Featured:    event.Featured,
	})
}

func translateValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ValidationError{Message: err.Error()}
	}
	first := fieldErrs[0]
	return ValidationError{Field: first.Field(), Message: validationMessage(first)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
