package validation

import (
	"fmt"
	"time"
	"unicode/utf8"

	errors "github.com/frahmantamala/safety-hazards/internal"
)

// ValidatorFunc checks one field value. It returns the failure message, or
// "" when the value is acceptable.
type ValidatorFunc func(value string) string

type rule struct {
	check ValidatorFunc
	code  errors.ErrorCode
}

type FieldValidator struct {
	FieldName string
	Value     string
	rules     []rule
}

// ValidationBuilder collects field rules and reports every failing field
// at once. Lengths count runes, not bytes.
type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{}
}

func (v *ValidationBuilder) Field(name, value string) *FieldValidator {
	fv := &FieldValidator{FieldName: name, Value: value}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) add(code errors.ErrorCode, check ValidatorFunc) *FieldValidator {
	fv.rules = append(fv.rules, rule{check: check, code: code})
	return fv
}

func (fv *FieldValidator) Required(code errors.ErrorCode) *FieldValidator {
	return fv.add(code, func(value string) string {
		if value == "" {
			return fmt.Sprintf("%s is required", fv.FieldName)
		}
		return ""
	})
}

func (fv *FieldValidator) MinLength(min int, code errors.ErrorCode) *FieldValidator {
	return fv.add(code, func(value string) string {
		if utf8.RuneCountInString(value) < min {
			return fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
		}
		return ""
	})
}

func (fv *FieldValidator) MaxLength(max int, code errors.ErrorCode) *FieldValidator {
	return fv.add(code, func(value string) string {
		if utf8.RuneCountInString(value) > max {
			return fmt.Sprintf("%s must be at most %d characters", fv.FieldName, max)
		}
		return ""
	})
}

// Date accepts an empty value or one matching layout.
func (fv *FieldValidator) Date(layout string, code errors.ErrorCode) *FieldValidator {
	return fv.add(code, func(value string) string {
		if value == "" {
			return ""
		}
		if _, err := time.Parse(layout, value); err != nil {
			return fmt.Sprintf("%s must be formatted as YYYY-MM-DD", fv.FieldName)
		}
		return ""
	})
}

func (fv *FieldValidator) Custom(code errors.ErrorCode, check ValidatorFunc) *FieldValidator {
	return fv.add(code, check)
}

// Validate runs every rule. Only the first failure per field is reported.
func (v *ValidationBuilder) Validate() error {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, r := range field.rules {
			if msg := r.check(field.Value); msg != "" {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: msg,
					Code:    string(r.code),
				})
				break
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}
