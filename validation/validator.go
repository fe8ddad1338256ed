package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/flowtorch/errors"
)

// Validator collects field errors. Checks are chainable and never stop
// early, so one pass reports every problem.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{
		errors: make([]FieldError, 0),
	}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Messages returns the collected errors as "field: message" strings.
func (v *Validator) Messages() []string {
	return Messages(v.errors)
}

// Messages formats field errors as "field: message" strings.
func Messages(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.String()
	}
	return out
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	appErr := errors.Validation(strings.Join(v.Messages(), "; "))
	appErr.Details = map[string]any{
		"fields": v.errors,
	}
	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Present checks that a value was supplied at all.
func (v *Validator) Present(field string, value any, ok bool) *Validator {
	if !ok || value == nil {
		v.AddError(field, "is required")
	}
	return v
}

// OptionalUUID checks if a non-empty string is a valid UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// MaxLength checks if a string is within max length.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	if len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be %d characters or less", maxLen))
	}
	return v
}

// MinLength checks if a string meets minimum length.
func (v *Validator) MinLength(field, value string, minLen int) *Validator {
	if len(value) < minLen {
		v.AddError(field, fmt.Sprintf("must be at least %d characters", minLen))
	}
	return v
}

// Range checks if a number is within a range.
func (v *Validator) Range(field string, value, minVal, maxVal float64) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %s and %s", num(minVal), num(maxVal)))
	}
	return v
}

// Min checks if a number meets minimum value.
func (v *Validator) Min(field string, value, minVal float64) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %s", num(minVal)))
	}
	return v
}

// Max checks if a number is within max value.
func (v *Validator) Max(field string, value, maxVal float64) *Validator {
	if value > maxVal {
		v.AddError(field, fmt.Sprintf("must be %s or less", num(maxVal)))
	}
	return v
}

// MinItems checks the length of a list.
func (v *Validator) MinItems(field string, n, minItems int) *Validator {
	if n < minItems {
		v.AddError(field, fmt.Sprintf("must contain at least %d item(s)", minItems))
	}
	return v
}

// MaxItems checks the length of a list.
func (v *Validator) MaxItems(field string, n, maxItems int) *Validator {
	if n > maxItems {
		v.AddError(field, fmt.Sprintf("must contain at most %d item(s)", maxItems))
	}
	return v
}

// Pattern checks if a string matches a regex pattern.
func (v *Validator) Pattern(field, value string, re *regexp.Regexp) *Validator {
	if value == "" || re == nil {
		return v
	}
	if !re.MatchString(value) {
		v.AddError(field, "does not match required format")
	}
	return v
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Identifier checks that a non-empty string is a valid variable name.
func (v *Validator) Identifier(field, value string) *Validator {
	if value == "" {
		return v
	}
	if !identifierPattern.MatchString(value) {
		v.AddError(field, "must be a valid identifier")
	}
	return v
}

// OneOf checks if a value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// Required validates a single required field and returns an error if empty.
func Required(field, value string) error {
	v := New().Required(field, value)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// IsIdentifier reports whether s is a valid variable name.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
