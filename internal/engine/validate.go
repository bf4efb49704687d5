package engine

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed input. Validation runs before staging;
// a rejected edit never reaches the staged store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired rejects an empty (after trimming) string field.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

// ValidateMin rejects a value below floor.
func ValidateMin(field string, value, floor int) error {
	if value < floor {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d", field, floor),
		}
	}
	return nil
}
