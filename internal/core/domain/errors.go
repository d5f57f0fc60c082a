package domain

import "fmt"

// FieldError reports an invalid entity field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func requireText(field, value string) error {
	if value == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
