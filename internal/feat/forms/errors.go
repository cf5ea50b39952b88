package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cliossg/intake/pkg/cl/validation"
)

var (
	ErrFormNotFound       = errors.New("form not found")
	ErrTrainingNotFound   = errors.New("training not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrStoreUnavailable   = errors.New("content store unavailable")
	ErrInvalidStatus      = errors.New("invalid submission status")
)

// MissingSystemFieldsError names every required identifier that was absent.
type MissingSystemFieldsError struct {
	Fields []string
}

func (e *MissingSystemFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidEmailError names every email-typed field with a malformed value.
type InvalidEmailError struct {
	Fields []string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid email format: %s", strings.Join(e.Fields, ", "))
}

// FormFieldsError reports schema-driven failures: required fields left
// blank and field-local constraint violations.
type FormFieldsError struct {
	Missing     []string
	Constraints validation.ValidationErrors
}

func (e *FormFieldsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing form fields: "+strings.Join(e.Missing, ", "))
	}
	if e.Constraints.HasErrors() {
		parts = append(parts, e.Constraints.Error())
	}
	return strings.Join(parts, "; ")
}

// storeError wraps a backend failure so callers can match ErrStoreUnavailable
// while the cause stays in logs.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: cannot %s: %v", ErrStoreUnavailable, op, err)
}
