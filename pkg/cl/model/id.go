package model

import (
	"github.com/google/uuid"
)

// NewID generates a new record identifier.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether s is a well-formed, non-nil identifier.
func IsValidID(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id != uuid.Nil
}
