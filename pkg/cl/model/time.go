package model

import (
	"database/sql"
	"time"
)

// Now returns the current time in UTC, truncated to milliseconds so it
// survives a round trip through JSON and SQLite unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NullTimeFromPtr converts *time.Time to sql.NullTime.
func NullTimeFromPtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// PtrFromNullTime converts sql.NullTime to *time.Time.
// Returns nil if the value is not valid.
func PtrFromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
