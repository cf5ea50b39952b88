package model

import (
	"database/sql"
	"testing"
	"time"
)

func TestNewIDIsUniqueAndValid(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatalf("NewID() returned the same value twice: %s", a)
	}
	if !IsValidID(a) {
		t.Errorf("IsValidID(%q) = false", a)
	}
	if IsValidID("not-an-id") || IsValidID("00000000-0000-0000-0000-000000000000") {
		t.Error("expected malformed and nil ids to be invalid")
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	if got := PtrFromNullTime(NullTimeFromPtr(nil)); got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	now := Now()
	got := PtrFromNullTime(NullTimeFromPtr(&now))
	if got == nil || !got.Equal(now) {
		t.Errorf("round trip = %v, want %v", got, now)
	}

	if PtrFromNullTime(sql.NullTime{Time: time.Now()}) != nil {
		t.Error("expected invalid NullTime to map to nil")
	}
}
