package validation

import (
	"testing"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"ada@example.com", true},
		{"a@b.co", true},
		{"first.last+tag@sub.example.org", true},
		{"ada@localhost", false},
		{"ada.example.com", false},
		{"ada @example.com", false},
		{"@example.com", false},
		{"ada@", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsEmail(tt.email); got != tt.want {
				t.Errorf("IsEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestEmailAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ada@example.com", "ada@example.com"},
		{"  ada@example.com ", "ada@example.com"},
		{"Acme HR <hello@acme.com>", "hello@acme.com"},
		{"<hello@acme.com>", "hello@acme.com"},
	}

	for _, tt := range tests {
		if got := EmailAddress(tt.in); got != tt.want {
			t.Errorf("EmailAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchesPattern(t *testing.T) {
	matched, ok := MatchesPattern("AB-123", `^[A-Z]{2}-\d+$`)
	if !ok || !matched {
		t.Errorf("expected match, got matched=%v ok=%v", matched, ok)
	}

	_, ok = MatchesPattern("anything", `([`)
	if ok {
		t.Error("expected invalid pattern to report ok=false")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{" 42 ", 42, true},
		{"-3.5", -3.5, true},
		{"1e3", 1000, true},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"+Infinity", 0, false},
		{"-inf", 0, false},
		{"1e400", 0, false},
		{"twelve", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRender(t *testing.T) {
	got := Render("{label} must be between {min} and {max}", map[string]any{
		"label": "Years of experience",
		"min":   1.0,
		"max":   40.5,
	})
	want := "Years of experience must be between 1 and 40.5"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestValidationErrorsAccumulate(t *testing.T) {
	var errs ValidationErrors
	errs.Add("email", "is required")
	errs.AddError(ValidationError{Field: "age", Rule: "Min", Message: "too small"})
	errs.Merge(ValidationErrors{{Field: "email", Rule: "Email", Message: "is invalid"}})

	if !errs.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := errs.Fields(); len(got) != 2 {
		t.Errorf("Fields() = %v, want 2 unique fields", got)
	}
	if got := errs.AsMap()["email"]; len(got) != 2 {
		t.Errorf("AsMap()[email] = %v, want 2 messages", got)
	}
	if got := errs.ForRule("Min"); len(got) != 1 || got[0].Field != "age" {
		t.Errorf("ForRule(Min) = %v", got)
	}
	if errs.Error() == "" {
		t.Error("expected combined message")
	}
}
