package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a single validation error for a field or key.
type ValidationError struct {
	Field   string         // Field name (for UI mapping)
	Rule    string         // Rule that was violated (e.g., "Required", "MaxLength")
	Message string         // Human-readable message
	Params  map[string]any // Rule parameters (e.g., {"max": 100})
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors that can be accumulated.
type ValidationErrors []ValidationError

// Error implements the error interface, combining all error messages.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a validation error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddError appends a ValidationError to the collection.
func (e *ValidationErrors) AddError(err ValidationError) {
	*e = append(*e, err)
}

// Merge combines another ValidationErrors into this collection.
func (e *ValidationErrors) Merge(other ValidationErrors) {
	*e = append(*e, other...)
}

// Fields returns all unique field names that have errors.
func (e ValidationErrors) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range e {
		if err.Field != "" && !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// ForRule returns the errors produced by a single rule.
func (e ValidationErrors) ForRule(rule string) ValidationErrors {
	var out ValidationErrors
	for _, err := range e {
		if err.Rule == rule {
			out = append(out, err)
		}
	}
	return out
}

// AsMap returns errors as a map of field name to slice of messages.
func (e ValidationErrors) AsMap() map[string][]string {
	result := make(map[string][]string)
	for _, err := range e {
		result[err.Field] = append(result[err.Field], err.Message)
	}
	return result
}

// --- Predicate functions ---

// emailPattern is intentionally loose: a local part, an @, and a domain with a dot.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsRequired checks if a string is not empty.
func IsRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// IsEmail reports whether value looks like an email address.
func IsEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// EmailAddress extracts the address from "Display Name <addr@host>" forms.
// Plain addresses are returned trimmed.
func EmailAddress(value string) string {
	value = strings.TrimSpace(value)
	if open := strings.LastIndex(value, "<"); open >= 0 && strings.HasSuffix(value, ">") {
		return strings.TrimSpace(value[open+1 : len(value)-1])
	}
	return value
}

// MinLength checks if a string has at least the minimum number of characters.
func MinLength(value string, min int) bool {
	return len([]rune(value)) >= min
}

// MaxLength checks if a string does not exceed the maximum number of characters.
func MaxLength(value string, max int) bool {
	return len([]rune(value)) <= max
}

// MatchesPattern reports whether value matches pattern. ok is false when
// the pattern does not compile.
func MatchesPattern(value, pattern string) (matched, ok bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, false
	}
	return re.MatchString(value), true
}

// ParseNumber parses value as a finite float, accepting surrounding
// whitespace. NaN and infinities are not numbers here.
func ParseNumber(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Render substitutes {name} placeholders in template with params.
func Render(template string, params map[string]any) string {
	if len(params) == 0 {
		return template
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", formatParam(v))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func formatParam(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}
