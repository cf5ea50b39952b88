package forms

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Candidate keys per canonical attribute, tried in order.
var (
	firstNameKeys     = []string{"firstName", "first_name", "firstname", "name"}
	lastNameKeys      = []string{"lastName", "last_name", "lastname", "surname"}
	personalEmailKeys = []string{"email", "personalEmail", "personal_email", "emailAddress", "email_address"}
	workEmailKeys     = []string{"workEmail", "work_email", "business_email", "company_email"}
	phoneKeys         = []string{"phone", "phoneNumber", "phone_number", "mobile", "telephone"}
	organizationKeys  = []string{"company", "organization", "organisation", "companyName", "company_name"}
	jobTitleKeys      = []string{"jobTitle", "job_title", "position", "role"}
	messageKeys       = []string{"message", "comments", "notes", "enquiry", "inquiry"}
	experienceKeys    = []string{"yearsOfExperience", "years_of_experience", "yearsExperience", "experience"}
)

// MapFields normalizes a raw field map onto the canonical contact
// attributes. Missing keys yield empty values.
func MapFields(raw map[string]any) CoreFields {
	personal := pick(raw, personalEmailKeys)

	work := pick(raw, workEmailKeys)
	if work == "" {
		work = personal
	}

	return CoreFields{
		FirstName:       pick(raw, firstNameKeys),
		LastName:        pick(raw, lastNameKeys),
		PersonalEmail:   personal,
		WorkEmail:       work,
		Phone:           pick(raw, phoneKeys),
		Organization:    pick(raw, organizationKeys),
		JobTitle:        pick(raw, jobTitleKeys),
		Message:         pick(raw, messageKeys),
		YearsExperience: toInt(pick(raw, experienceKeys)),
	}
}

// EmailAliasKeys lists every key treated as an email before a schema is
// known.
func EmailAliasKeys() []string {
	keys := make([]string, 0, len(personalEmailKeys)+len(workEmailKeys))
	keys = append(keys, personalEmailKeys...)
	return append(keys, workEmailKeys...)
}

// pick returns the first non-blank value among keys.
func pick(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(Stringify(raw[k])); v != "" {
			return v
		}
	}
	return ""
}

// Stringify renders a scalar client value as text. nil becomes "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// toInt coerces s to an integer. Unparsable input becomes 0.
func toInt(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt || f <= math.MinInt {
		return 0
	}
	return int(f)
}
