package forms

import (
	"strings"

	"github.com/cliossg/intake/pkg/cl/validation"
)

// Rule kinds interpreted from schema data.
const (
	RuleRequired  = "Required"
	RuleEmail     = "Email"
	RuleNumber    = "Number"
	RuleMin       = "Min"
	RuleMax       = "Max"
	RuleMinLength = "MinLength"
	RuleMaxLength = "MaxLength"
	RulePattern   = "Pattern"
)

var defaultMessages = map[string]string{
	RuleRequired:  "{label} is required",
	RuleEmail:     "{label} must be a valid email address",
	RuleNumber:    "{label} must be a number",
	RuleMin:       "{label} must be at least {min}",
	RuleMax:       "{label} must be at most {max}",
	RuleMinLength: "{label} must be at least {min} characters",
	RuleMaxLength: "{label} must be at most {max} characters",
	RulePattern:   "{label} has an invalid format",
}

// Report is the accumulated outcome of every independent check.
type Report struct {
	MissingSystem     []string
	InvalidEmails     []string
	MissingFormFields []string
	Constraints       validation.ValidationErrors
}

// Valid reports whether no check failed.
func (r *Report) Valid() bool {
	return len(r.MissingSystem) == 0 && len(r.InvalidEmails) == 0 &&
		len(r.MissingFormFields) == 0 && !r.Constraints.HasErrors()
}

// SystemErr returns a *MissingSystemFieldsError or nil.
func (r *Report) SystemErr() error {
	if len(r.MissingSystem) == 0 {
		return nil
	}
	return &MissingSystemFieldsError{Fields: r.MissingSystem}
}

// EmailErr returns an *InvalidEmailError or nil.
func (r *Report) EmailErr() error {
	if len(r.InvalidEmails) == 0 {
		return nil
	}
	return &InvalidEmailError{Fields: r.InvalidEmails}
}

// FormErr returns a *FormFieldsError or nil.
func (r *Report) FormErr() error {
	if len(r.MissingFormFields) == 0 && !r.Constraints.HasErrors() {
		return nil
	}
	return &FormFieldsError{Missing: r.MissingFormFields, Constraints: r.Constraints}
}

// Check runs every check that applies and accumulates all failures.
// Schema-driven checks run only when schema is not nil.
func Check(req *SubmissionRequest, systemFields []string, schema *FormSchema) *Report {
	r := &Report{}

	for _, key := range systemFields {
		if !validation.IsRequired(Stringify(req.Lookup(key))) {
			r.MissingSystem = append(r.MissingSystem, key)
		}
	}

	r.InvalidEmails = checkEmails(req.Fields, emailFields(schema))

	if schema == nil {
		return r
	}

	for _, f := range schema.Fields {
		value := strings.TrimSpace(Stringify(req.Fields[f.Name]))
		if value == "" {
			if f.Required {
				r.MissingFormFields = append(r.MissingFormFields, f.Name)
			}
			continue
		}
		r.Constraints.Merge(checkConstraints(f, value))
	}

	return r
}

// emailFields lists the alias keys plus every email-typed schema field.
func emailFields(schema *FormSchema) []string {
	keys := EmailAliasKeys()
	if schema == nil {
		return keys
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, f := range schema.Fields {
		if f.Type == FieldEmail && !seen[f.Name] {
			seen[f.Name] = true
			keys = append(keys, f.Name)
		}
	}
	return keys
}

func checkEmails(fields map[string]any, keys []string) []string {
	var invalid []string
	for _, k := range keys {
		value := strings.TrimSpace(Stringify(fields[k]))
		if value != "" && !validation.IsEmail(value) {
			invalid = append(invalid, k)
		}
	}
	return invalid
}

// checkConstraints evaluates the field-local rules on a non-empty value.
func checkConstraints(f FieldDefinition, value string) validation.ValidationErrors {
	var errs validation.ValidationErrors
	rules := f.Rules
	label := f.DisplayLabel()

	add := func(rule string, params map[string]any) {
		if params == nil {
			params = map[string]any{}
		}
		params["label"] = label
		tmpl := rules.Message
		if tmpl == "" {
			tmpl = defaultMessages[rule]
		}
		errs.AddError(validation.ValidationError{
			Field:   f.Name,
			Rule:    rule,
			Message: validation.Render(tmpl, params),
			Params:  params,
		})
	}

	if rules.Min != nil || rules.Max != nil || f.Type == FieldNumber {
		n, ok := validation.ParseNumber(value)
		switch {
		case !ok:
			add(RuleNumber, nil)
		default:
			if rules.Min != nil && n < *rules.Min {
				add(RuleMin, map[string]any{"min": *rules.Min})
			}
			if rules.Max != nil && n > *rules.Max {
				add(RuleMax, map[string]any{"max": *rules.Max})
			}
		}
	}

	if rules.MinLength != nil && !validation.MinLength(value, *rules.MinLength) {
		add(RuleMinLength, map[string]any{"min": *rules.MinLength})
	}
	if rules.MaxLength != nil && !validation.MaxLength(value, *rules.MaxLength) {
		add(RuleMaxLength, map[string]any{"max": *rules.MaxLength})
	}

	if rules.Pattern != "" {
		// Patterns that do not compile are ignored.
		if matched, ok := validation.MatchesPattern(value, rules.Pattern); ok && !matched {
			add(RulePattern, nil)
		}
	}

	return errs
}
