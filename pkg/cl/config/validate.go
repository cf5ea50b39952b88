package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/cliossg/intake/pkg/cl/validation"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by the environment variable that sets them.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})

	v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return validation.IsEmail(validation.EmailAddress(fl.Field().String()))
	})

	return v
}

// Validate checks the settings the service cannot run without and returns
// one human-readable message per problem. An empty result means the
// configuration is usable.
func (c *Config) Validate() []string {
	var problems []string

	problems = append(problems, check(c.Mail)...)
	problems = append(problems, check(c.Store)...)

	switch c.Store.Backend {
	case "cms":
		problems = append(problems, check(c.CMS)...)
	case "sqlite":
		if strings.TrimSpace(c.Store.DatabasePath) == "" {
			problems = append(problems, "INTAKE_DATABASE_PATH is required for the sqlite store")
		}
	}

	if c.Review.TokenHash != "" && !strings.HasPrefix(c.Review.TokenHash, "$2") {
		problems = append(problems, "INTAKE_REVIEW_TOKEN_HASH must be a bcrypt hash")
	}
	if len(c.Events.Brokers) > 0 && strings.TrimSpace(c.Events.Topic) == "" {
		problems = append(problems, "events.topic is required when Kafka brokers are configured")
	}
	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		problems = append(problems, "INTAKE_SHEETS_CREDENTIALS is required when a spreadsheet is configured")
	}

	return problems
}

func check(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "looseemail":
			problems = append(problems, fmt.Sprintf("%s must be a valid email address (got %q)", fe.Field(), fe.Value()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return problems
}
