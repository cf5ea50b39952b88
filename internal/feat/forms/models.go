package forms

import (
	"time"
)

// Kind identifies which public form a submission came from.
type Kind string

const (
	KindContact              Kind = "contact"
	KindNewsletter           Kind = "newsletter"
	KindTrainingRegistration Kind = "training-registration"
)

// Status is the back-office review state of a submission.
type Status string

const (
	StatusNew       Status = "new"
	StatusReviewed  Status = "reviewed"
	StatusContacted Status = "contacted"
	StatusArchived  Status = "archived"
)

// Field types with dedicated rules.
const (
	FieldText     = "text"
	FieldEmail    = "email"
	FieldNumber   = "number"
	FieldTextarea = "textarea"
	FieldSelect   = "select"
	FieldCheckbox = "checkbox"
	FieldPhone    = "tel"
)

// ClientInfo is request metadata captured with every submission.
type ClientInfo struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// SubmissionRequest is the parsed body of one public form post.
type SubmissionRequest struct {
	FormID     string
	TrainingID string
	Source     string
	Fields     map[string]any
	Client     ClientInfo
}

// Lookup returns the raw value for key, checking identifiers before fields.
func (r *SubmissionRequest) Lookup(key string) any {
	switch key {
	case "formId", "registrationFormId":
		return r.FormID
	case "trainingId":
		return r.TrainingID
	}
	return r.Fields[key]
}

// FieldRules are the optional, field-local constraints of a schema field.
type FieldRules struct {
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	// Message overrides the default message for any rule on this field.
	// Supports {label}, {min} and {max}.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// FieldDefinition describes one input of a form.
type FieldDefinition struct {
	Name     string     `json:"name" yaml:"name"`
	Label    string     `json:"label" yaml:"label"`
	Type     string     `json:"type" yaml:"type"`
	Required bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Options  []string   `json:"options,omitempty" yaml:"options,omitempty"`
	Rules    FieldRules `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// DisplayLabel returns the label, falling back to the field name.
func (f FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// FormSettings are the per-form behaviours authored in the content store.
type FormSettings struct {
	SuccessMessage    string `json:"successMessage,omitempty" yaml:"success_message,omitempty"`
	RedirectURL       string `json:"redirectUrl,omitempty" yaml:"redirect_url,omitempty"`
	NotificationEmail string `json:"notificationEmail,omitempty" yaml:"notification_email,omitempty"`
}

// FormSchema is a read-only form definition owned by the content store.
// Field names are unique within a schema.
type FormSchema struct {
	ID            string            `json:"id" yaml:"id"`
	Title         string            `json:"title" yaml:"title"`
	Kind          Kind              `json:"kind" yaml:"kind"`
	TrainingID    string            `json:"trainingId,omitempty" yaml:"training_id,omitempty"`
	TrainingTitle string            `json:"trainingTitle,omitempty" yaml:"-"`
	Fields        []FieldDefinition `json:"fields" yaml:"fields"`
	Settings      FormSettings      `json:"settings" yaml:"settings"`
}

// Field returns the definition named name, if declared.
func (s *FormSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Training is the parent programme of a registration.
type Training struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// CoreFields are the canonical contact attributes every record carries.
type CoreFields struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PersonalEmail   string `json:"personalEmail"`
	WorkEmail       string `json:"workEmail"`
	Phone           string `json:"phone"`
	Organization    string `json:"organization"`
	JobTitle        string `json:"jobTitle"`
	Message         string `json:"message"`
	YearsExperience int    `json:"yearsExperience"`
}

// FullName joins first and last name.
func (c CoreFields) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// ReplyAddress is where a human follow-up should go.
func (c CoreFields) ReplyAddress() string {
	if c.PersonalEmail != "" {
		return c.PersonalEmail
	}
	return c.WorkEmail
}

// Response is one schema-driven answer preserved verbatim.
type Response struct {
	FieldName  string `json:"fieldName"`
	FieldLabel string `json:"fieldLabel"`
	Value      string `json:"value"`
	FieldType  string `json:"fieldType"`
}

// SubmissionRecord is the persisted form of one submission.
type SubmissionRecord struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	FormID        string     `json:"formId,omitempty"`
	TrainingID    string     `json:"trainingId,omitempty"`
	TrainingTitle string     `json:"trainingTitle,omitempty"`
	Contact       CoreFields `json:"contact"`
	Responses     []Response `json:"responses"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	Status        Status     `json:"status"`
	Source        string     `json:"source"`
	Client        ClientInfo `json:"client"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
}

// NotificationJob describes one email to send. It is never persisted.
type NotificationJob struct {
	To       string
	ReplyTo  string
	Subject  string
	Template string
	Data     any
}

// Receipt is what a successful submission returns to the caller.
type Receipt struct {
	SubmissionID string `json:"submissionId"`
	Message      string `json:"message"`
	RedirectURL  string `json:"redirectUrl,omitempty"`
}

// ListFilter narrows back-office listings.
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
}
