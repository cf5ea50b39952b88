package forms

// Endpoint describes how one public route runs the submission pipeline.
type Endpoint struct {
	Kind Kind
	Path string
	// SystemFields must be present and non-blank before anything else runs.
	SystemFields []string
	// Schema is the built-in schema used when none is fetched.
	Schema *FormSchema
	// FetchSchema makes the form id mandatory for a store lookup. When
	// false, a supplied form id still selects a stored schema.
	FetchSchema    bool
	FetchTraining  bool
	DefaultSource  string
	SuccessMessage string
}

var contactSchema = &FormSchema{
	ID:    "builtin-contact",
	Title: "Contact",
	Kind:  KindContact,
	Fields: []FieldDefinition{
		{Name: "firstName", Label: "First name", Type: FieldText, Required: true},
		{Name: "lastName", Label: "Last name", Type: FieldText, Required: true},
		{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
		{Name: "phone", Label: "Phone", Type: FieldPhone},
		{Name: "company", Label: "Company", Type: FieldText},
		{Name: "message", Label: "Message", Type: FieldTextarea, Required: true},
	},
}

var newsletterSchema = &FormSchema{
	ID:    "builtin-newsletter",
	Title: "Newsletter",
	Kind:  KindNewsletter,
	Fields: []FieldDefinition{
		{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
		{Name: "firstName", Label: "First name", Type: FieldText},
	},
}

var (
	ContactEndpoint = Endpoint{
		Kind:           KindContact,
		Path:           "/api/contact",
		Schema:         contactSchema,
		DefaultSource:  "website-contact-form",
		SuccessMessage: "Thank you for your message. We will get back to you shortly.",
	}

	NewsletterEndpoint = Endpoint{
		Kind:           KindNewsletter,
		Path:           "/api/newsletter",
		SystemFields:   []string{"email"},
		Schema:         newsletterSchema,
		DefaultSource:  "website-newsletter",
		SuccessMessage: "Thank you for subscribing to our newsletter.",
	}

	TrainingEndpoint = Endpoint{
		Kind:           KindTrainingRegistration,
		Path:           "/api/training-registration",
		SystemFields:   []string{"registrationFormId", "trainingId"},
		FetchSchema:    true,
		FetchTraining:  true,
		DefaultSource:  "website-training-registration",
		SuccessMessage: "Thank you for registering. We will be in touch with the details.",
	}
)

// Endpoints lists every public submission route.
func Endpoints() []Endpoint {
	return []Endpoint{ContactEndpoint, NewsletterEndpoint, TrainingEndpoint}
}
