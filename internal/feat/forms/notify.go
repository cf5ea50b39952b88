package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/cliossg/intake/pkg/cl/config"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/mail"
	"github.com/cliossg/intake/pkg/cl/render"
)

const emailTemplatesGlob = "assets/templates/email/*.html"

// Mailer sends one transactional email.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) (*mail.SendResult, error)
}

// NotifyResult is the outcome of a best-effort email.
type NotifyResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func failed(format string, args ...any) NotifyResult {
	return NotifyResult{Error: fmt.Sprintf(format, args...)}
}

// Dispatcher renders and sends submission emails. None of its methods
// return an error: every failure is folded into NotifyResult.
type Dispatcher struct {
	mailer    Mailer
	templates *template.Template
	from      string
	to        string
	timeout   time.Duration
	confirm   bool
	log       logger.Logger
}

// NewDispatcher parses the email templates found in templatesFS.
func NewDispatcher(mailer Mailer, templatesFS fs.FS, cfg *config.Config, log logger.Logger) (*Dispatcher, error) {
	tmpl, err := template.New("").Funcs(render.FuncMap()).ParseFS(templatesFS, emailTemplatesGlob)
	if err != nil {
		return nil, fmt.Errorf("cannot parse email templates: %w", err)
	}

	return &Dispatcher{
		mailer:    mailer,
		templates: tmpl,
		from:      cfg.Mail.From,
		to:        cfg.Mail.To,
		timeout:   config.Duration(cfg.Mail.Timeout, 10*time.Second),
		confirm:   cfg.Mail.ConfirmRegistrations,
		log:       log,
	}, nil
}

// detailRow is one label/value line of an email body.
type detailRow struct {
	Label string
	Value string
}

type notificationData struct {
	Kind          Kind
	Heading       string
	FormTitle     string
	TrainingTitle string
	FullName      string
	SubmissionID  string
	SubmittedAt   time.Time
	Source        string
	Contact       []detailRow
	Answers       []detailRow
}

var templateByKind = map[Kind]string{
	KindContact:              "contact.html",
	KindNewsletter:           "newsletter.html",
	KindTrainingRegistration: "training-registration.html",
}

// SendSubmissionNotification emails the team about a stored submission.
func (d *Dispatcher) SendSubmissionNotification(ctx context.Context, kind Kind, rec *SubmissionRecord, schema *FormSchema) (res NotifyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed("notification panicked: %v", r)
		}
	}()

	name, ok := templateByKind[kind]
	if !ok {
		return failed("no notification template for %s", kind)
	}

	to := d.to
	if schema != nil && schema.Settings.NotificationEmail != "" {
		to = schema.Settings.NotificationEmail
	}
	if to == "" {
		return failed("no notification recipient configured")
	}

	job := NotificationJob{
		To:       to,
		ReplyTo:  rec.Contact.ReplyAddress(),
		Subject:  notificationSubject(kind, rec),
		Template: name,
		Data:     buildNotificationData(kind, rec, schema),
	}
	return d.send(ctx, job)
}

// SendRegistrationConfirmation acknowledges a training registration to the
// registrant. It is a no-op success when confirmations are disabled.
func (d *Dispatcher) SendRegistrationConfirmation(ctx context.Context, rec *SubmissionRecord, schema *FormSchema) (res NotifyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed("confirmation panicked: %v", r)
		}
	}()

	if !d.confirm {
		return NotifyResult{Success: true}
	}
	to := rec.Contact.ReplyAddress()
	if to == "" {
		return failed("registrant has no email address")
	}

	subject := "Your registration has been received"
	if rec.TrainingTitle != "" {
		subject = "Your registration for " + rec.TrainingTitle
	}

	return d.send(ctx, NotificationJob{
		To:       to,
		Subject:  subject,
		Template: "confirmation.html",
		Data:     buildNotificationData(KindTrainingRegistration, rec, schema),
	})
}

func (d *Dispatcher) send(ctx context.Context, job NotificationJob) NotifyResult {
	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, job.Template, job.Data); err != nil {
		return failed("cannot render %s: %v", job.Template, err)
	}

	msg := mail.Message{
		From:    d.from,
		To:      []string{job.To},
		Subject: job.Subject,
		HTML:    body.String(),
		ReplyTo: job.ReplyTo,
	}
	if data, ok := job.Data.(notificationData); ok {
		msg.Text = plainText(data)
		msg.Tags = []mail.Tag{{Name: "kind", Value: strings.ReplaceAll(string(data.Kind), "-", "_")}}
	}

	return d.deliver(ctx, msg)
}

// deliver calls the provider under the dispatcher timeout. A provider that
// hangs past the deadline yields a failed result while its goroutine
// drains in the background.
func (d *Dispatcher) deliver(ctx context.Context, msg mail.Message) NotifyResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan NotifyResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failed("mail provider panicked: %v", r)
			}
		}()

		sent, err := d.mailer.Send(ctx, msg)
		var pErr *mail.ProviderError
		switch {
		case errors.As(err, &pErr):
			done <- failed("mail provider rejected the message: %s", pErr.Message)
			return
		case err != nil:
			done <- failed("%v", err)
			return
		}
		var id string
		if sent != nil {
			id = sent.ID
		}
		done <- NotifyResult{Success: true, MessageID: id}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return failed("mail provider did not answer: %v", ctx.Err())
	}
}

func notificationSubject(kind Kind, rec *SubmissionRecord) string {
	name := rec.Contact.FullName()
	if name == "" {
		name = rec.Contact.ReplyAddress()
	}

	switch kind {
	case KindNewsletter:
		return "New newsletter subscription: " + rec.Contact.ReplyAddress()
	case KindTrainingRegistration:
		if rec.TrainingTitle != "" {
			return fmt.Sprintf("New registration for %s: %s", rec.TrainingTitle, name)
		}
		return "New training registration: " + name
	default:
		return "New contact enquiry from " + name
	}
}

// canonicalKeys are response names already shown in the contact block.
var canonicalKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, list := range [][]string{
		firstNameKeys, lastNameKeys, personalEmailKeys, workEmailKeys, phoneKeys,
		organizationKeys, jobTitleKeys, messageKeys, experienceKeys,
	} {
		for _, k := range list {
			m[k] = true
		}
	}
	return m
}()

func buildNotificationData(kind Kind, rec *SubmissionRecord, schema *FormSchema) notificationData {
	c := rec.Contact
	data := notificationData{
		Kind:          kind,
		TrainingTitle: rec.TrainingTitle,
		FullName:      c.FullName(),
		SubmissionID:  rec.ID,
		SubmittedAt:   rec.SubmittedAt,
		Source:        rec.Source,
	}
	if schema != nil {
		data.FormTitle = schema.Title
	}

	switch kind {
	case KindNewsletter:
		data.Heading = "New newsletter subscription"
	case KindTrainingRegistration:
		data.Heading = "New training registration"
	default:
		data.Heading = "New contact enquiry"
	}

	addRow := func(rows []detailRow, label, value string) []detailRow {
		if strings.TrimSpace(value) == "" {
			return rows
		}
		return append(rows, detailRow{Label: label, Value: value})
	}

	data.Contact = addRow(data.Contact, "Name", c.FullName())
	data.Contact = addRow(data.Contact, "Email", c.PersonalEmail)
	if c.WorkEmail != c.PersonalEmail {
		data.Contact = addRow(data.Contact, "Work email", c.WorkEmail)
	}
	data.Contact = addRow(data.Contact, "Phone", c.Phone)
	data.Contact = addRow(data.Contact, "Organization", c.Organization)
	data.Contact = addRow(data.Contact, "Job title", c.JobTitle)
	if c.YearsExperience > 0 {
		data.Contact = addRow(data.Contact, "Years of experience", strconv.Itoa(c.YearsExperience))
	}
	data.Contact = addRow(data.Contact, "Message", c.Message)

	for _, r := range rec.Responses {
		if canonicalKeys[r.FieldName] {
			continue
		}
		label := r.FieldLabel
		if label == "" {
			label = render.Humanize(r.FieldName)
		}
		data.Answers = addRow(data.Answers, label, r.Value)
	}

	return data
}

func plainText(data notificationData) string {
	var b strings.Builder
	b.WriteString(data.Heading)
	b.WriteString("\n\n")
	for _, r := range data.Contact {
		fmt.Fprintf(&b, "%s: %s\n", r.Label, r.Value)
	}
	if len(data.Answers) > 0 {
		b.WriteString("\n")
		for _, r := range data.Answers {
			fmt.Fprintf(&b, "%s: %s\n", r.Label, r.Value)
		}
	}
	fmt.Fprintf(&b, "\nSubmission %s\n", data.SubmissionID)
	return b.String()
}
