package forms

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/cliossg/intake/pkg/cl/config"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/mail"
	"github.com/cliossg/intake/pkg/cl/model"
)

type stubMailer struct {
	sent []mail.Message
	send func(ctx context.Context, msg mail.Message) (*mail.SendResult, error)
}

func (m *stubMailer) Send(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
	m.sent = append(m.sent, msg)
	if m.send != nil {
		return m.send(ctx, msg)
	}
	return &mail.SendResult{ID: "msg_1"}, nil
}

func newTestDispatcher(t *testing.T, mailer Mailer, to string) *Dispatcher {
	t.Helper()
	cfg := &config.Config{Mail: config.MailConfig{From: "noreply@acme.test", To: to, Timeout: "100ms"}}
	d, err := NewDispatcher(mailer, os.DirFS("../../.."), cfg, logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func sampleRecord() *SubmissionRecord {
	return &SubmissionRecord{
		ID:   model.NewID(),
		Kind: KindTrainingRegistration,
		Contact: CoreFields{
			FirstName:     "Ada",
			LastName:      "Lovelace",
			PersonalEmail: "ada@x.com",
			WorkEmail:     "ada@x.com",
		},
		Responses: []Response{
			{FieldName: "firstName", FieldLabel: "First name", Value: "Ada", FieldType: FieldText},
			{FieldName: "dietary", FieldLabel: "Dietary requirements", Value: "vegan", FieldType: FieldText},
			{FieldName: "parking", FieldLabel: "", Value: "yes", FieldType: FieldText},
		},
		TrainingTitle: "Leading Change",
		SubmittedAt:   model.Now(),
		Status:        StatusNew,
	}
}

func TestSendSubmissionNotification(t *testing.T) {
	mailer := &stubMailer{}
	d := newTestDispatcher(t, mailer, "team@acme.test")

	res := d.SendSubmissionNotification(context.Background(), KindTrainingRegistration, sampleRecord(), nil)
	if !res.Success || res.MessageID != "msg_1" {
		t.Fatalf("result = %+v", res)
	}

	msg := mailer.sent[0]
	if msg.To[0] != "team@acme.test" || msg.ReplyTo != "ada@x.com" || msg.From != "noreply@acme.test" {
		t.Errorf("envelope = %+v", msg)
	}
	if msg.Subject != "New registration for Leading Change: Ada Lovelace" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	for _, want := range []string{"Leading Change", "Dietary requirements", "vegan", "Parking"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("HTML misses %q", want)
		}
	}
	for _, unwanted := range []string{"Work email", "Phone", "Years of experience"} {
		if strings.Contains(msg.HTML, unwanted) {
			t.Errorf("HTML shows blank or duplicate row %q", unwanted)
		}
	}
	if !strings.Contains(msg.Text, "Dietary requirements: vegan") {
		t.Errorf("Text = %q", msg.Text)
	}
}

func TestSendSubmissionNotificationSubjects(t *testing.T) {
	rec := sampleRecord()
	tests := []struct {
		kind Kind
		want string
	}{
		{KindContact, "New contact enquiry from Ada Lovelace"},
		{KindNewsletter, "New newsletter subscription: ada@x.com"},
		{KindTrainingRegistration, "New registration for Leading Change: Ada Lovelace"},
	}

	for _, tt := range tests {
		if got := notificationSubject(tt.kind, rec); got != tt.want {
			t.Errorf("notificationSubject(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestSendSubmissionNotificationFailures(t *testing.T) {
	tests := []struct {
		name string
		to   string
		kind Kind
		send func(ctx context.Context, msg mail.Message) (*mail.SendResult, error)
	}{
		{
			name: "provider error",
			to:   "team@acme.test",
			kind: KindContact,
			send: func(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
				return nil, errors.New("503 service unavailable")
			},
		},
		{
			name: "provider panic",
			to:   "team@acme.test",
			kind: KindContact,
			send: func(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
				panic("boom")
			},
		},
		{
			name: "provider timeout",
			to:   "team@acme.test",
			kind: KindContact,
			send: func(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		{
			name: "no recipient",
			to:   "",
			kind: KindContact,
		},
		{
			name: "unknown kind",
			to:   "team@acme.test",
			kind: Kind("webinar"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, &stubMailer{send: tt.send}, tt.to)
			res := d.SendSubmissionNotification(context.Background(), tt.kind, sampleRecord(), nil)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error == "" {
				t.Error("expected an error description")
			}
		})
	}
}

func TestSchemaRecipientOverridesDefault(t *testing.T) {
	mailer := &stubMailer{}
	d := newTestDispatcher(t, mailer, "team@acme.test")
	schema := &FormSchema{Title: "Registration", Settings: FormSettings{NotificationEmail: "trainings@acme.test"}}

	d.SendSubmissionNotification(context.Background(), KindTrainingRegistration, sampleRecord(), schema)
	if mailer.sent[0].To[0] != "trainings@acme.test" {
		t.Errorf("To = %v", mailer.sent[0].To)
	}
}

func TestRegistrationConfirmationDisabled(t *testing.T) {
	mailer := &stubMailer{}
	d := newTestDispatcher(t, mailer, "team@acme.test")

	res := d.SendRegistrationConfirmation(context.Background(), sampleRecord(), nil)
	if !res.Success || len(mailer.sent) != 0 {
		t.Errorf("result = %+v, sent = %d", res, len(mailer.sent))
	}
}

func TestProviderErrorIsReported(t *testing.T) {
	mailer := &stubMailer{send: func(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
		return nil, &mail.ProviderError{Message: "Invalid from field", Err: errors.New("[ERROR]: Invalid from field")}
	}}
	d := newTestDispatcher(t, mailer, "team@acme.test")

	res := d.SendSubmissionNotification(context.Background(), KindContact, sampleRecord(), nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "rejected") || !strings.Contains(res.Error, "Invalid from field") {
		t.Errorf("Error = %q", res.Error)
	}
}
