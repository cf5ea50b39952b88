package forms_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cliossg/intake/internal/feat/forms"
	"github.com/cliossg/intake/internal/feat/forms/fake"
	"github.com/cliossg/intake/pkg/cl/logger"
)

func registrationRequest() *forms.SubmissionRequest {
	return &forms.SubmissionRequest{
		FormID:     "f1",
		TrainingID: "t1",
		Fields: map[string]any{
			"firstName": "Ana",
			"lastName":  "Ruiz",
			"email":     "ana@example.com",
			"dietary":   "vegetarian",
		},
		Client: forms.ClientInfo{IPAddress: "198.51.100.4"},
	}
}

func TestServiceSubmitRunsSinksAfterCommit(t *testing.T) {
	store := seededStore()
	notifier := &fake.Notifier{Result: forms.NotifyResult{Success: true}}
	ok := &fake.Sink{SinkName: "ok"}
	broken := &fake.Sink{SinkName: "broken", Err: errors.New("broker down")}

	svc := forms.NewService(store, store, notifier, logger.NewNoopLogger(), broken, ok)

	rc, err := svc.Submit(context.Background(), forms.TrainingEndpoint, registrationRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rc.SubmissionID == "" {
		t.Fatal("Submit() returned an empty submission id")
	}
	if rc.Message != "See you there!" {
		t.Errorf("Message = %q, want schema success message", rc.Message)
	}

	for _, s := range []*fake.Sink{broken, ok} {
		if len(s.Delivered) != 1 {
			t.Fatalf("sink %s got %d records, want 1", s.SinkName, len(s.Delivered))
		}
		if s.Delivered[0].ID != rc.SubmissionID {
			t.Errorf("sink %s got record %s, want %s", s.SinkName, s.Delivered[0].ID, rc.SubmissionID)
		}
	}

	if len(notifier.Notifications) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.Notifications))
	}
	if len(notifier.Confirmations) != 1 {
		t.Errorf("confirmations = %d, want 1", len(notifier.Confirmations))
	}
}

func TestServiceSubmitSkipsConfirmationForContact(t *testing.T) {
	store := fake.NewStore()
	notifier := &fake.Notifier{Result: forms.NotifyResult{Error: "provider down"}}
	svc := forms.NewService(store, store, notifier, logger.NewNoopLogger())

	req := &forms.SubmissionRequest{Fields: map[string]any{
		"firstName": "Ana",
		"lastName":  "Ruiz",
		"email":     "ana@example.com",
		"message":   "Hello",
	}}

	rc, err := svc.Submit(context.Background(), forms.ContactEndpoint, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rc.Message != forms.ContactEndpoint.SuccessMessage {
		t.Errorf("Message = %q, want endpoint default", rc.Message)
	}
	if len(notifier.Notifications) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.Notifications))
	}
	if len(notifier.Confirmations) != 0 {
		t.Errorf("confirmations = %d, want 0", len(notifier.Confirmations))
	}

	rec := store.Submissions[0]
	if rec.Source != forms.ContactEndpoint.DefaultSource {
		t.Errorf("Source = %q, want %q", rec.Source, forms.ContactEndpoint.DefaultSource)
	}
	if rec.FormID != "" {
		t.Errorf("FormID = %q, want empty for the built-in schema", rec.FormID)
	}
}

func TestServiceSubmitValidationStopsBeforeStore(t *testing.T) {
	tests := []struct {
		name    string
		req     *forms.SubmissionRequest
		wantErr any
	}{
		{
			name:    "missing identifiers",
			req:     &forms.SubmissionRequest{Fields: map[string]any{"email": "ana@example.com"}},
			wantErr: &forms.MissingSystemFieldsError{},
		},
		{
			name: "bad work email",
			req: &forms.SubmissionRequest{FormID: "f1", TrainingID: "t1", Fields: map[string]any{
				"firstName": "Ana", "email": "ana@example.com", "workEmail": "ana@",
			}},
			wantErr: &forms.InvalidEmailError{},
		},
		{
			name: "schema required field blank",
			req: &forms.SubmissionRequest{FormID: "f1", TrainingID: "t1", Fields: map[string]any{
				"firstName": "  ", "email": "ana@example.com",
			}},
			wantErr: &forms.FormFieldsError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			notifier := &fake.Notifier{}
			sink := &fake.Sink{SinkName: "events"}
			svc := forms.NewService(store, store, notifier, logger.NewNoopLogger(), sink)

			_, err := svc.Submit(context.Background(), forms.TrainingEndpoint, tt.req)
			if err == nil {
				t.Fatal("Submit() error = nil, want validation error")
			}

			var matched bool
			switch tt.wantErr.(type) {
			case *forms.MissingSystemFieldsError:
				var target *forms.MissingSystemFieldsError
				matched = errors.As(err, &target)
			case *forms.InvalidEmailError:
				var target *forms.InvalidEmailError
				matched = errors.As(err, &target)
			case *forms.FormFieldsError:
				var target *forms.FormFieldsError
				matched = errors.As(err, &target)
			}
			if !matched {
				t.Errorf("Submit() error = %T (%v), want %T", err, err, tt.wantErr)
			}

			if store.CreateCalls != 0 {
				t.Errorf("CreateCalls = %d, want 0", store.CreateCalls)
			}
			if len(notifier.Notifications) != 0 || len(sink.Delivered) != 0 {
				t.Error("side effects ran for a rejected submission")
			}
		})
	}
}

type recordingPublisher struct {
	key, eventType string
	data           any
}

func (p *recordingPublisher) Publish(_ context.Context, key, eventType string, data any) error {
	p.key, p.eventType, p.data = key, eventType, data
	return nil
}

type recordingAppender struct {
	rows [][]any
}

func (a *recordingAppender) Append(_ context.Context, row []any) error {
	a.rows = append(a.rows, row)
	return nil
}

func TestEventAndSheetSinks(t *testing.T) {
	rec := &forms.SubmissionRecord{
		ID:            "sub-1",
		Kind:          forms.KindTrainingRegistration,
		TrainingTitle: "Leading Change",
		Contact: forms.CoreFields{
			FirstName:       "Ana",
			LastName:        "Ruiz",
			PersonalEmail:   "ana@example.com",
			WorkEmail:       "ana@example.com",
			YearsExperience: 7,
		},
		SubmittedAt: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		Status:      forms.StatusNew,
		Source:      "website",
	}

	pub := &recordingPublisher{}
	events := forms.NewEventSink(pub)
	if err := events.Deliver(context.Background(), rec); err != nil {
		t.Fatalf("EventSink.Deliver() error = %v", err)
	}
	if pub.key != "sub-1" || pub.eventType != forms.EventSubmissionCreated {
		t.Errorf("published key=%q type=%q", pub.key, pub.eventType)
	}
	if pub.data != rec {
		t.Error("published payload is not the record")
	}

	app := &recordingAppender{}
	sheet := forms.NewSheetSink(app)
	if sheet.Name() != "sheets" || events.Name() != "events" {
		t.Errorf("sink names = %q, %q", sheet.Name(), events.Name())
	}
	if err := sheet.Deliver(context.Background(), rec); err != nil {
		t.Fatalf("SheetSink.Deliver() error = %v", err)
	}
	if len(app.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(app.rows))
	}

	row := app.rows[0]
	if row[0] != "2026-10-19T09:30:00Z" {
		t.Errorf("row[0] = %v, want RFC3339 timestamp", row[0])
	}
	if row[1] != "sub-1" || row[2] != "training-registration" || row[3] != "Leading Change" {
		t.Errorf("row identity columns = %v", row[:4])
	}
	if row[11] != 7 {
		t.Errorf("years of experience column = %v, want 7", row[11])
	}
}
