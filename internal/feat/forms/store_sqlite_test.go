package forms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cliossg/intake/internal/testutil"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/model"
)

const seedYAML = `
trainings:
  - id: t1
    title: Leading Change
forms:
  - id: f1
    title: Leading Change registration
    kind: training-registration
    training_id: t1
    fields:
      - name: firstName
        label: First name
        type: text
        required: true
      - name: email
        label: Email
        type: email
        required: true
      - name: seats
        label: Seats
        type: number
        validation:
          min: 1
          max: 4
    settings:
      success_message: See you there!
      notification_email: trainings@acme.test
`

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := testutil.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	provider := &testutil.TestDBProvider{DB: db}
	seed, err := ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed() error = %v", err)
	}
	if err := NewSeeder(provider, "", logger.NewNoopLogger()).Apply(context.Background(), seed); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	return NewSQLiteStore(provider, logger.NewNoopLogger())
}

func TestSQLiteFetchFormSchema(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	schema, err := store.FetchFormSchema(ctx, "f1")
	if err != nil {
		t.Fatalf("FetchFormSchema() error = %v", err)
	}
	if schema.TrainingTitle != "Leading Change" || schema.Kind != KindTrainingRegistration {
		t.Errorf("schema = %+v", schema)
	}
	if len(schema.Fields) != 3 || !schema.Fields[1].Required || schema.Fields[1].Type != FieldEmail {
		t.Errorf("Fields = %+v", schema.Fields)
	}
	if max := schema.Fields[2].Rules.Max; max == nil || *max != 4 {
		t.Errorf("seats max = %v, want 4", max)
	}
	if schema.Settings.NotificationEmail != "trainings@acme.test" {
		t.Errorf("Settings = %+v", schema.Settings)
	}

	if _, err := store.FetchFormSchema(ctx, "missing"); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("FetchFormSchema(missing) error = %v, want ErrFormNotFound", err)
	}

	training, err := store.FetchTraining(ctx, "t1")
	if err != nil || training.Title != "Leading Change" {
		t.Errorf("FetchTraining() = %+v, %v", training, err)
	}
	if _, err := store.FetchTraining(ctx, "missing"); !errors.Is(err, ErrTrainingNotFound) {
		t.Errorf("FetchTraining(missing) error = %v, want ErrTrainingNotFound", err)
	}
}

func newRecord(kind Kind, email string, at time.Time) *SubmissionRecord {
	return &SubmissionRecord{
		ID:   model.NewID(),
		Kind: kind,
		Contact: CoreFields{
			FirstName:     "Ada",
			PersonalEmail: email,
			WorkEmail:     email,
		},
		Responses: []Response{
			{FieldName: "firstName", FieldLabel: "First name", Value: "Ada", FieldType: FieldText},
			{FieldName: "email", FieldLabel: "Email", Value: email, FieldType: FieldEmail},
		},
		SubmittedAt: at,
		Status:      StatusNew,
		Source:      "test",
		Client:      ClientInfo{IPAddress: "127.0.0.1"},
	}
}

func TestSQLiteCreateAndReview(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	older := newRecord(KindNewsletter, "old@x.com", model.Now().Add(-time.Hour))
	newer := newRecord(KindTrainingRegistration, "new@x.com", model.Now())
	newer.FormID, newer.TrainingID, newer.TrainingTitle = "f1", "t1", "Leading Change"

	for _, rec := range []*SubmissionRecord{older, newer} {
		id, err := store.CreateSubmission(ctx, rec)
		if err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
		if id != rec.ID {
			t.Errorf("id = %q, want %q", id, rec.ID)
		}
	}

	got, err := store.GetSubmission(ctx, newer.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.TrainingTitle != "Leading Change" || got.Contact.PersonalEmail != "new@x.com" {
		t.Errorf("record = %+v", got)
	}
	if len(got.Responses) != 2 || got.Responses[1].Value != "new@x.com" {
		t.Errorf("Responses = %+v", got.Responses)
	}
	if !got.SubmittedAt.Equal(newer.SubmittedAt) {
		t.Errorf("SubmittedAt = %v, want %v", got.SubmittedAt, newer.SubmittedAt)
	}

	all, err := store.ListSubmissions(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID {
		t.Errorf("expected newest first, got %d records", len(all))
	}

	if err := store.UpdateStatus(ctx, older.ID, StatusArchived); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	archived, err := store.ListSubmissions(ctx, ListFilter{Status: StatusArchived})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(archived) != 1 || archived[0].ID != older.ID || archived[0].ReviewedAt == nil {
		t.Errorf("archived = %+v", archived)
	}

	byKind, _ := store.ListSubmissions(ctx, ListFilter{Kind: KindTrainingRegistration, Limit: 10})
	if len(byKind) != 1 || byKind[0].ID != newer.ID {
		t.Errorf("byKind = %+v", byKind)
	}

	if err := store.UpdateStatus(ctx, "missing", StatusReviewed); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrSubmissionNotFound", err)
	}
	if _, err := store.GetSubmission(ctx, "missing"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("GetSubmission(missing) error = %v, want ErrSubmissionNotFound", err)
	}
}

func TestSQLiteCreateIsAtomic(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	rec := newRecord(KindContact, "ada@x.com", model.Now())
	if _, err := store.CreateSubmission(ctx, rec); err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}

	// Same id again: the insert fails and nothing of the second attempt stays.
	dup := newRecord(KindContact, "other@x.com", model.Now())
	dup.ID = rec.ID
	_, err := store.CreateSubmission(ctx, dup)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("CreateSubmission(dup) error = %v, want ErrStoreUnavailable", err)
	}

	got, err := store.GetSubmission(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if got.Contact.PersonalEmail != "ada@x.com" || len(got.Responses) != 2 {
		t.Errorf("record changed after failed create: %+v", got)
	}
}

func TestParseSeedRejectsDuplicateFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "duplicate field",
			yaml: "forms:\n  - id: f\n    fields:\n      - name: a\n      - name: a\n",
		},
		{
			name: "missing id",
			yaml: "forms:\n  - title: nameless\n",
		},
		{
			name: "malformed",
			yaml: "forms: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSeederSkipsMissingFile(t *testing.T) {
	db, err := testutil.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer db.Close()

	s := NewSeeder(&testutil.TestDBProvider{DB: db}, t.TempDir()+"/absent.yaml", logger.NewNoopLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Start() error = %v", err)
	}
}
