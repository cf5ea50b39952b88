package forms

import (
	"context"
	"time"
)

// EventSubmissionCreated is published once per stored submission.
const EventSubmissionCreated = "submission.created"

// Sink receives every committed record. Sinks are best-effort: their
// errors are logged and never change the response.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rec *SubmissionRecord) error
}

// EventPublisher is satisfied by events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, data any) error
}

// RowAppender is satisfied by sheets.Appender.
type RowAppender interface {
	Append(ctx context.Context, row []any) error
}

// EventSink publishes a submission.created event keyed by submission id.
type EventSink struct {
	publisher EventPublisher
}

func NewEventSink(publisher EventPublisher) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Deliver(ctx context.Context, rec *SubmissionRecord) error {
	return s.publisher.Publish(ctx, rec.ID, EventSubmissionCreated, rec)
}

// SheetSink mirrors each submission as one spreadsheet row.
type SheetSink struct {
	appender RowAppender
}

func NewSheetSink(appender RowAppender) *SheetSink {
	return &SheetSink{appender: appender}
}

func (s *SheetSink) Name() string { return "sheets" }

func (s *SheetSink) Deliver(ctx context.Context, rec *SubmissionRecord) error {
	return s.appender.Append(ctx, SheetRow(rec))
}

// SheetRow flattens a record into spreadsheet columns.
func SheetRow(rec *SubmissionRecord) []any {
	c := rec.Contact
	return []any{
		rec.SubmittedAt.UTC().Format(time.RFC3339),
		rec.ID,
		string(rec.Kind),
		rec.TrainingTitle,
		c.FirstName,
		c.LastName,
		c.PersonalEmail,
		c.WorkEmail,
		c.Phone,
		c.Organization,
		c.JobTitle,
		c.YearsExperience,
		c.Message,
		rec.Source,
		string(rec.Status),
	}
}
