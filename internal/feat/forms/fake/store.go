package fake

import (
	"context"
	"sync"

	"github.com/cliossg/intake/internal/feat/forms"
	"github.com/cliossg/intake/pkg/cl/mail"
)

// Store is an in-memory schema reader, submission writer and review store.
type Store struct {
	mu sync.Mutex

	Schemas     map[string]*forms.FormSchema
	Trainings   map[string]*forms.Training
	Submissions []*forms.SubmissionRecord

	FetchErr  error
	CreateErr error

	FetchFormCalls int
	CreateCalls    int
}

func NewStore() *Store {
	return &Store{
		Schemas:   make(map[string]*forms.FormSchema),
		Trainings: make(map[string]*forms.Training),
	}
}

func (s *Store) FetchFormSchema(_ context.Context, formID string) (*forms.FormSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FetchFormCalls++
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	schema, ok := s.Schemas[formID]
	if !ok {
		return nil, forms.ErrFormNotFound
	}
	return schema, nil
}

func (s *Store) FetchTraining(_ context.Context, trainingID string) (*forms.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	t, ok := s.Trainings[trainingID]
	if !ok {
		return nil, forms.ErrTrainingNotFound
	}
	return t, nil
}

func (s *Store) CreateSubmission(_ context.Context, rec *forms.SubmissionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CreateCalls++
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	copied := *rec
	s.Submissions = append(s.Submissions, &copied)
	return rec.ID, nil
}

func (s *Store) ListSubmissions(_ context.Context, filter forms.ListFilter) ([]*forms.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*forms.SubmissionRecord
	for i := len(s.Submissions) - 1; i >= 0; i-- {
		rec := s.Submissions[i]
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetSubmission(_ context.Context, id string) (*forms.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.Submissions {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, forms.ErrSubmissionNotFound
}

func (s *Store) UpdateStatus(_ context.Context, id string, status forms.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.Submissions {
		if rec.ID == id {
			rec.Status = status
			return nil
		}
	}
	return forms.ErrSubmissionNotFound
}

// Mailer records messages. SendFunc, when set, replaces the default answer.
type Mailer struct {
	mu       sync.Mutex
	Sent     []mail.Message
	SendFunc func(ctx context.Context, msg mail.Message) (*mail.SendResult, error)
}

func (m *Mailer) Send(ctx context.Context, msg mail.Message) (*mail.SendResult, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	fn := m.SendFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, msg)
	}
	return &mail.SendResult{ID: "msg_fake"}, nil
}

func (m *Mailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.Sent...)
}

// Notifier records calls and returns Result for each of them.
type Notifier struct {
	mu            sync.Mutex
	Result        forms.NotifyResult
	Notifications []*forms.SubmissionRecord
	Confirmations []*forms.SubmissionRecord
}

func (n *Notifier) SendSubmissionNotification(_ context.Context, _ forms.Kind, rec *forms.SubmissionRecord, _ *forms.FormSchema) forms.NotifyResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notifications = append(n.Notifications, rec)
	return n.Result
}

func (n *Notifier) SendRegistrationConfirmation(_ context.Context, rec *forms.SubmissionRecord, _ *forms.FormSchema) forms.NotifyResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmations = append(n.Confirmations, rec)
	return n.Result
}

// Sink records delivered records and returns Err.
type Sink struct {
	SinkName  string
	Err       error
	Delivered []*forms.SubmissionRecord
}

func (s *Sink) Name() string { return s.SinkName }

func (s *Sink) Deliver(_ context.Context, rec *forms.SubmissionRecord) error {
	s.Delivered = append(s.Delivered, rec)
	return s.Err
}
