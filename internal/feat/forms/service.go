package forms

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/middleware"
	"github.com/cliossg/intake/pkg/cl/model"
	"github.com/cliossg/intake/pkg/cl/render"
)

const sinkTimeout = 5 * time.Second

// Notifier sends the best-effort emails that follow a stored submission.
type Notifier interface {
	SendSubmissionNotification(ctx context.Context, kind Kind, rec *SubmissionRecord, schema *FormSchema) NotifyResult
	SendRegistrationConfirmation(ctx context.Context, rec *SubmissionRecord, schema *FormSchema) NotifyResult
}

// Service runs the submission pipeline: validate, fetch schema, validate
// against it, map, store, then notify.
type Service struct {
	reader   SchemaReader
	writer   SubmissionWriter
	notifier Notifier
	sinks    []Sink
	log      logger.Logger
}

// NewService creates the pipeline. notifier may be nil.
func NewService(reader SchemaReader, writer SubmissionWriter, notifier Notifier, log logger.Logger, sinks ...Sink) *Service {
	return &Service{
		reader:   reader,
		writer:   writer,
		notifier: notifier,
		sinks:    sinks,
		log:      log,
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.log.Infof("Forms service started with %d sinks", len(s.sinks))
	return nil
}

// Submit validates and stores one submission. Errors are
// *MissingSystemFieldsError, *InvalidEmailError, *FormFieldsError,
// ErrFormNotFound, ErrTrainingNotFound or a store failure. Notification
// and sink outcomes never reach the caller.
func (s *Service) Submit(ctx context.Context, ep Endpoint, req *SubmissionRequest) (*Receipt, error) {
	log := middleware.LoggerFrom(ctx, s.log).With("kind", string(ep.Kind))

	report := Check(req, ep.SystemFields, nil)
	if err := report.SystemErr(); err != nil {
		return nil, err
	}
	if err := report.EmailErr(); err != nil {
		return nil, err
	}

	schema := ep.Schema
	stored := ep.FetchSchema || req.FormID != ""
	if stored {
		fetched, err := s.reader.FetchFormSchema(ctx, req.FormID)
		if err != nil {
			return nil, err
		}
		schema = fetched
	}

	var training *Training
	if ep.FetchTraining {
		t, err := s.reader.FetchTraining(ctx, req.TrainingID)
		if err != nil {
			return nil, err
		}
		training = t
	}

	if stored && !belongsTo(schema, ep, req) {
		log.Warnf("Form %s does not take %s submissions for training %q", req.FormID, ep.Kind, req.TrainingID)
		return nil, ErrFormNotFound
	}

	report = Check(req, nil, schema)
	if err := report.EmailErr(); err != nil {
		return nil, err
	}
	if err := report.FormErr(); err != nil {
		return nil, err
	}

	rec := buildRecord(ep, req, schema, training)
	id, err := s.writer.CreateSubmission(ctx, rec)
	if err != nil {
		log.Errorf("Cannot store submission: %v", err)
		return nil, err
	}
	rec.ID = id
	log.Infof("Stored submission %s", id)

	s.afterCommit(ctx, log, ep, rec, schema)

	return receipt(ep, rec, schema), nil
}

// afterCommit runs the best-effort side effects. They outlive request
// cancellation but not their own timeouts.
func (s *Service) afterCommit(ctx context.Context, log logger.Logger, ep Endpoint, rec *SubmissionRecord, schema *FormSchema) {
	ctx = context.WithoutCancel(ctx)

	if s.notifier != nil {
		res := s.notifier.SendSubmissionNotification(ctx, ep.Kind, rec, schema)
		if res.Success {
			log.Infof("Notification sent for submission %s", rec.ID)
		} else {
			log.Warnf("Notification failed for submission %s: %s", rec.ID, res.Error)
		}

		if ep.Kind == KindTrainingRegistration {
			if res := s.notifier.SendRegistrationConfirmation(ctx, rec, schema); !res.Success {
				log.Warnf("Confirmation failed for submission %s: %s", rec.ID, res.Error)
			}
		}
	}

	for _, sink := range s.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := sink.Deliver(sinkCtx, rec); err != nil {
			log.Warnf("Sink %s failed for submission %s: %v", sink.Name(), rec.ID, err)
		}
		cancel()
	}
}

// belongsTo reports whether a stored form may take a submission for ep.
// A form with a kind must match the endpoint, and a registration form bound
// to a training only accepts that training.
func belongsTo(schema *FormSchema, ep Endpoint, req *SubmissionRequest) bool {
	if schema == nil {
		return false
	}
	if schema.Kind != "" && schema.Kind != ep.Kind {
		return false
	}
	if ep.FetchTraining && schema.TrainingID != "" && schema.TrainingID != req.TrainingID {
		return false
	}
	return true
}

func buildRecord(ep Endpoint, req *SubmissionRequest, schema *FormSchema, training *Training) *SubmissionRecord {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = ep.DefaultSource
	}

	rec := &SubmissionRecord{
		ID:          model.NewID(),
		Kind:        ep.Kind,
		Contact:     MapFields(req.Fields),
		Responses:   buildResponses(req.Fields, schema),
		SubmittedAt: model.Now(),
		Status:      StatusNew,
		Source:      source,
		Client:      req.Client,
	}
	if schema != nil && schema != ep.Schema {
		rec.FormID = schema.ID
	}
	if training != nil {
		rec.TrainingID = training.ID
		rec.TrainingTitle = training.Title
	} else if schema != nil && schema.TrainingTitle != "" {
		rec.TrainingID = schema.TrainingID
		rec.TrainingTitle = schema.TrainingTitle
	}
	return rec
}

// buildResponses keeps every non-blank answer: declared fields in schema
// order, then undeclared fields sorted by name.
func buildResponses(fields map[string]any, schema *FormSchema) []Response {
	var out []Response
	declared := make(map[string]bool)

	if schema != nil {
		for _, f := range schema.Fields {
			declared[f.Name] = true
			value := strings.TrimSpace(Stringify(fields[f.Name]))
			if value == "" {
				continue
			}
			fieldType := f.Type
			if fieldType == "" {
				fieldType = FieldText
			}
			out = append(out, Response{
				FieldName:  f.Name,
				FieldLabel: f.DisplayLabel(),
				Value:      value,
				FieldType:  fieldType,
			})
		}
	}

	extra := make([]string, 0, len(fields))
	for k := range fields {
		if !declared[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	for _, k := range extra {
		value := strings.TrimSpace(Stringify(fields[k]))
		if value == "" {
			continue
		}
		out = append(out, Response{
			FieldName:  k,
			FieldLabel: render.Humanize(k),
			Value:      value,
			FieldType:  FieldText,
		})
	}
	return out
}

func receipt(ep Endpoint, rec *SubmissionRecord, schema *FormSchema) *Receipt {
	r := &Receipt{SubmissionID: rec.ID, Message: ep.SuccessMessage}
	if schema != nil {
		if schema.Settings.SuccessMessage != "" {
			r.Message = schema.Settings.SuccessMessage
		}
		r.RedirectURL = schema.Settings.RedirectURL
	}
	return r
}
