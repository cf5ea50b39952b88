package forms

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliossg/intake/pkg/cl/cms"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/model"
)

const (
	formSchemaQuery = `*[_type in $formTypes && _id == $id][0]{
  "id": _id, title,
  "kind": coalesce(kind, select(
    _type == "registrationForm" => "training-registration",
    _type == "contactForm" => "contact",
    _type == "newsletterForm" => "newsletter"
  )),
  "trainingId": training._ref,
  "trainingTitle": training->title,
  fields[]{name, label, type, required, options, validation},
  settings
}`
	trainingQuery = `*[_type == "training" && _id == $id][0]{"id": _id, title}`

	submissionListQuery = `*[_type == $type && ($kind == "" || kind == $kind) && ($status == "" || status == $status)] | order(submittedAt desc)[0...$limit]`
	submissionGetQuery  = `*[_id == $id && _type in $types][0]`
)

// formDocumentTypes are the content store types that hold form schemas.
var formDocumentTypes = []string{"registrationForm", "contactForm", "newsletterForm"}

// CMSReader reads schemas through the public, query-only client.
type CMSReader struct {
	client *cms.ReadClient
}

func NewCMSReader(client *cms.ReadClient) *CMSReader {
	return &CMSReader{client: client}
}

func (r *CMSReader) FetchFormSchema(ctx context.Context, formID string) (*FormSchema, error) {
	var schema FormSchema
	err := r.client.Query(ctx, formSchemaQuery, map[string]any{
		"id":        formID,
		"formTypes": formDocumentTypes,
	}, &schema)
	if errors.Is(err, cms.ErrNotFound) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, storeError("fetch form "+formID, err)
	}
	return &schema, nil
}

func (r *CMSReader) FetchTraining(ctx context.Context, trainingID string) (*Training, error) {
	var training Training
	err := r.client.Query(ctx, trainingQuery, map[string]any{"id": trainingID}, &training)
	if errors.Is(err, cms.ErrNotFound) {
		return nil, ErrTrainingNotFound
	}
	if err != nil {
		return nil, storeError("fetch training "+trainingID, err)
	}
	return &training, nil
}

// CMSWriter creates and reviews submission documents with the
// authenticated client.
type CMSWriter struct {
	client *cms.WriteClient
	log    logger.Logger
}

func NewCMSWriter(client *cms.WriteClient, log logger.Logger) *CMSWriter {
	return &CMSWriter{client: client, log: log}
}

// CreateSubmission commits the record as a single-document transaction.
func (w *CMSWriter) CreateSubmission(ctx context.Context, rec *SubmissionRecord) (string, error) {
	res, err := w.client.Mutate(ctx, cms.Create(toDocument(rec)))
	if err != nil {
		return "", storeError("create submission", err)
	}
	if len(res.Results) > 0 && res.Results[0].ID != "" {
		return res.Results[0].ID, nil
	}
	return rec.ID, nil
}

func (w *CMSWriter) ListSubmissions(ctx context.Context, filter ListFilter) ([]*SubmissionRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var docs []submissionDocument
	types := documentTypes(filter.Kind)
	for _, t := range types {
		var batch []submissionDocument
		err := w.client.Query(ctx, submissionListQuery, map[string]any{
			"type":   t,
			"kind":   string(filter.Kind),
			"status": string(filter.Status),
			"limit":  limit,
		}, &batch)
		if err != nil && !errors.Is(err, cms.ErrNotFound) {
			return nil, storeError("list submissions", err)
		}
		docs = append(docs, batch...)
	}

	recs := make([]*SubmissionRecord, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, d.toRecord())
	}
	sortNewestFirst(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (w *CMSWriter) GetSubmission(ctx context.Context, id string) (*SubmissionRecord, error) {
	var doc submissionDocument
	err := w.client.Query(ctx, submissionGetQuery, map[string]any{
		"id":    id,
		"types": documentTypes(""),
	}, &doc)
	if errors.Is(err, cms.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, storeError("get submission "+id, err)
	}
	return doc.toRecord(), nil
}

func (w *CMSWriter) UpdateStatus(ctx context.Context, id string, status Status) error {
	if _, err := w.GetSubmission(ctx, id); err != nil {
		return err
	}
	set := map[string]any{"status": string(status)}
	if status != StatusNew {
		set["reviewedAt"] = model.Now()
	}
	if _, err := w.client.Mutate(ctx, cms.Patch(id, set)); err != nil {
		return storeError(fmt.Sprintf("update status of %s", id), err)
	}
	return nil
}
