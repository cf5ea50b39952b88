package forms

import (
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/cliossg/intake/pkg/cl/model"
)

// Content store document types per submission kind.
var documentTypeByKind = map[Kind]string{
	KindContact:              "contactSubmission",
	KindNewsletter:           "newsletterSubscription",
	KindTrainingRegistration: "trainingRegistration",
}

func documentTypes(kind Kind) []string {
	if t, ok := documentTypeByKind[kind]; ok {
		return []string{t}
	}
	return []string{"contactSubmission", "newsletterSubscription", "trainingRegistration"}
}

type reference struct {
	Type string `json:"_type,omitempty"`
	Ref  string `json:"_ref"`
}

type responseDocument struct {
	Key        string `json:"_key"`
	FieldName  string `json:"fieldName"`
	FieldLabel string `json:"fieldLabel"`
	Value      string `json:"value"`
	FieldType  string `json:"fieldType"`
}

// submissionDocument is a submission as stored in the content store.
type submissionDocument struct {
	ID              string             `json:"_id"`
	Type            string             `json:"_type"`
	Kind            Kind               `json:"kind"`
	Form            *reference         `json:"form,omitempty"`
	Training        *reference         `json:"training,omitempty"`
	TrainingTitle   string             `json:"trainingTitle,omitempty"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	PersonalEmail   string             `json:"personalEmail"`
	WorkEmail       string             `json:"workEmail"`
	Phone           string             `json:"phone"`
	Organization    string             `json:"organization"`
	JobTitle        string             `json:"jobTitle"`
	YearsExperience int                `json:"yearsExperience"`
	Message         string             `json:"message"`
	Responses       []responseDocument `json:"responses"`
	SubmittedAt     time.Time          `json:"submittedAt"`
	Status          Status             `json:"status"`
	Source          string             `json:"source"`
	IPAddress       string             `json:"ipAddress,omitempty"`
	UserAgent       string             `json:"userAgent,omitempty"`
	Referrer        string             `json:"referrer,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewedAt,omitempty"`
}

// toDocument converts a record into a create-ready document.
func toDocument(rec *SubmissionRecord) map[string]any {
	responses := make([]map[string]any, 0, len(rec.Responses))
	for i, r := range rec.Responses {
		responses = append(responses, map[string]any{
			"_key":       "r" + strconv.Itoa(i),
			"fieldName":  r.FieldName,
			"fieldLabel": r.FieldLabel,
			"value":      r.Value,
			"fieldType":  r.FieldType,
		})
	}

	c := rec.Contact
	doc := map[string]any{
		"_id":             rec.ID,
		"_type":           documentTypeByKind[rec.Kind],
		"kind":            string(rec.Kind),
		"firstName":       c.FirstName,
		"lastName":        c.LastName,
		"personalEmail":   c.PersonalEmail,
		"workEmail":       c.WorkEmail,
		"phone":           c.Phone,
		"organization":    c.Organization,
		"jobTitle":        c.JobTitle,
		"yearsExperience": c.YearsExperience,
		"message":         c.Message,
		"responses":       responses,
		"submittedAt":     rec.SubmittedAt.UTC().Format(time.RFC3339Nano),
		"status":          string(rec.Status),
		"source":          rec.Source,
		"ipAddress":       rec.Client.IPAddress,
		"userAgent":       rec.Client.UserAgent,
		"referrer":        rec.Client.Referrer,
	}
	if rec.FormID != "" {
		doc["form"] = reference{Type: "reference", Ref: rec.FormID}
	}
	if rec.TrainingID != "" {
		doc["training"] = reference{Type: "reference", Ref: rec.TrainingID}
		doc["trainingTitle"] = rec.TrainingTitle
	}
	return doc
}

func (d submissionDocument) toRecord() *SubmissionRecord {
	rec := &SubmissionRecord{
		ID:            d.ID,
		Kind:          d.Kind,
		TrainingTitle: d.TrainingTitle,
		Contact: CoreFields{
			FirstName:       d.FirstName,
			LastName:        d.LastName,
			PersonalEmail:   d.PersonalEmail,
			WorkEmail:       d.WorkEmail,
			Phone:           d.Phone,
			Organization:    d.Organization,
			JobTitle:        d.JobTitle,
			Message:         d.Message,
			YearsExperience: d.YearsExperience,
		},
		SubmittedAt: d.SubmittedAt,
		Status:      d.Status,
		Source:      d.Source,
		Client:      ClientInfo{IPAddress: d.IPAddress, UserAgent: d.UserAgent, Referrer: d.Referrer},
		ReviewedAt:  d.ReviewedAt,
	}
	if d.Form != nil {
		rec.FormID = d.Form.Ref
	}
	if d.Training != nil {
		rec.TrainingID = d.Training.Ref
	}
	for _, r := range d.Responses {
		rec.Responses = append(rec.Responses, Response{
			FieldName:  r.FieldName,
			FieldLabel: r.FieldLabel,
			Value:      r.Value,
			FieldType:  r.FieldType,
		})
	}
	return rec
}

// submissionRow mirrors the submissions table.
type submissionRow struct {
	ID              string
	Kind            string
	FormID          sql.NullString
	TrainingID      sql.NullString
	TrainingTitle   sql.NullString
	FirstName       string
	LastName        string
	PersonalEmail   string
	WorkEmail       string
	Phone           string
	Organization    string
	JobTitle        string
	YearsExperience int
	Message         string
	Status          string
	Source          string
	IPAddress       string
	UserAgent       string
	Referrer        string
	SubmittedAt     time.Time
	ReviewedAt      sql.NullTime
}

const submissionColumns = `id, kind, form_id, training_id, training_title, first_name, last_name,
	personal_email, work_email, phone, organization, job_title, years_experience, message,
	status, source, ip_address, user_agent, referrer, submitted_at, reviewed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(s scanner) (*submissionRow, error) {
	var r submissionRow
	err := s.Scan(
		&r.ID, &r.Kind, &r.FormID, &r.TrainingID, &r.TrainingTitle, &r.FirstName, &r.LastName,
		&r.PersonalEmail, &r.WorkEmail, &r.Phone, &r.Organization, &r.JobTitle, &r.YearsExperience, &r.Message,
		&r.Status, &r.Source, &r.IPAddress, &r.UserAgent, &r.Referrer, &r.SubmittedAt, &r.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *submissionRow) toRecord() *SubmissionRecord {
	return &SubmissionRecord{
		ID:            r.ID,
		Kind:          Kind(r.Kind),
		FormID:        r.FormID.String,
		TrainingID:    r.TrainingID.String,
		TrainingTitle: r.TrainingTitle.String,
		Contact: CoreFields{
			FirstName:       r.FirstName,
			LastName:        r.LastName,
			PersonalEmail:   r.PersonalEmail,
			WorkEmail:       r.WorkEmail,
			Phone:           r.Phone,
			Organization:    r.Organization,
			JobTitle:        r.JobTitle,
			Message:         r.Message,
			YearsExperience: r.YearsExperience,
		},
		SubmittedAt: r.SubmittedAt.UTC(),
		Status:      Status(r.Status),
		Source:      r.Source,
		Client:      ClientInfo{IPAddress: r.IPAddress, UserAgent: r.UserAgent, Referrer: r.Referrer},
		ReviewedAt:  model.PtrFromNullTime(r.ReviewedAt),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sortNewestFirst(recs []*SubmissionRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SubmittedAt.After(recs[j].SubmittedAt)
	})
}
