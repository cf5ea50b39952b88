package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/model"
)

// SQLiteStore keeps forms and submissions in the local database. Lookups
// use the read-only handle; only record creation and review updates use
// the read-write one.
type SQLiteStore struct {
	dbProvider DBProvider
	log        logger.Logger
}

func NewSQLiteStore(dbProvider DBProvider, log logger.Logger) *SQLiteStore {
	return &SQLiteStore{dbProvider: dbProvider, log: log}
}

func (s *SQLiteStore) readDB() *sql.DB {
	if db := s.dbProvider.GetReadDB(); db != nil {
		return db
	}
	return s.dbProvider.GetDB()
}

func (s *SQLiteStore) FetchFormSchema(ctx context.Context, formID string) (*FormSchema, error) {
	var (
		schema        FormSchema
		kind          string
		trainingID    sql.NullString
		trainingTitle sql.NullString
		fields        string
		settings      string
	)
	err := s.readDB().QueryRowContext(ctx, `
		SELECT f.id, f.title, f.kind, f.training_id, t.title, f.fields, f.settings
		FROM form_schemas f
		LEFT JOIN trainings t ON t.id = f.training_id
		WHERE f.id = ?`, formID,
	).Scan(&schema.ID, &schema.Title, &kind, &trainingID, &trainingTitle, &fields, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, storeError("fetch form "+formID, err)
	}

	schema.Kind = Kind(kind)
	schema.TrainingID = trainingID.String
	schema.TrainingTitle = trainingTitle.String
	if err := json.Unmarshal([]byte(fields), &schema.Fields); err != nil {
		return nil, fmt.Errorf("cannot decode fields of form %s: %w", formID, err)
	}
	if err := json.Unmarshal([]byte(settings), &schema.Settings); err != nil {
		return nil, fmt.Errorf("cannot decode settings of form %s: %w", formID, err)
	}
	return &schema, nil
}

func (s *SQLiteStore) FetchTraining(ctx context.Context, trainingID string) (*Training, error) {
	var t Training
	err := s.readDB().QueryRowContext(ctx,
		`SELECT id, title FROM trainings WHERE id = ?`, trainingID,
	).Scan(&t.ID, &t.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrainingNotFound
	}
	if err != nil {
		return nil, storeError("fetch training "+trainingID, err)
	}
	return &t, nil
}

// CreateSubmission writes the record and its responses in one transaction.
func (s *SQLiteStore) CreateSubmission(ctx context.Context, rec *SubmissionRecord) (string, error) {
	tx, err := s.dbProvider.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return "", storeError("begin transaction", err)
	}
	defer tx.Rollback()

	c := rec.Contact
	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.FormID, rec.TrainingID, rec.TrainingTitle, c.FirstName, c.LastName,
		c.PersonalEmail, c.WorkEmail, c.Phone, c.Organization, c.JobTitle, c.YearsExperience, c.Message,
		string(rec.Status), rec.Source, rec.Client.IPAddress, rec.Client.UserAgent, rec.Client.Referrer,
		rec.SubmittedAt, model.NullTimeFromPtr(rec.ReviewedAt),
	)
	if err != nil {
		return "", storeError("insert submission", err)
	}

	for i, r := range rec.Responses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submission_responses (submission_id, position, field_name, field_label, value, field_type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, r.FieldName, r.FieldLabel, r.Value, r.FieldType,
		)
		if err != nil {
			return "", storeError("insert response "+r.FieldName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storeError("commit submission", err)
	}
	return rec.ID, nil
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter ListFilter) ([]*SubmissionRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY submitted_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.readDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list submissions", err)
	}

	var recs []*SubmissionRecord
	for rows.Next() {
		row, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, storeError("scan submission", err)
		}
		recs = append(recs, row.toRecord())
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storeError("list submissions", err)
	}
	rows.Close()

	// Responses are loaded after the cursor is closed; tests pin the pool
	// to a single connection.
	for _, rec := range recs {
		if rec.Responses, err = s.responses(ctx, rec.ID); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*SubmissionRecord, error) {
	row, err := scanSubmission(s.readDB().QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, storeError("get submission "+id, err)
	}

	rec := row.toRecord()
	if rec.Responses, err = s.responses(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	var reviewedAt sql.NullTime
	if status != StatusNew {
		reviewedAt = sql.NullTime{Time: model.Now(), Valid: true}
	}

	res, err := s.dbProvider.GetDB().ExecContext(ctx,
		`UPDATE submissions SET status = ?, reviewed_at = ? WHERE id = ?`,
		string(status), reviewedAt, id,
	)
	if err != nil {
		return storeError("update status of "+id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("update status of "+id, err)
	}
	if n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (s *SQLiteStore) responses(ctx context.Context, id string) ([]Response, error) {
	rows, err := s.readDB().QueryContext(ctx, `
		SELECT field_name, field_label, value, field_type
		FROM submission_responses
		WHERE submission_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, storeError("list responses of "+id, err)
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.FieldName, &r.FieldLabel, &r.Value, &r.FieldType); err != nil {
			return nil, storeError("scan response", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list responses of "+id, err)
	}
	return out, nil
}
