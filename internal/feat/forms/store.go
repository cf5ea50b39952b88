package forms

import (
	"context"
	"database/sql"
	"time"

	"github.com/cliossg/intake/pkg/cl/cache"
	"github.com/cliossg/intake/pkg/cl/logger"
)

// SchemaReader fetches externally authored form definitions. It has no
// way to change the store.
type SchemaReader interface {
	FetchFormSchema(ctx context.Context, formID string) (*FormSchema, error)
	FetchTraining(ctx context.Context, trainingID string) (*Training, error)
}

// SubmissionWriter persists a record atomically and returns its id.
type SubmissionWriter interface {
	CreateSubmission(ctx context.Context, rec *SubmissionRecord) (string, error)
}

// ReviewStore backs the back-office review flow.
type ReviewStore interface {
	ListSubmissions(ctx context.Context, filter ListFilter) ([]*SubmissionRecord, error)
	GetSubmission(ctx context.Context, id string) (*SubmissionRecord, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// DBProvider provides access to the read-write and read-only handles.
type DBProvider interface {
	GetDB() *sql.DB
	GetReadDB() *sql.DB
}

// CachedReader serves schemas and trainings from a cache before asking the
// wrapped reader. Cache failures degrade to a direct read.
type CachedReader struct {
	next  SchemaReader
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedReader(next SchemaReader, c cache.Cache, ttl time.Duration, log logger.Logger) *CachedReader {
	return &CachedReader{next: next, cache: c, ttl: ttl, log: log}
}

func (c *CachedReader) FetchFormSchema(ctx context.Context, formID string) (*FormSchema, error) {
	key := "form:" + formID
	var schema FormSchema
	if c.lookup(ctx, key, &schema) {
		return &schema, nil
	}

	fetched, err := c.next.FetchFormSchema(ctx, formID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fetched)
	return fetched, nil
}

func (c *CachedReader) FetchTraining(ctx context.Context, trainingID string) (*Training, error) {
	key := "training:" + trainingID
	var training Training
	if c.lookup(ctx, key, &training) {
		return &training, nil
	}

	fetched, err := c.next.FetchTraining(ctx, trainingID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fetched)
	return fetched, nil
}

func (c *CachedReader) lookup(ctx context.Context, key string, dst any) bool {
	found, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		c.log.Warnf("Cache read failed for %s: %v", key, err)
		return false
	}
	return found
}

func (c *CachedReader) store(ctx context.Context, key string, v any) {
	if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
		c.log.Warnf("Cache write failed for %s: %v", key, err)
	}
}
