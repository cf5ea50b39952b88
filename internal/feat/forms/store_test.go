package forms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cliossg/intake/pkg/cl/logger"
)

type mapCache struct {
	data   map[string][]byte
	getErr error
}

func (m *mapCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mapCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

type countingReader struct {
	schemaCalls   int
	trainingCalls int
}

func (r *countingReader) FetchFormSchema(ctx context.Context, formID string) (*FormSchema, error) {
	r.schemaCalls++
	if formID != "f1" {
		return nil, ErrFormNotFound
	}
	return &FormSchema{ID: "f1", Title: "Registration", Fields: []FieldDefinition{{Name: "email", Required: true}}}, nil
}

func (r *countingReader) FetchTraining(ctx context.Context, trainingID string) (*Training, error) {
	r.trainingCalls++
	return &Training{ID: trainingID, Title: "Leading Change"}, nil
}

func TestCachedReader(t *testing.T) {
	next := &countingReader{}
	c := &mapCache{data: map[string][]byte{}}
	reader := NewCachedReader(next, c, time.Minute, logger.NewNoopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		schema, err := reader.FetchFormSchema(ctx, "f1")
		if err != nil {
			t.Fatalf("FetchFormSchema() error = %v", err)
		}
		if schema.Title != "Registration" || !schema.Fields[0].Required {
			t.Errorf("schema = %+v", schema)
		}
		if _, err := reader.FetchTraining(ctx, "t1"); err != nil {
			t.Fatalf("FetchTraining() error = %v", err)
		}
	}
	if next.schemaCalls != 1 || next.trainingCalls != 1 {
		t.Errorf("origin calls = %d/%d, want 1/1", next.schemaCalls, next.trainingCalls)
	}

	if _, err := reader.FetchFormSchema(ctx, "missing"); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("error = %v, want ErrFormNotFound", err)
	}
	if _, ok := c.data["form:missing"]; ok {
		t.Error("misses must not be cached")
	}
}

func TestCachedReaderDegradesOnCacheFailure(t *testing.T) {
	next := &countingReader{}
	c := &mapCache{data: map[string][]byte{}, getErr: errors.New("redis down")}
	reader := NewCachedReader(next, c, time.Minute, logger.NewNoopLogger())

	if _, err := reader.FetchFormSchema(context.Background(), "f1"); err != nil {
		t.Fatalf("FetchFormSchema() error = %v", err)
	}
	if next.schemaCalls != 1 {
		t.Errorf("schemaCalls = %d, want 1", next.schemaCalls)
	}
}
