package sheets

import (
	"context"
	"testing"

	"github.com/cliossg/intake/pkg/cl/logger"
)

func TestAppendBeforeStart(t *testing.T) {
	a := NewAppender("creds.json", "sheet-id", "Submissions", logger.NewNoopLogger())
	if err := a.Append(context.Background(), []any{"x"}); err == nil {
		t.Error("expected error when appending before Start")
	}
}

func TestStartMissingCredentials(t *testing.T) {
	a := NewAppender(t.TempDir()+"/missing.json", "sheet-id", "Submissions", logger.NewNoopLogger())
	if err := a.Start(context.Background()); err == nil {
		t.Error("expected error for missing credentials file")
	}
}
