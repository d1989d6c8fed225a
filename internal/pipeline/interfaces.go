package pipeline

import (
	"context"
	"time"

	infra "github.com/Yuan922/MoneyMemoAI/internal/infra/bigquery"
)

// IntentParser extracts structured intents from free text. Its output is
// untrusted and always goes through the Normalizer.
type IntentParser interface {
	// ParseAdd returns raw model text describing one or more new records.
	ParseAdd(ctx context.Context, text string, ref time.Time) (string, error)

	// ParseUpdate returns raw model text describing one or more
	// {search, update} pairs.
	ParseUpdate(ctx context.Context, text string, ref time.Time) (string, error)
}

// AuditSink records submissions and raw model output. Failures are logged
// by the caller and never fail a submission.
type AuditSink interface {
	RecordSubmission(ctx context.Context, row *infra.SubmissionRow) error
	RecordModelOutput(ctx context.Context, row *infra.ModelOutputRow) error
}
