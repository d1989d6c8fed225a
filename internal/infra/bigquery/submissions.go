package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// SubmissionRow records one processed submission and its counts.
type SubmissionRow struct {
	SubmissionID  string     `bigquery:"submission_id"`  // REQUIRED
	UserID        string     `bigquery:"user_id"`        // REQUIRED
	Kind          string     `bigquery:"kind"`           // REQUIRED add|update
	InputText     string     `bigquery:"input_text"`     // REQUIRED
	ReferenceDate civil.Date `bigquery:"reference_date"` // REQUIRED

	Applied   int64 `bigquery:"applied"`
	Unmatched int64 `bigquery:"unmatched"`
	Rejected  int64 `bigquery:"rejected"`

	Status       string              `bigquery:"status"`        // SUCCESS|FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// ModelOutputRow keeps the raw intent parser reply for a submission.
type ModelOutputRow struct {
	OutputID     string `bigquery:"output_id"`     // REQUIRED
	SubmissionID string `bigquery:"submission_id"` // REQUIRED
	UserID       string `bigquery:"user_id"`       // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	RawText   string `bigquery:"raw_text"`   // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
