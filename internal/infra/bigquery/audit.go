package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	// DefaultDatasetID is the dataset holding the audit tables.
	DefaultDatasetID = "moneymemo"

	submissionsTable  = "submissions"
	modelOutputsTable = "model_outputs"
)

// AuditLog writes submission history to BigQuery with one shared client.
type AuditLog struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewAuditLog creates a BigQuery client for projectID.
func NewAuditLog(ctx context.Context, projectID, datasetID string) (*AuditLog, error) {
	if projectID == "" {
		return nil, errors.New("NewAuditLog: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewAuditLog: creating client: %w", err)
	}
	return NewAuditLogWithClient(client, projectID, datasetID), nil
}

// NewAuditLogWithClient wraps an existing client.
func NewAuditLogWithClient(client *bigquery.Client, projectID, datasetID string) *AuditLog {
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}
	return &AuditLog{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (a *AuditLog) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// RecordSubmission streams one submission row.
func (a *AuditLog) RecordSubmission(ctx context.Context, row *SubmissionRow) error {
	inserter := a.client.Dataset(a.datasetID).Table(submissionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("RecordSubmission: inserting row: %w", err)
	}
	return nil
}

// RecordModelOutput stores the raw model reply. Uses DML INSERT so the row
// is immediately visible to queries.
func (a *AuditLog) RecordModelOutput(ctx context.Context, row *ModelOutputRow) error {
	q := a.client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s`"+` (
			output_id, submission_id, user_id,
			model_name, raw_text, created_ts
		)
		VALUES (
			@output_id, @submission_id, @user_id,
			@model_name, @raw_text, @created_ts
		)
	`, a.tableRef(modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "submission_id", Value: row.SubmissionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("RecordModelOutput: running insert query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("RecordModelOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("RecordModelOutput: job error: %w", err)
	}
	return nil
}

// ListSubmissions returns the newest submissions of userID first.
func (a *AuditLog) ListSubmissions(ctx context.Context, userID string, limit int) ([]*SubmissionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			submission_id,
			user_id,
			kind,
			input_text,
			reference_date,
			applied,
			unmatched,
			rejected,
			status,
			error_message,
			created_ts
		FROM `+"`%s`"+`
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
		LIMIT @limit
	`, a.tableRef(submissionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSubmissions: reading query: %w", err)
	}

	var rows []*SubmissionRow
	for {
		var row SubmissionRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSubmissions: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// EnsureTables creates the dataset and audit tables when missing. Schemas
// are inferred from the row structs.
func (a *AuditLog) EnsureTables(ctx context.Context) error {
	ds := a.client.Dataset(a.datasetID)
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("EnsureTables: creating dataset %s: %w", a.datasetID, err)
	}

	for name, row := range map[string]interface{}{
		submissionsTable:  SubmissionRow{},
		modelOutputsTable: ModelOutputRow{},
	} {
		schema, err := bigquery.InferSchema(row)
		if err != nil {
			return fmt.Errorf("EnsureTables: inferring schema for %s: %w", name, err)
		}
		meta := &bigquery.TableMetadata{
			Schema: schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: "created_ts",
			},
		}
		if err := ds.Table(name).Create(ctx, meta); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating table %s: %w", name, err)
		}
	}
	return nil
}

func (a *AuditLog) tableRef(table string) string {
	return a.projectID + "." + a.datasetID + "." + table
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
