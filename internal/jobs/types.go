package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/pipeline"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// SubmissionJob is a submission processed in the background.
type SubmissionJob struct {
	JobID         string                  `json:"job_id"`
	UserID        string                  `json:"user_id"`
	Text          string                  `json:"text"`
	Kind          pipeline.SubmissionKind `json:"kind"`
	ReferenceTime time.Time               `json:"reference_time"`
	Status        JobStatus               `json:"status"`
	Result        *pipeline.BatchResult   `json:"result,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	StartedAt     *time.Time              `json:"started_at,omitempty"`
	CompletedAt   *time.Time              `json:"completed_at,omitempty"`
	Error         string                  `json:"error,omitempty"`
	RetryCount    int                     `json:"retry_count"`
	MaxRetries    int                     `json:"max_retries"`
}

// Submission converts the job into a pipeline submission. The job id is
// reused as the submission id so audit rows can be joined to jobs.
func (j *SubmissionJob) Submission() pipeline.Submission {
	return pipeline.Submission{
		ID:            j.JobID,
		UserID:        j.UserID,
		Text:          j.Text,
		Kind:          j.Kind,
		ReferenceTime: j.ReferenceTime,
	}
}

// Publisher enqueues submission jobs.
type Publisher interface {
	PublishSubmission(ctx context.Context, job *SubmissionJob) error
	Close() error
}

// Consumer runs jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error for which Retryable is true
// causes the job to be retried.
type JobHandler func(ctx context.Context, job *SubmissionJob) error

// JobStore stores and retrieves job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *SubmissionJob) error
	GetJob(ctx context.Context, jobID string) (*SubmissionJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*SubmissionJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}

// ErrJobNotFound is returned by JobStore.GetJob for an unknown id.
var ErrJobNotFound = errors.New("job not found")

// Retryable reports whether a failed submission may succeed if run again.
// Only a lost optimistic-concurrency race qualifies; parse and validation
// failures would fail the same way again.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}

// SubmitHandler returns a JobHandler that runs jobs through svc.
func SubmitHandler(svc *pipeline.Service) JobHandler {
	return func(ctx context.Context, job *SubmissionJob) error {
		res, err := svc.Submit(ctx, job.Submission())
		if err != nil {
			return err
		}
		job.Result = &res
		return nil
	}
}
