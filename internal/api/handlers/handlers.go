package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yuan922/MoneyMemoAI/internal/api/middleware"
	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/jobs"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/pipeline"
	"github.com/Yuan922/MoneyMemoAI/internal/report"
)

// Submitter runs a submission synchronously.
type Submitter interface {
	Submit(ctx context.Context, sub pipeline.Submission) (pipeline.BatchResult, error)
}

type submissionRequest struct {
	Text          string     `json:"text"`
	Kind          string     `json:"kind"`
	ReferenceTime *time.Time `json:"reference_time"`
}

// decodeSubmission reads the request body into a submission for userID.
func decodeSubmission(r *http.Request, userID string) (pipeline.Submission, error) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return pipeline.Submission{}, errors.New("invalid request body")
	}
	if req.Text == "" {
		return pipeline.Submission{}, errors.New("text is required")
	}
	kind, ok := pipeline.ParseSubmissionKind(req.Kind)
	if !ok {
		return pipeline.Submission{}, errors.New("kind must be auto, add or update")
	}
	sub := pipeline.Submission{UserID: userID, Text: req.Text, Kind: kind}
	if req.ReferenceTime != nil {
		sub.ReferenceTime = *req.ReferenceTime
	}
	return sub, nil
}

// SubmissionsHandler handles submission endpoints.
type SubmissionsHandler struct {
	submitter Submitter
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSubmissionsHandler creates a new submissions handler. publisher may be
// nil, in which case async submissions are refused.
func NewSubmissionsHandler(submitter Submitter, publisher jobs.Publisher, log zerolog.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{
		submitter: submitter,
		publisher: publisher,
		log:       log,
	}
}

// Submit handles POST /api/users/{user}/submissions
func (h *SubmissionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sub, err := decodeSubmission(r, r.PathValue("user"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.submitter.Submit(r.Context(), sub)
	if err != nil {
		status := StatusForError(err)
		h.log.Warn().Err(err).Str("user_id", sub.UserID).Int("status", status).Msg("Submission failed")
		middleware.WriteError(w, status, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// SubmitAsync handles POST /api/users/{user}/submissions/async
func (h *SubmissionsHandler) SubmitAsync(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async submissions are disabled")
		return
	}

	userID := r.PathValue("user")
	if err := ledger.ValidateUserID(userID); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := decodeSubmission(r, userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.SubmissionJob{
		UserID:        sub.UserID,
		Text:          sub.Text,
		Kind:          sub.Kind,
		ReferenceTime: sub.ReferenceTime,
	}
	if err := h.publisher.PublishSubmission(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue submission job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue submission job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", userID).Msg("Submission job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// LedgerHandler serves read-only views of a ledger.
type LedgerHandler struct {
	store    ledger.Store
	currency string
	log      zerolog.Logger
}

// NewLedgerHandler creates a ledger handler. Summaries use currency.
func NewLedgerHandler(store ledger.Store, currency string, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		store:    store,
		currency: currency,
		log:      log,
	}
}

func (h *LedgerHandler) load(w http.ResponseWriter, r *http.Request) (ledger.Ledger, bool) {
	userID := r.PathValue("user")
	if err := ledger.ValidateUserID(userID); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return ledger.Ledger{}, false
	}
	l, err := h.store.Load(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load ledger")
		middleware.WriteError(w, StatusForError(err), "Failed to load ledger")
		return ledger.Ledger{}, false
	}
	return l, true
}

// ListRecords handles GET /api/users/{user}/records
func (h *LedgerHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": l.UserID,
		"records": l.Records,
		"count":   l.Len(),
	})
}

// Summary handles GET /api/users/{user}/summary
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	includeDeposit := false
	if v := query.Get("include_deposit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid include_deposit value")
			return
		}
		includeDeposit = b
	}

	l, ok := h.load(w, r)
	if !ok {
		return
	}

	s, err := report.Summarize(l, report.Options{
		IncludeDeposit: includeDeposit,
		Currency:       h.currency,
		Month:          query.Get("month"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize ledger")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize ledger")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, s)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// StatusForError maps a submission or storage error to an HTTP status.
func StatusForError(err error) int {
	var (
		parseErr      *domain.ParseError
		validationErr *domain.ValidationError
		storageErr    *domain.StorageError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidUserID):
		return http.StatusBadRequest
	case errors.As(err, &parseErr), errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrIntentParser):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &storageErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
