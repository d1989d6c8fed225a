package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/jobs"
	"github.com/Yuan922/MoneyMemoAI/internal/jobs/inmemory"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/pipeline"
)

type stubSubmitter struct {
	SubmitFunc func(ctx context.Context, sub pipeline.Submission) (pipeline.BatchResult, error)
	last       pipeline.Submission
}

func (s *stubSubmitter) Submit(ctx context.Context, sub pipeline.Submission) (pipeline.BatchResult, error) {
	s.last = sub
	return s.SubmitFunc(ctx, sub)
}

type testServer struct {
	handler   http.Handler
	submitter *stubSubmitter
	store     *ledger.FileStore
	jobStore  *inmemory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	sub := &stubSubmitter{
		SubmitFunc: func(_ context.Context, s pipeline.Submission) (pipeline.BatchResult, error) {
			return pipeline.BatchResult{SubmissionID: "sub-1", UserID: s.UserID, Applied: 1}, nil
		},
	}
	store := ledger.NewFileStore(t.TempDir())
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	h := NewRouter(
		NewSubmissionsHandler(sub, queue, log),
		NewLedgerHandler(store, "JPY", log),
		NewJobsHandler(jobStore, log),
		[]string{"*"},
		log,
	)
	return &testServer{handler: h, submitter: sub, store: store, jobStore: jobStore}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubmit_OK(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users/alice/submissions", `{"text":"ramen 980 cash","kind":"add"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sub-1", body["submission_id"])
	assert.Equal(t, float64(1), body["applied"])
	assert.Equal(t, "alice", s.submitter.last.UserID)
	assert.Equal(t, pipeline.SubmissionAdd, s.submitter.last.Kind)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSubmit_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `text=ramen`},
		{name: "empty text", body: `{"text":""}`},
		{name: "bad kind", body: `{"text":"ramen","kind":"delete"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/users/alice/submissions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmit_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "parse", err: &domain.ParseError{Raw: "abc", Err: errors.New("bad json")}, want: http.StatusUnprocessableEntity},
		{name: "validation", err: &domain.ValidationError{Reason: "submission text is empty"}, want: http.StatusUnprocessableEntity},
		{name: "invalid user", err: fmt.Errorf("validate: %w", domain.ErrInvalidUserID), want: http.StatusBadRequest},
		{name: "parser", err: fmt.Errorf("parse intent: %w: boom", domain.ErrIntentParser), want: http.StatusBadGateway},
		{name: "conflict", err: &domain.StorageError{Op: "save", UserID: "alice", Err: domain.ErrConflict}, want: http.StatusConflict},
		{name: "storage", err: &domain.StorageError{Op: "load", UserID: "alice", Err: errors.New("disk")}, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.submitter.SubmitFunc = func(context.Context, pipeline.Submission) (pipeline.BatchResult, error) {
				return pipeline.BatchResult{}, tt.err
			}
			rec := s.do(t, http.MethodPost, "/api/users/alice/submissions", `{"text":"x"}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, decodeBody(t, rec), "error")
		})
	}
}

func TestSubmitAsync(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/users/alice/submissions/async", `{"text":"ramen 980 cash"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, string(jobs.JobStatusPending), body["status"])

	job, err := s.jobStore.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "alice", job.UserID)
	assert.Equal(t, pipeline.SubmissionAuto, job.Kind)

	rec = s.do(t, http.MethodGet, "/api/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jobID, decodeBody(t, rec)["job_id"])

	rec = s.do(t, http.MethodGet, "/api/jobs?user_id=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
}

func TestSubmitAsync_InvalidUser(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/users/.hidden/submissions/async", `{"text":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsAndSummary(t *testing.T) {
	s := newTestServer(t)

	l := ledger.New("alice")
	l.Records = []domain.Record{
		{Date: "2025-02-13", Category: domain.CategoryDinner, Name: "拉麵", Amount: 980, PaymentMethod: domain.PaymentCash},
		{Date: "2025-02-14", Category: domain.CategoryDeposit, Name: "Suica", Amount: 3000, PaymentMethod: domain.PaymentCreditCard},
	}
	require.NoError(t, s.store.Save(context.Background(), "alice", l))

	rec := s.do(t, http.MethodGet, "/api/users/alice/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/users/alice/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(980), decodeBody(t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/users/alice/summary?include_deposit=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3980), decodeBody(t, rec)["total"])

	rec = s.do(t, http.MethodGet, "/api/users/alice/summary?include_deposit=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecords_EmptyLedger(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/users/nobody/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["records"])
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])

	rec = s.do(t, http.MethodOptions, "/api/users/alice/submissions", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t)
	s.submitter.SubmitFunc = func(context.Context, pipeline.Submission) (pipeline.BatchResult, error) {
		panic("boom")
	}

	rec := s.do(t, http.MethodPost, "/api/users/alice/submissions", `{"text":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}
