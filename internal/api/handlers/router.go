package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yuan922/MoneyMemoAI/internal/api/middleware"
)

// NewRouter registers every endpoint and wraps the mux in the middleware
// chain: RequestID, Recovery, Logger, CORS. Browser calls are accepted from
// allowedOrigins.
func NewRouter(subs *SubmissionsHandler, ledgers *LedgerHandler, jobsHandler *JobsHandler, allowedOrigins []string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/{user}/submissions", subs.Submit)
	mux.HandleFunc("POST /api/users/{user}/submissions/async", subs.SubmitAsync)
	mux.HandleFunc("GET /api/users/{user}/records", ledgers.ListRecords)
	mux.HandleFunc("GET /api/users/{user}/summary", ledgers.Summary)

	if jobsHandler != nil {
		mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.RequestID(
		middleware.Recovery(log)(
			middleware.Logger(log)(
				middleware.CORS(allowedOrigins)(mux),
			),
		),
	)
}
