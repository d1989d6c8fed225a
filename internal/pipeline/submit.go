package pipeline

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	infra "github.com/Yuan922/MoneyMemoAI/internal/infra/bigquery"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/logger"
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Vocab              domain.Vocabulary
	ExactWhenAmbiguous bool
	Timeout            time.Duration
	ModelName          string

	// Audit is optional.
	Audit AuditSink

	// Locker may be shared with other writers of the same store.
	Locker *ledger.Locker

	Now func() time.Time
}

// Service is the submit boundary: free text in, BatchResult out.
type Service struct {
	pipeline *Pipeline
	audit    AuditSink
	model    string
	now      func() time.Time
}

// NewService wires the submission pipeline.
func NewService(parser IntentParser, store ledger.Store, opts Options) *Service {
	if len(opts.Vocab.Categories) == 0 {
		opts.Vocab = domain.DefaultVocabulary()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultParseTimeout
	}
	if opts.ModelName == "" {
		opts.ModelName = DefaultModelName
	}
	if opts.Locker == nil {
		opts.Locker = ledger.NewLocker()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		pipeline: NewPipeline(
			&ValidateStep{},
			&ParseIntentStep{Parser: parser, Timeout: opts.Timeout},
			&NormalizeStep{Normalizer: NewNormalizer(opts.Vocab)},
			&ApplyStep{
				Store:    store,
				Locker:   opts.Locker,
				Executor: Executor{Vocab: opts.Vocab, ExactWhenAmbiguous: opts.ExactWhenAmbiguous},
			},
		),
		audit: opts.Audit,
		model: opts.ModelName,
		now:   opts.Now,
	}
}

// Submit parses text into commands and applies them to the user's ledger.
//
// Per-command validation failures and unmatched updates are reported in the
// result. A parse, parser or storage failure is returned as the error and
// leaves the persisted ledger as it was.
func (s *Service) Submit(ctx context.Context, sub Submission) (BatchResult, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.ReferenceTime.IsZero() {
		sub.ReferenceTime = s.now()
	}

	log := logger.FromContext(ctx).With().
		Str("submission_id", sub.ID).
		Str("user_id", sub.UserID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	state := &SubmissionState{Submission: sub}
	err := s.pipeline.Execute(ctx, state)
	if err != nil {
		log.Error().Err(err).Str("kind", string(state.Kind)).Msg("submission failed")
	} else {
		state.Result.SubmissionID = sub.ID
		log.Info().
			Str("kind", string(state.Kind)).
			Int("applied", state.Result.Applied).
			Int("unmatched", state.Result.Unmatched).
			Int("rejected", state.Result.Rejected).
			Msg("submission processed")
	}

	s.recordAudit(ctx, state, err)
	if err != nil {
		return BatchResult{SubmissionID: sub.ID, UserID: sub.UserID, Kind: state.Kind}, err
	}
	return state.Result, nil
}

// recordAudit writes the model output and submission rows. Failures are
// logged only.
func (s *Service) recordAudit(ctx context.Context, state *SubmissionState, subErr error) {
	if s.audit == nil {
		return
	}
	log := logger.FromContext(ctx)
	sub := state.Submission
	now := s.now()

	if state.RawOutput != "" {
		if err := s.audit.RecordModelOutput(ctx, &infra.ModelOutputRow{
			OutputID:     uuid.NewString(),
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			ModelName:    s.model,
			RawText:      state.RawOutput,
			CreatedTS:    now,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to record model output")
		}
	}

	row := &infra.SubmissionRow{
		SubmissionID:  sub.ID,
		UserID:        sub.UserID,
		Kind:          string(state.Kind),
		InputText:     sub.Text,
		ReferenceDate: civil.DateOf(sub.ReferenceTime),
		Applied:       int64(state.Result.Applied),
		Unmatched:     int64(state.Result.Unmatched),
		Rejected:      int64(state.Result.Rejected),
		Status:        StatusSuccess,
		CreatedTS:     now,
	}
	if subErr != nil {
		row.Status = StatusFailed
		row.ErrorMessage = bigquery.NullString{StringVal: subErr.Error(), Valid: true}
	}
	if err := s.audit.RecordSubmission(ctx, row); err != nil {
		log.Warn().Err(err).Msg("failed to record submission")
	}
}

// DetectKind routes text carrying an edit keyword to the update path.
func DetectKind(text string) domain.CommandKind {
	for _, kw := range editKeywords {
		if strings.Contains(text, kw) {
			return domain.KindUpdate
		}
	}
	if editWords.MatchString(text) {
		return domain.KindUpdate
	}
	return domain.KindAdd
}
