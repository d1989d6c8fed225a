package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
)

// SubmissionStep is a single step of a submission pipeline.
type SubmissionStep interface {
	Name() string
	Execute(ctx context.Context, state *SubmissionState) error
}

// SubmissionState holds the shared state across all submission steps.
type SubmissionState struct {
	Submission Submission
	Kind       domain.CommandKind
	RawOutput  string
	Commands   []domain.Command
	ItemErrs   []error
	Result     BatchResult
}

// Step 1: ValidateStep checks the user id and settles the command kind.
type ValidateStep struct{}

func (s *ValidateStep) Name() string { return "validate" }

func (s *ValidateStep) Execute(ctx context.Context, state *SubmissionState) error {
	if err := ledger.ValidateUserID(state.Submission.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(state.Submission.Text) == "" {
		return &domain.ValidationError{Reason: "submission text is empty"}
	}
	switch state.Submission.Kind {
	case SubmissionAdd:
		state.Kind = domain.KindAdd
	case SubmissionUpdate:
		state.Kind = domain.KindUpdate
	case SubmissionAuto, "":
		state.Kind = DetectKind(state.Submission.Text)
	default:
		return &domain.ValidationError{Reason: fmt.Sprintf("unknown submission kind %q", state.Submission.Kind)}
	}
	return nil
}

// Step 2: ParseIntentStep calls the intent parser under a timeout. It runs
// before the ledger is loaded, so a timeout cannot leave a partial change.
type ParseIntentStep struct {
	Parser  IntentParser
	Timeout time.Duration
}

func (s *ParseIntentStep) Name() string { return "parse intent" }

func (s *ParseIntentStep) Execute(ctx context.Context, state *SubmissionState) error {
	pctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	sub := state.Submission
	var (
		raw string
		err error
	)
	if state.Kind == domain.KindUpdate {
		raw, err = s.Parser.ParseUpdate(pctx, sub.Text, sub.ReferenceTime)
	} else {
		raw, err = s.Parser.ParseAdd(pctx, sub.Text, sub.ReferenceTime)
	}
	if err != nil {
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: timed out after %s", domain.ErrIntentParser, s.Timeout)
		}
		return fmt.Errorf("%w: %v", domain.ErrIntentParser, err)
	}
	state.RawOutput = raw
	return nil
}

// Step 3: NormalizeStep turns the raw output into commands.
type NormalizeStep struct {
	Normalizer *Normalizer
}

func (s *NormalizeStep) Name() string { return "normalize" }

func (s *NormalizeStep) Execute(ctx context.Context, state *SubmissionState) error {
	normalize := s.Normalizer.NormalizeAdd
	if state.Kind == domain.KindUpdate {
		normalize = s.Normalizer.NormalizeUpdate
	}
	cmds, errs, err := normalize(state.RawOutput, state.Submission.ReferenceTime)
	if err != nil {
		return err
	}
	for i := range cmds {
		if cmds[i].Kind == "" {
			cmds[i].Kind = state.Kind
		}
	}
	state.Commands = cmds
	state.ItemErrs = errs
	return nil
}

// Step 4: ApplyStep runs load, apply and save under the user's lock. The
// ledger is written once, and only when a command was applied.
type ApplyStep struct {
	Store    ledger.Store
	Locker   *ledger.Locker
	Executor Executor
}

func (s *ApplyStep) Name() string { return "apply" }

func (s *ApplyStep) Execute(ctx context.Context, state *SubmissionState) error {
	userID := state.Submission.UserID
	unlock := s.Locker.Lock(userID)
	defer unlock()

	l, err := s.Store.Load(ctx, userID)
	if err != nil {
		return err
	}

	next, outcomes := s.Executor.ApplyBatch(l, state.Commands, state.ItemErrs)
	res := newBatchResult(state.Submission, state.Kind, outcomes)
	if res.Applied > 0 {
		if err := s.Store.Save(ctx, userID, next); err != nil {
			return err
		}
	}
	state.Result = res
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []SubmissionStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...SubmissionStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *SubmissionState) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}
