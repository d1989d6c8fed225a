package pipeline

import (
	"fmt"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/match"
)

// Executor applies commands to a ledger value. It never touches storage.
type Executor struct {
	Vocab domain.Vocabulary

	// ExactWhenAmbiguous narrows an update that matches several rows to the
	// rows equal to the search values, when there are any.
	ExactWhenAmbiguous bool
}

// Apply runs one command. The returned ledger is l itself unless the outcome
// is StateApplied.
func (e Executor) Apply(l ledger.Ledger, cmd domain.Command) (ledger.Ledger, Outcome) {
	out := Outcome{Kind: cmd.Kind, State: StatePending}
	switch cmd.Kind {
	case domain.KindAdd:
		return e.applyAdd(l, cmd, out)
	case domain.KindUpdate:
		return e.applyUpdate(l, cmd, out)
	}
	return l, reject(out, &domain.ValidationError{Reason: fmt.Sprintf("unknown command kind %q", cmd.Kind)})
}

// ApplyBatch runs cmds in order, threading the ledger through each. errs is
// aligned with cmds; a non-nil entry marks a command rejected during
// normalization.
func (e Executor) ApplyBatch(l ledger.Ledger, cmds []domain.Command, errs []error) (ledger.Ledger, []Outcome) {
	outcomes := make([]Outcome, len(cmds))
	for i, cmd := range cmds {
		var o Outcome
		if i < len(errs) && errs[i] != nil {
			o = reject(Outcome{Kind: cmd.Kind}, errs[i])
		} else {
			l, o = e.Apply(l, cmd)
		}
		o.Index = i
		outcomes[i] = o
	}
	return l, outcomes
}

func (e Executor) applyAdd(l ledger.Ledger, cmd domain.Command, out Outcome) (ledger.Ledger, Outcome) {
	if err := cmd.Record.Validate(e.Vocab); err != nil {
		return l, reject(out, err)
	}
	next := l.Append(cmd.Record)
	out.State = StateApplied
	out.Matched = []int{next.Len() - 1}
	out.Message = fmt.Sprintf("added %s", cmd.Record)
	return next, out
}

func (e Executor) applyUpdate(l ledger.Ledger, cmd domain.Command, out Outcome) (ledger.Ledger, Outcome) {
	pred := match.Build(cmd.Search)
	if pred.Empty() {
		return l, reject(out, &domain.ValidationError{Reason: "search is empty", Err: domain.ErrEmptySearch})
	}
	if len(cmd.Update) == 0 {
		return l, reject(out, &domain.ValidationError{Reason: "update is empty"})
	}

	indices := match.Match(l, pred)
	if len(indices) == 0 {
		// Unmatched is terminal once reported; the ledger is untouched.
		err := &domain.NoMatchError{Search: cmd.Search}
		out.State = StateReported
		out.Err = err
		out.Error = err.Error()
		out.Message = err.Error()
		return l, out
	}
	out.State = StateMatched
	if e.ExactWhenAmbiguous && len(indices) > 1 {
		indices = match.Narrow(l, indices, pred)
	}

	next := l.Clone()
	for _, i := range indices {
		rec := next.Records[i]
		for _, f := range cmd.Update.Fields() {
			if err := rec.Set(f, cmd.Update[f]); err != nil {
				return l, reject(out, err)
			}
		}
		next.Records[i] = rec
	}

	out.State = StateApplied
	out.Matched = indices
	out.Message = fmt.Sprintf("updated %d record(s) matching %s: set %s", len(indices), cmd.Search, cmd.Update)
	return next, out
}

func reject(out Outcome, err error) Outcome {
	out.State = StateRejected
	out.Err = err
	out.Error = err.Error()
	out.Message = "rejected: " + err.Error()
	return out
}
