package pipeline

import (
	"time"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// SubmissionKind selects the intent parser request for a submission.
type SubmissionKind string

const (
	SubmissionAuto   SubmissionKind = "auto"
	SubmissionAdd    SubmissionKind = "add"
	SubmissionUpdate SubmissionKind = "update"
)

// ParseSubmissionKind accepts "", "auto", "add" or "update".
func ParseSubmissionKind(s string) (SubmissionKind, bool) {
	switch SubmissionKind(s) {
	case "", SubmissionAuto:
		return SubmissionAuto, true
	case SubmissionAdd, SubmissionUpdate:
		return SubmissionKind(s), true
	}
	return "", false
}

// Submission is one free-text request from a user.
type Submission struct {
	ID            string
	UserID        string
	Text          string
	Kind          SubmissionKind
	ReferenceTime time.Time
}

// State is a command's position in the executor state machine.
type State string

const (
	StatePending   State = "pending"
	StateMatched   State = "matched"
	StateApplied   State = "applied"
	StateUnmatched State = "unmatched"
	StateReported  State = "reported"
	StateRejected  State = "rejected"
)

// Outcome is the per-command result of a batch.
type Outcome struct {
	Index   int                `json:"index"`
	Kind    domain.CommandKind `json:"kind"`
	State   State              `json:"state"`
	Matched []int              `json:"matched,omitempty"`
	Message string             `json:"message"`
	Error   string             `json:"error,omitempty"`
	Err     error              `json:"-"`
}

// BatchResult summarizes a submission. A mix of applied, unmatched and
// rejected commands is normal.
type BatchResult struct {
	SubmissionID string             `json:"submission_id"`
	UserID       string             `json:"user_id"`
	Kind         domain.CommandKind `json:"kind"`
	Applied      int                `json:"applied"`
	Unmatched    int                `json:"unmatched"`
	Rejected     int                `json:"rejected"`
	Outcomes     []Outcome          `json:"outcomes"`
	Messages     []string           `json:"messages"`
}

func newBatchResult(sub Submission, kind domain.CommandKind, outcomes []Outcome) BatchResult {
	res := BatchResult{
		SubmissionID: sub.ID,
		UserID:       sub.UserID,
		Kind:         kind,
		Outcomes:     outcomes,
		Messages:     make([]string, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		switch o.State {
		case StateApplied:
			res.Applied++
		case StateReported, StateUnmatched:
			res.Unmatched++
		case StateRejected:
			res.Rejected++
		}
		res.Messages = append(res.Messages, o.Message)
	}
	return res
}
