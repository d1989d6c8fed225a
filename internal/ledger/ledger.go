// Package ledger owns per-user expense tables: the in-memory Ledger value,
// its delimited-text codec and the stores that persist it.
package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// Ledger is the ordered sequence of records belonging to one user.
// Operations that change a ledger return a new value; the receiver is
// never modified in place.
type Ledger struct {
	UserID  string
	Records []domain.Record
}

// New returns an empty ledger for userID.
func New(userID string) Ledger {
	return Ledger{UserID: userID, Records: []domain.Record{}}
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := Ledger{UserID: l.UserID, Records: make([]domain.Record, len(l.Records))}
	copy(out.Records, l.Records)
	return out
}

// Append returns a copy of l with r added at the end.
func (l Ledger) Append(r domain.Record) Ledger {
	out := l.Clone()
	out.Records = append(out.Records, r)
	return out
}

func (l Ledger) Len() int { return len(l.Records) }

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// ValidateUserID rejects ids that cannot safely name a table file or object.
func ValidateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) || strings.HasPrefix(userID, ".") {
		return fmt.Errorf("%w: %q", domain.ErrInvalidUserID, userID)
	}
	return nil
}

// FileName is the table name for a user, shared by every backend.
func FileName(userID string) string {
	return "expenses_" + userID + ".csv"
}

// UserFromFileName is the inverse of FileName. ok is false for names that
// are not ledger tables or carry an invalid user id.
func UserFromFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, "expenses_") || !strings.HasSuffix(name, ".csv") {
		return "", false
	}
	userID := strings.TrimSuffix(strings.TrimPrefix(name, "expenses_"), ".csv")
	if ValidateUserID(userID) != nil {
		return "", false
	}
	return userID, true
}
