package ledger

import (
	"context"
	"fmt"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// Store persists one table per user.
//
// Load returns an empty ledger when the user has no table yet and an error
// when a table exists but cannot be read or decoded. Save rewrites the whole
// table atomically: a concurrent or subsequent Load sees either the previous
// or the new content, never a partial row.
type Store interface {
	Load(ctx context.Context, userID string) (Ledger, error)
	Save(ctx context.Context, userID string, l Ledger) error
}

// checkSavable rejects ledgers holding records with missing fields.
func checkSavable(l Ledger) error {
	for i, r := range l.Records {
		if err := r.Complete(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func storageErr(op, userID string, err error) error {
	return &domain.StorageError{Op: op, UserID: userID, Err: err}
}
