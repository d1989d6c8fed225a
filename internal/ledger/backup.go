package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backupper snapshots every user's table into a dated copy.
type Backupper interface {
	Backup(ctx context.Context, dest string, now time.Time) ([]string, error)
}

// ErrBackupInPlace is returned when the backup destination is the store's own
// location. Dated copies there would be listed as ledgers of extra users.
var ErrBackupInPlace = errors.New("backup destination is the ledger location")

var (
	_ Backupper = (*FileStore)(nil)
	_ Backupper = (*GCSStore)(nil)
)

// backupName maps expenses_<user>.csv to expenses_<user>_YYYYMMDD.csv.
func backupName(base string, now time.Time) string {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s.csv", stem, now.Format("20060102"))
}

// Backup copies every ledger file in the store directory to backupDir.
// A same-day backup is overwritten. It stops at the first failure and
// returns the paths written so far.
func (s *FileStore) Backup(ctx context.Context, backupDir string, now time.Time) ([]string, error) {
	same, err := samePath(s.dir, backupDir)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, fmt.Errorf("backup to %s: %w", backupDir, ErrBackupInPlace)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, "expenses_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list ledger files: %w", err)
	}

	var written []string
	for _, src := range matches {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return written, fmt.Errorf("read %s: %w", src, err)
		}
		dst := filepath.Join(backupDir, backupName(filepath.Base(src), now))
		if err := writeFileAtomic(dst, data); err != nil {
			return written, fmt.Errorf("write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
