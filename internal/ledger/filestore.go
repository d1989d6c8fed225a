package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps each ledger as data_dir/expenses_<user>.csv.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the table path for userID.
func (s *FileStore) Path(userID string) string {
	return filepath.Join(s.dir, FileName(userID))
}

func (s *FileStore) Load(ctx context.Context, userID string) (Ledger, error) {
	if err := ValidateUserID(userID); err != nil {
		return Ledger{}, err
	}
	if err := ctx.Err(); err != nil {
		return Ledger{}, storageErr("load", userID, err)
	}

	data, err := os.ReadFile(s.Path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return New(userID), nil
	}
	if err != nil {
		return Ledger{}, storageErr("load", userID, err)
	}

	l, err := Decode(bytes.NewReader(data), userID)
	if err != nil {
		return Ledger{}, storageErr("decode", userID, err)
	}
	return l, nil
}

// Users lists the users that have a ledger file, sorted.
func (s *FileStore) Users() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "expenses_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list ledger files: %w", err)
	}
	users := make([]string, 0, len(matches))
	for _, m := range matches {
		if userID, ok := UserFromFileName(filepath.Base(m)); ok {
			users = append(users, userID)
		}
	}
	return users, nil
}

func (s *FileStore) Save(ctx context.Context, userID string, l Ledger) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := checkSavable(l); err != nil {
		return storageErr("save", userID, err)
	}
	if err := ctx.Err(); err != nil {
		return storageErr("save", userID, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return storageErr("encode", userID, err)
	}
	if err := writeFileAtomic(s.Path(userID), buf.Bytes()); err != nil {
		return storageErr("save", userID, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
