package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// GCSStore keeps each ledger as one object under a bucket prefix.
//
// Saves are conditional on the object generation observed by the last Load,
// so a write that races another process fails with domain.ErrConflict rather
// than silently dropping the other writer's rows.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string

	mu          sync.Mutex
	generations map[string]int64
}

// NewGCSStore wraps an existing storage client. It assumes Application
// Default Credentials are configured.
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{
		client:      client,
		bucket:      bucket,
		prefix:      strings.Trim(prefix, "/"),
		generations: make(map[string]int64),
	}
}

// ObjectName returns the object path holding userID's table.
func (s *GCSStore) ObjectName(userID string) string {
	return path.Join(s.prefix, FileName(userID))
}

func (s *GCSStore) Load(ctx context.Context, userID string) (Ledger, error) {
	if err := ValidateUserID(userID); err != nil {
		return Ledger{}, err
	}

	obj := s.client.Bucket(s.bucket).Object(s.ObjectName(userID))
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		s.setGeneration(userID, 0)
		return New(userID), nil
	}
	if err != nil {
		return Ledger{}, storageErr("load", userID, fmt.Errorf("open object reader: %w", err))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return Ledger{}, storageErr("load", userID, fmt.Errorf("read object: %w", err))
	}

	l, err := Decode(bytes.NewReader(data), userID)
	if err != nil {
		return Ledger{}, storageErr("decode", userID, err)
	}
	s.setGeneration(userID, r.Attrs.Generation)
	return l, nil
}

func (s *GCSStore) Save(ctx context.Context, userID string, l Ledger) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := checkSavable(l); err != nil {
		return storageErr("save", userID, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return storageErr("encode", userID, err)
	}

	obj := s.client.Bucket(s.bucket).Object(s.ObjectName(userID))
	if gen, ok := s.generation(userID); ok {
		if gen == 0 {
			obj = obj.If(storage.Conditions{DoesNotExist: true})
		} else {
			obj = obj.If(storage.Conditions{GenerationMatch: gen})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// A GCS object becomes visible only when the writer is closed, which
	// gives the same all-or-nothing replacement as a local rename.
	w := obj.NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"
	if _, err := io.Copy(w, &buf); err != nil {
		_ = w.Close()
		return storageErr("save", userID, fmt.Errorf("copy to GCS writer: %w", err))
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return storageErr("save", userID, domain.ErrConflict)
		}
		return storageErr("save", userID, fmt.Errorf("finalize upload: %w", err))
	}
	s.setGeneration(userID, w.Attrs().Generation)
	return nil
}

// Backup copies every ledger object to destPrefix/expenses_<user>_YYYYMMDD.csv.
func (s *GCSStore) Backup(ctx context.Context, destPrefix string, now time.Time) ([]string, error) {
	destPrefix = strings.Trim(destPrefix, "/")
	if destPrefix == s.prefix {
		return nil, fmt.Errorf("backup to gs://%s/%s: %w", s.bucket, destPrefix, ErrBackupInPlace)
	}

	bkt := s.client.Bucket(s.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: path.Join(s.prefix, "expenses_")})

	var copied []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return copied, fmt.Errorf("list ledger objects: %w", err)
		}
		base := path.Base(attrs.Name)
		if path.Ext(base) != ".csv" {
			continue
		}
		dst := path.Join(destPrefix, backupName(base, now))
		if _, err := bkt.Object(dst).CopierFrom(bkt.Object(attrs.Name)).Run(ctx); err != nil {
			return copied, fmt.Errorf("copy %s: %w", attrs.Name, err)
		}
		copied = append(copied, "gs://"+s.bucket+"/"+dst)
	}
	return copied, nil
}

func (s *GCSStore) generation(userID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.generations[userID]
	return gen, ok
}

func (s *GCSStore) setGeneration(userID string, gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID] = gen
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusPreconditionFailed
	}
	return false
}
