package ledger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

func sampleLedger() Ledger {
	l := New("alice")
	l = l.Append(domain.Record{Date: "2025-02-10", Category: domain.CategoryDinner, Name: "Ramen", Amount: 980, PaymentMethod: domain.PaymentCash})
	l = l.Append(domain.Record{Date: "2025-02-11", Category: domain.CategorySnack, Name: " komeda coffee ", Amount: 650, PaymentMethod: domain.PaymentPayPay})
	l = l.Append(domain.Record{Date: "2025-02-12", Category: domain.CategoryOther, Name: `umbrella, "large"`, Amount: 1500, PaymentMethod: domain.PaymentCreditCard})
	return l
}

func TestLedger_AppendDoesNotAlias(t *testing.T) {
	l := sampleLedger()
	next := l.Append(domain.Record{Date: "2025-02-13", Category: domain.CategoryLunch, Name: "udon", Amount: 500, PaymentMethod: domain.PaymentCash})

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 4, next.Len())
	assert.Equal(t, l.Records, next.Records[:3])

	next.Records[0].Name = "changed"
	assert.Equal(t, "Ramen", l.Records[0].Name)
}

func TestCodec_RoundTrip(t *testing.T) {
	l := sampleLedger()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, l))
	assert.True(t, strings.HasPrefix(buf.String(), "date,category,name,amount,payment_method\n"))

	got, err := Decode(&buf, "alice")
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestDecode(t *testing.T) {
	t.Run("empty input is an empty ledger", func(t *testing.T) {
		l, err := Decode(strings.NewReader(""), "bob")
		require.NoError(t, err)
		assert.Equal(t, New("bob"), l)
	})

	t.Run("header only", func(t *testing.T) {
		l, err := Decode(strings.NewReader("date,category,name,amount,payment_method\n"), "bob")
		require.NoError(t, err)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("localized header with BOM and reordered columns", func(t *testing.T) {
		in := "\xEF\xBB\xBF名稱,日期,價格,類別,支付方式\nramen,2025-02-13,980.0,dinner,cash\n"
		l, err := Decode(strings.NewReader(in), "bob")
		require.NoError(t, err)
		require.Equal(t, 1, l.Len())
		assert.Equal(t, domain.Record{Date: "2025-02-13", Category: domain.CategoryDinner, Name: "ramen", Amount: 980, PaymentMethod: domain.PaymentCash}, l.Records[0])
	})

	t.Run("malformed date is tolerated", func(t *testing.T) {
		in := "date,category,name,amount,payment_method\n13/02,dinner,ramen,980,cash\n"
		l, err := Decode(strings.NewReader(in), "bob")
		require.NoError(t, err)
		assert.Equal(t, "13/02", l.Records[0].Date)
	})

	t.Run("non-numeric amount is corrupt", func(t *testing.T) {
		in := "date,category,name,amount,payment_method\n2025-02-13,dinner,ramen,lots,cash\n"
		_, err := Decode(strings.NewReader(in), "bob")
		assert.ErrorContains(t, err, "line 2")
	})

	t.Run("fractional amount is corrupt", func(t *testing.T) {
		in := "date,category,name,amount,payment_method\n2025-02-13,dinner,ramen,9.5,cash\n"
		_, err := Decode(strings.NewReader(in), "bob")
		assert.ErrorContains(t, err, "whole number")
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := Decode(strings.NewReader("date,name,amount\n"), "bob")
		assert.ErrorContains(t, err, "category")
	})
}

func TestValidateUserID(t *testing.T) {
	for _, ok := range []string{"alice", "bob.smith", "user_1", "a@b.c"} {
		assert.NoError(t, ValidateUserID(ok), ok)
	}
	for _, bad := range []string{"", ".hidden", "../etc", "a/b", "has space", strings.Repeat("x", 65)} {
		assert.ErrorIs(t, ValidateUserID(bad), domain.ErrInvalidUserID, bad)
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "data"))

	l, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, New("alice"), l)
}

func TestFileStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := NewFileStore(dir)
	ctx := context.Background()

	l := sampleLedger()
	require.NoError(t, store.Save(ctx, "alice", l))

	got, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, l, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "expenses_alice.csv", entries[0].Name())
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice", sampleLedger()))
	short := New("alice").Append(domain.Record{Date: "2025-03-01", Category: domain.CategoryLunch, Name: "soba", Amount: 700, PaymentMethod: domain.PaymentCash})
	require.NoError(t, store.Save(ctx, "alice", short))

	got, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, short, got)
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, os.WriteFile(store.Path("alice"), []byte("date,category,name,amount,payment_method\n2025-01-01,dinner,x,NaNish,cash\n"), 0o644))

	_, err := store.Load(context.Background(), "alice")
	var serr *domain.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "decode", serr.Op)
}

func TestFileStore_SaveRejectsIncompleteRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alice", sampleLedger()))
	before, err := os.ReadFile(store.Path("alice"))
	require.NoError(t, err)

	bad := sampleLedger().Append(domain.Record{Date: "2025-02-14", Category: domain.CategoryOther, Amount: 1, PaymentMethod: domain.PaymentCash})
	err = store.Save(ctx, "alice", bad)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldName, verr.Field)

	after, err := os.ReadFile(store.Path("alice"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_RejectsBadUserID(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
	assert.ErrorIs(t, store.Save(context.Background(), "a/b", New("a/b")), domain.ErrInvalidUserID)
}

func TestFileStore_Backup(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(filepath.Join(root, "data"))
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alice", sampleLedger()))
	require.NoError(t, store.Save(ctx, "bob", New("bob")))

	now := time.Date(2025, 2, 13, 9, 0, 0, 0, time.UTC)
	written, err := store.Backup(ctx, filepath.Join(root, "backups"), now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "backups", "expenses_alice_20250213.csv"),
		filepath.Join(root, "backups", "expenses_bob_20250213.csv"),
	}, written)

	orig, err := os.ReadFile(store.Path("alice"))
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(root, "backups", "expenses_alice_20250213.csv"))
	require.NoError(t, err)
	assert.Equal(t, orig, copied)
}

func TestBackup_RejectsLedgerLocation(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	store := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alice", sampleLedger()))

	now := time.Date(2025, 2, 13, 9, 0, 0, 0, time.UTC)
	for _, dest := range []string{dir, dir + "/", filepath.Join(root, "data", ".", "")} {
		written, err := store.Backup(ctx, dest, now)
		assert.ErrorIs(t, err, ErrBackupInPlace, dest)
		assert.Empty(t, written)
	}

	users, err := store.Users()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)

	gcs := NewGCSStore(nil, "bucket", "/ledgers/")
	_, err = gcs.Backup(ctx, "ledgers/", now)
	assert.ErrorIs(t, err, ErrBackupInPlace)
}

func TestFileStore_Users(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	users, err := store.Users()
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.Save(ctx, "bob", New("bob")))
	require.NoError(t, store.Save(ctx, "alice", sampleLedger()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "expenses_.hidden.csv"), []byte("x"), 0o644))

	users, err = store.Users()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestUserFromFileName(t *testing.T) {
	user, ok := UserFromFileName(FileName("a.b@example.com"))
	assert.True(t, ok)
	assert.Equal(t, "a.b@example.com", user)

	for _, name := range []string{"expenses_.csv", "expenses_alice.txt", "alice.csv", "expenses_a b.csv"} {
		_, ok := UserFromFileName(name)
		assert.False(t, ok, name)
	}
}

func TestLocker_SerializesPerUser(t *testing.T) {
	locker := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("alice")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locker.locks, "released locks are dropped")
}

func TestLocker_IndependentUsers(t *testing.T) {
	locker := NewLocker()
	unlockA := locker.Lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("bob")
		unlock()
		unlock() // second call is a no-op
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for bob blocked on alice")
	}
}
