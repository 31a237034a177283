package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreSetGetClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.Get(ctx); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "session=abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	cred, ok, err := store.Get(ctx)
	if err != nil || !ok || cred != "session=abc" {
		t.Fatalf("Get() = %q, %v, %v", cred, ok, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatal("expected credential to be cleared")
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemoryStore().Set(ctx, "x")
	if !errors.Is(err, ErrStorage) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected storage error wrapping context.Canceled, got %v", err)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if _, ok, err := store.Get(ctx); ok || err != nil {
		t.Fatalf("expected missing file to read as absent, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "session=tok1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	store2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() second error: %v", err)
	}
	cred, ok, err := store2.Get(ctx)
	if err != nil || !ok || cred != "session=tok1" {
		t.Fatalf("Get() = %q, %v, %v", cred, ok, err)
	}

	if err := store2.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatal("expected credential to be cleared for every instance")
	}
	if err := store2.Clear(ctx); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}
}

func TestFileStoreBlankCredentialIsAbsent(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "cookies.json"))
	if err := store.Set(ctx, "   "); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, ok, err := store.Get(ctx); ok || err != nil {
		t.Fatalf("expected blank credential to read as absent, got ok=%v err=%v", ok, err)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	store, _ := NewFileStore(path)
	_, _, err := store.Get(context.Background())
	var serr *StorageError
	if !errors.As(err, &serr) || serr.Op != "get" {
		t.Fatalf("expected get StorageError, got %v", err)
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestFileStoreConcurrentSetsLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(filepath.Join(t.TempDir(), "cookies.json"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Set(ctx, fmt.Sprintf("session=%d", i)); err != nil {
				t.Errorf("Set() error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if err := store.Set(ctx, "session=final"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	cred, ok, err := store.Get(ctx)
	if err != nil || !ok || cred != "session=final" {
		t.Fatalf("Get() = %q, %v, %v", cred, ok, err)
	}
}

func TestNewSQLStoreEnsuresSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_credentials").WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := NewSQLStore(context.Background(), db, DialectPostgres, ""); err != nil {
		t.Fatalf("NewSQLStore() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestSQLStoreSetAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, DialectPostgres, "cookies")
	if err != nil {
		t.Fatalf("NewSQLStore() error: %v", err)
	}
	store.nowFunc = func() time.Time { return time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC) }

	mock.ExpectExec("INSERT INTO session_credentials").
		WithArgs("cookies", "session=tok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := store.Set(context.Background(), "session=tok"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	mock.ExpectQuery("SELECT cookie FROM session_credentials").
		WithArgs("cookies").
		WillReturnRows(sqlmock.NewRows([]string{"cookie"}).AddRow("session=tok"))
	cred, ok, err := store.Get(context.Background())
	if err != nil || !ok || cred != "session=tok" {
		t.Fatalf("Get() = %q, %v, %v", cred, ok, err)
	}

	mock.ExpectExec("DELETE FROM session_credentials").WithArgs("cookies").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestSQLStoreMissingRowIsAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, DialectSQLite, "cookies")
	if err != nil {
		t.Fatalf("NewSQLStore() error: %v", err)
	}

	mock.ExpectQuery("SELECT cookie FROM session_credentials").
		WithArgs("cookies").
		WillReturnRows(sqlmock.NewRows([]string{"cookie"}))
	if _, ok, err := store.Get(context.Background()); ok || err != nil {
		t.Fatalf("expected absent credential, got ok=%v err=%v", ok, err)
	}
}

func TestSQLStoreQueryFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, DialectPostgres, "cookies")
	if err != nil {
		t.Fatalf("NewSQLStore() error: %v", err)
	}

	mock.ExpectQuery("SELECT cookie FROM session_credentials").WillReturnError(errors.New("connection reset"))
	if _, _, err := store.Get(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestSQLDialectPlaceholders(t *testing.T) {
	if got := fmt.Sprintf("%s %s", DialectPostgres.placeholders(2)...); got != "$1 $2" {
		t.Fatalf("unexpected postgres placeholders %q", got)
	}
	if got := fmt.Sprintf("%s %s", DialectSQLite.placeholders(2)...); got != "? ?" {
		t.Fatalf("unexpected sqlite placeholders %q", got)
	}
}

func TestRedisStoreUnreachableIsStorageError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client, "")
	if store.Key() != "cookies:cookie" {
		t.Fatalf("unexpected key %q", store.Key())
	}
	if _, _, err := store.Get(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := store.Set(context.Background(), "x"); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
