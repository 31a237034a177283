package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNilHandlesAreSafe(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Fatalf("Close() on nil DB error: %v", err)
	}
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Fatal("nil redis must not report healthy")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() on nil Redis error: %v", err)
	}
}

func TestNewSQLiteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.db")
	db, err := NewSQLite(context.Background(), path)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("go-sqlite3 needs cgo")
	}
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	defer db.Close()

	if _, err := db.Client.Exec(`CREATE TABLE t (v TEXT)`); err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
}

func TestRedisUnreachableIsUnhealthy(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if r.Healthy(ctx) {
		t.Fatal("expected unreachable redis to be unhealthy")
	}
}

func TestRedisClientDoesNotRetry(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	defer r.Close()

	opts := r.Client.Options()
	// go-redis normalizes MaxRetries -1 to 0 retries.
	if opts.MaxRetries != 0 {
		t.Fatalf("expected no retries, got %d", opts.MaxRetries)
	}
	if opts.PoolSize != 2 {
		t.Fatalf("expected pool size 2, got %d", opts.PoolSize)
	}
}
