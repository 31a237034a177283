package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects SQL placeholder syntax.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) placeholders(n int) []any {
	out := make([]any, n)
	for i := range out {
		if d == DialectPostgres {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// SQLStore keeps the credential in a session_credentials row keyed by namespace.
type SQLStore struct {
	db        *sql.DB
	namespace string
	nowFunc   func() time.Time

	getQuery   string
	setQuery   string
	clearQuery string
}

func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, namespace string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := &SQLStore{
		db:         db,
		namespace:  namespace,
		nowFunc:    time.Now,
		getQuery:   fmt.Sprintf(`SELECT cookie FROM session_credentials WHERE namespace = %s`, dialect.placeholders(1)...),
		setQuery:   fmt.Sprintf(`INSERT INTO session_credentials (namespace, cookie, updated_at) VALUES (%s, %s, %s) ON CONFLICT (namespace) DO UPDATE SET cookie = excluded.cookie, updated_at = excluded.updated_at`, dialect.placeholders(3)...),
		clearQuery: fmt.Sprintf(`DELETE FROM session_credentials WHERE namespace = %s`, dialect.placeholders(1)...),
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS session_credentials (
	namespace TEXT PRIMARY KEY,
	cookie TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return storageErr("init", fmt.Errorf("ensure session_credentials schema: %w", err))
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context) (string, bool, error) {
	var cred string
	err := s.db.QueryRowContext(ctx, s.getQuery, s.namespace).Scan(&cred)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, storageErr("get", fmt.Errorf("query credential: %w", err))
	}
	return cred, present(cred), nil
}

func (s *SQLStore) Set(ctx context.Context, cred string) error {
	if _, err := s.db.ExecContext(ctx, s.setQuery, s.namespace, cred, s.nowFunc().UTC()); err != nil {
		return storageErr("set", fmt.Errorf("upsert credential: %w", err))
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.clearQuery, s.namespace); err != nil {
		return storageErr("clear", fmt.Errorf("delete credential: %w", err))
	}
	return nil
}
