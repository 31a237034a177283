package main

import (
	"context"
	"fmt"

	"sidewayqr/internal/config"
	"sidewayqr/internal/session"
	"sidewayqr/internal/store"
)

// openStore builds the credential store named by backend. The returned
// closer releases any connection the store holds.
func openStore(ctx context.Context, backend string, cfg config.App) (session.Store, func() error, error) {
	noop := func() error { return nil }
	ns := cfg.SessionNamespace

	switch backend {
	case "", "file":
		path := cfg.SessionFile
		if path == "" {
			p, err := session.DefaultFilePath(ns)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve session file: %w", err)
			}
			path = p
		}
		s, err := session.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "memory":
		return session.NewMemoryStore(), noop, nil
	case "redis":
		r := store.NewRedis(cfg.RedisAddr)
		return session.NewRedisStore(r.Client, ns), r.Close, nil
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s, err := session.NewSQLStore(ctx, db.Client, session.DialectPostgres, ns)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	case "sqlite":
		db, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := session.NewSQLStore(ctx, db.Client, session.DialectSQLite, ns)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
