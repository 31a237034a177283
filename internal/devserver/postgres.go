package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sidewayqr/internal/model"
)

// PostgresRepository persists accounts, events and attendances in Postgres.
type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		code TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		event_id INTEGER NOT NULL REFERENCES events(id),
		attended_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, event_id)
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SeedDemo inserts the demo account and events unless they already exist.
func (r *PostgresRepository) SeedDemo(ctx context.Context) error {
	hash, err := hashPassword(DemoPassword, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), DemoEmail, string(hash)); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	for _, evt := range DemoEvents(r.now()) {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO events (id, name, start_date, end_date, code)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, evt.ID, evt.Name, evt.StartTime, evt.EndTime, evt.Code); err != nil {
			return fmt.Errorf("seed event %d: %w", evt.ID, err)
		}
	}
	return nil
}

func (r *PostgresRepository) Authenticate(ctx context.Context, email, password string) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash FROM users WHERE email = $1`, normalizeEmail(email))
	var (
		u    User
		hash string
	)
	if err := row.Scan(&u.ID, &u.Email, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidLogin
		}
		return User{}, err
	}
	u.PasswordHash = []byte(hash)
	if err := checkPassword(u.PasswordHash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepository) AttendedEvents(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.start_date, e.end_date
		FROM events e
		JOIN attendances a ON a.event_id = e.id
		WHERE a.user_id = $1
		ORDER BY e.start_date DESC, e.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []model.Event{}
	for rows.Next() {
		var evt model.Event
		if err := rows.Scan(&evt.ID, &evt.Name, &evt.StartTime, &evt.EndTime); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

func (r *PostgresRepository) Attend(ctx context.Context, userID string, eventID int, code string) (bool, error) {
	var want string
	err := r.db.QueryRowContext(ctx, `SELECT code FROM events WHERE id = $1`, eventID).Scan(&want)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrUnknownEvent
		}
		return false, err
	}
	if want != code {
		return false, ErrWrongCode
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendances (id, user_id, event_id, attended_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, uuid.NewString(), userID, eventID, r.now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
