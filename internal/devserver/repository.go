// Package devserver is a reference SidewayQR backend used for local runs and
// end-to-end tests of the check-in client.
package devserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sidewayqr/internal/model"
)

var (
	// ErrInvalidLogin is returned for an unknown email or a wrong password.
	ErrInvalidLogin = errors.New("invalid email or password")
	// ErrUnknownEvent is returned when an attendance targets a missing event.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrWrongCode is returned when the scanned code does not match the event.
	ErrWrongCode = errors.New("wrong attendance code")
)

// DemoEmail and DemoPassword identify the seeded account.
const (
	DemoEmail    = "student1@email.com"
	DemoPassword = "student1"
)

// User is an account able to log in.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
}

// EventRecord is an event plus the code its QR poster encodes.
type EventRecord struct {
	model.Event
	Code string
}

// Repository is the storage surface the HTTP handlers use.
type Repository interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
	AttendedEvents(ctx context.Context, userID string) ([]model.Event, error)
	// Attend records userID at eventID. created is false when the
	// attendance already existed.
	Attend(ctx context.Context, userID string, eventID int, code string) (created bool, err error)
}

// DemoEvents returns the events seeded into fresh repositories, relative to now.
func DemoEvents(now time.Time) []EventRecord {
	day := now.UTC().Truncate(24 * time.Hour)
	return []EventRecord{
		{Event: model.Event{ID: 1, Name: "Intro to Databases", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(11 * time.Hour)}, Code: "DB-2024"},
		{Event: model.Event{ID: 2, Name: "Computer Networks", StartTime: day.Add(13 * time.Hour), EndTime: day.Add(15 * time.Hour)}, Code: "NET-42"},
		{Event: model.Event{ID: 3, Name: "Operating Systems Lab", StartTime: day.Add(16 * time.Hour), EndTime: day.Add(18 * time.Hour)}, Code: "OS:LAB:7"},
	}
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func checkPassword(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidLogin
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
