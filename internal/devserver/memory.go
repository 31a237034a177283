package devserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sidewayqr/internal/model"
)

type attendanceKey struct {
	userID  string
	eventID int
}

// MemoryRepository keeps everything in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	events   map[int]EventRecord
	attended map[attendanceKey]time.Time
	now      func() time.Time
}

// NewMemoryRepository creates a repository seeded with the demo account and events.
func NewMemoryRepository() (*MemoryRepository, error) {
	r := &MemoryRepository{
		users:    make(map[string]User),
		events:   make(map[int]EventRecord),
		attended: make(map[attendanceKey]time.Time),
		now:      time.Now,
	}
	if err := r.AddUser(DemoEmail, DemoPassword, bcrypt.MinCost); err != nil {
		return nil, err
	}
	for _, evt := range DemoEvents(r.now()) {
		r.AddEvent(evt)
	}
	return r, nil
}

// AddUser registers an account with a bcrypt hash of password.
func (r *MemoryRepository) AddUser(email, password string, cost int) error {
	hash, err := hashPassword(password, cost)
	if err != nil {
		return err
	}
	u := User{ID: uuid.NewString(), Email: normalizeEmail(email), PasswordHash: hash}
	r.mu.Lock()
	r.users[u.Email] = u
	r.mu.Unlock()
	return nil
}

// AddEvent inserts or replaces an event.
func (r *MemoryRepository) AddEvent(evt EventRecord) {
	r.mu.Lock()
	r.events[evt.ID] = evt
	r.mu.Unlock()
}

func (r *MemoryRepository) Authenticate(ctx context.Context, email, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	u, ok := r.users[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidLogin
	}
	if err := checkPassword(u.PasswordHash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MemoryRepository) AttendedEvents(ctx context.Context, userID string) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.Event{}
	for key := range r.attended {
		if key.userID != userID {
			continue
		}
		if evt, ok := r.events[key.eventID]; ok {
			out = append(out, evt.Event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) Attend(ctx context.Context, userID string, eventID int, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	evt, ok := r.events[eventID]
	if !ok {
		return false, ErrUnknownEvent
	}
	if evt.Code != code {
		return false, ErrWrongCode
	}
	key := attendanceKey{userID: userID, eventID: eventID}
	if _, done := r.attended[key]; done {
		return false, nil
	}
	r.attended[key] = r.now().UTC()
	return true, nil
}
