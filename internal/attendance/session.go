// Package attendance owns the per-user check-in session: login, the attended
// events list, QR submissions and the refreshes they trigger.
package attendance

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"sidewayqr/internal/api"
	"sidewayqr/internal/model"
	"sidewayqr/internal/notify"
	"sidewayqr/internal/scan"
)

var (
	// ErrSuperseded is returned by a refresh whose response lost to a later refresh.
	ErrSuperseded = errors.New("refresh superseded")
	// ErrAbandoned is returned when the caller gave up on a call before it resolved.
	ErrAbandoned = errors.New("call abandoned")
	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("session closed")
)

// Client is the backend surface the session drives; *api.Client implements it.
type Client interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context) error
	FetchEvents(ctx context.Context) ([]model.Event, error)
	SubmitAttendance(ctx context.Context, cmd scan.Command) (api.Outcome, error)
}

// Session is safe for concurrent use. The lock is never held across I/O;
// overlapping calls are reconciled by sequence numbers.
type Session struct {
	client Client
	bus    notify.Bus

	mu         sync.Mutex
	state      State
	refreshSeq uint64
	scanSeq    uint64
	// epoch changes on Logout; calls issued under an older epoch are inert.
	epoch uint64
	closed     bool
}

// New creates a session with an empty, not yet loaded list. bus may be nil.
func New(client Client, bus notify.Bus) *Session {
	return &Session{client: client, bus: bus}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Login authenticates and, on success, loads the list. The refresh is issued
// only after the login call has returned.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if s.isClosed() {
		return ErrClosed
	}

	if _, err := s.client.Login(ctx, email, password); err != nil {
		if s.mutate(func(st *State) {
			st.NeedsLogin = true
			st.LastError = err
		}) {
			s.publish(notify.StateChanged, 0)
		}
		return err
	}

	if !s.mutate(func(st *State) {
		st.NeedsLogin = false
		st.LastError = nil
	}) {
		return ErrClosed
	}
	s.publish(notify.StateChanged, 0)

	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

// Refresh reloads the list. Only the latest issued refresh may change state.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.refreshSeq++
	seq := s.refreshSeq
	prev := s.state.List
	if prev == ListLoading {
		prev = ListIdle
		if s.state.Loaded {
			prev = ListLoaded
		}
	}
	s.state.IsLoading = true
	s.state.List = ListLoading
	s.mu.Unlock()
	s.publish(notify.StateChanged, 0)

	events, err := s.client.FetchEvents(ctx)

	s.mu.Lock()
	if s.closed || seq != s.refreshSeq {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.state.IsLoading = false
	if ctx.Err() != nil {
		s.state.List = prev
		s.mu.Unlock()
		s.publish(notify.StateChanged, 0)
		return ErrAbandoned
	}

	needsLogin := false
	switch {
	case err == nil:
		s.state.Events = append([]model.Event(nil), events...)
		s.state.Loaded = true
		s.state.List = ListLoaded
		s.state.NeedsLogin = false
		s.state.LastError = nil
	case errors.Is(err, api.ErrUnauthenticated):
		s.state.Events = nil
		s.state.Loaded = false
		s.state.List = ListIdle
		s.state.NeedsLogin = true
		s.state.LastOutcome = api.OutcomeUnauthenticated
		s.state.LastError = err
		needsLogin = true
	default:
		// Stale-but-available: keep whatever list we already had.
		s.state.List = ListError
		if errors.Is(err, api.ErrServer) {
			s.state.LastOutcome = api.OutcomeServerError
		}
		s.state.LastError = err
	}
	s.mu.Unlock()

	if needsLogin {
		s.publish(notify.NeedsLogin, 0)
	}
	s.publish(notify.StateChanged, 0)
	return err
}

// SubmitScan decodes raw and submits it. Malformed payloads never reach the
// network. A Success outcome triggers exactly one refresh after the
// submission has resolved, even when a newer scan was issued meanwhile.
func (s *Session) SubmitScan(ctx context.Context, raw string) (api.Outcome, error) {
	cmd, parseErr := scan.Parse(raw)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.OutcomeNone, ErrClosed
	}
	s.scanSeq++
	seq := s.scanSeq
	epoch := s.epoch
	if parseErr != nil {
		s.state.Scan = ScanFailed
		s.state.LastError = parseErr
		s.mu.Unlock()
		s.publish(notify.StateChanged, 0)
		return api.OutcomeNone, parseErr
	}
	s.state.Scan = ScanSubmitting
	s.mu.Unlock()
	s.publish(notify.StateChanged, 0)

	outcome, err := s.client.SubmitAttendance(ctx, cmd)

	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		return api.OutcomeNone, ErrAbandoned
	}
	// A newer scan owns Scan and LastOutcome; this one still reports its
	// own outcome and triggers its own refresh.
	latest := seq == s.scanSeq
	if ctx.Err() != nil {
		if latest {
			s.state.Scan = ScanIdle
		}
		s.mu.Unlock()
		s.publish(notify.StateChanged, 0)
		return api.OutcomeNone, ErrAbandoned
	}
	if err != nil {
		if latest {
			s.state.Scan = ScanFailed
			s.state.LastError = err
		}
		s.mu.Unlock()
		s.publish(notify.StateChanged, 0)
		return api.OutcomeNone, err
	}
	if latest {
		s.state.Scan = ScanSubmitted
		s.state.LastOutcome = outcome
		s.state.LastError = nil
	}
	if outcome == api.OutcomeUnauthenticated {
		s.state.NeedsLogin = true
	}
	s.mu.Unlock()
	s.publish(notify.StateChanged, 0)

	switch outcome {
	case api.OutcomeSuccess:
		s.publish(notify.Attended, cmd.EventID)
		if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			log.Printf("refresh after attendance for event %d failed: %v", cmd.EventID, err)
		}
	case api.OutcomeUnauthenticated:
		s.publish(notify.NeedsLogin, 0)
	}
	return outcome, nil
}

// HandleScan takes a scanner result. Cancellations, missing permission and
// decoder errors are no-ops.
func (s *Session) HandleScan(ctx context.Context, res scan.Result) (api.Outcome, error) {
	payload, ok := res.Payload()
	if !ok {
		return api.OutcomeNone, nil
	}
	return s.SubmitScan(ctx, payload)
}

// Search filters the current list by a case-insensitive name match.
func (s *Session) Search(query string) []model.Event {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.state.Events))
	for _, evt := range s.state.Events {
		if q == "" || strings.Contains(strings.ToLower(evt.Name), q) {
			out = append(out, evt)
		}
	}
	return out
}

// Logout clears the stored credential and resets local state. In-flight
// calls issued before Logout are discarded when they return.
func (s *Session) Logout(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.client.Logout(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.refreshSeq++
	s.scanSeq++
	s.epoch++
	s.state = State{NeedsLogin: true}
	s.mu.Unlock()

	s.publish(notify.NeedsLogin, 0)
	s.publish(notify.StateChanged, 0)
	return nil
}

// Close tears the session down. Calls still in flight become inert.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// mutate applies fn under the lock unless the session is closed.
func (s *Session) mutate(fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn(&s.state)
	return true
}

func (s *Session) publish(kind notify.Kind, eventID int) {
	if s.bus == nil || s.isClosed() {
		return
	}
	if err := s.bus.Publish(context.Background(), notify.Notification{Kind: kind, EventID: eventID}); err != nil {
		log.Printf("notification %s dropped: %v", kind, err)
	}
}
