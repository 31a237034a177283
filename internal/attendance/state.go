package attendance

import (
	"sidewayqr/internal/api"
	"sidewayqr/internal/model"
)

// ListStatus is the event list's lifecycle.
type ListStatus int

const (
	ListIdle ListStatus = iota
	ListLoading
	ListLoaded
	ListError
)

func (s ListStatus) String() string {
	switch s {
	case ListIdle:
		return "idle"
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListError:
		return "error"
	default:
		return "unknown"
	}
}

// ScanStatus tracks the most recent scan, independently of the list.
type ScanStatus int

const (
	ScanIdle ScanStatus = iota
	ScanSubmitting
	ScanSubmitted
	ScanFailed
)

func (s ScanStatus) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanSubmitting:
		return "submitting"
	case ScanSubmitted:
		return "submitted"
	case ScanFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the session, safe to hand to renderers.
type State struct {
	Events    []model.Event
	Loaded    bool
	IsLoading bool
	List      ListStatus
	Scan      ScanStatus
	// LastOutcome is OutcomeNone until something has been recorded.
	LastOutcome api.Outcome
	LastError   error
	NeedsLogin  bool
}

// Empty reports a loaded, settled list with nothing in it.
func (s State) Empty() bool {
	return s.Loaded && !s.IsLoading && len(s.Events) == 0
}

func (s State) clone() State {
	out := s
	if s.Events != nil {
		out.Events = append([]model.Event(nil), s.Events...)
	}
	return out
}
