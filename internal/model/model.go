package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event is an event the caller has attended, as returned by GET /events.
type Event struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startDate"`
	EndTime   time.Time `json:"endDate"`
}

// UnmarshalJSON accepts startDate/endDate as RFC 3339 strings or epoch milliseconds.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        int             `json:"id"`
		Name      string          `json:"name"`
		StartDate json.RawMessage `json:"startDate"`
		EndDate   json.RawMessage `json:"endDate"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	start, err := parseTimestamp(wire.StartDate)
	if err != nil {
		return fmt.Errorf("startDate: %w", err)
	}
	end, err := parseTimestamp(wire.EndDate)
	if err != nil {
		return fmt.Errorf("endDate: %w", err)
	}
	*e = Event{ID: wire.ID, Name: wire.Name, StartTime: start, EndTime: end}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, s)
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}
