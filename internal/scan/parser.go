// Package scan decodes QR payloads of the form "<eventId>:<code>".
package scan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is matched by every ParseError.
var ErrMalformed = errors.New("malformed scan payload")

// Command is a decoded check-in request.
type Command struct {
	EventID int
	Code    string
}

// ParseError reports why a payload was rejected. Raw is the input as received.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed scan payload %q: %s", e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Parse splits raw on the first ':'. The id must be unsigned decimal; the
// code is the non-empty remainder and may itself contain ':'.
func Parse(raw string) (Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Command{}, &ParseError{Raw: raw, Reason: "empty payload"}
	}

	idPart, code, found := strings.Cut(trimmed, ":")
	if !found {
		return Command{}, &ParseError{Raw: raw, Reason: "missing ':' separator"}
	}
	if idPart == "" {
		return Command{}, &ParseError{Raw: raw, Reason: "missing event id"}
	}
	// ParseUint rejects signs; bitSize 63 keeps the value inside int on 64-bit targets.
	id, err := strconv.ParseUint(idPart, 10, strconv.IntSize-1)
	if err != nil {
		return Command{}, &ParseError{Raw: raw, Reason: "event id is not a non-negative integer"}
	}
	if code == "" {
		return Command{}, &ParseError{Raw: raw, Reason: "empty code"}
	}

	return Command{EventID: int(id), Code: code}, nil
}
