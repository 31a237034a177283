package api

import "net/http"

// Outcome classifies an attendance submission. It is derived from the HTTP
// status alone; response bodies are never consulted.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeAlreadyMarked
	OutcomeUnauthenticated
	OutcomeInvalid
	OutcomeServerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyMarked:
		return "already_marked"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// OutcomeForStatus maps a POST /events/{id}/attend status code. ok is false
// for statuses outside the contract.
func OutcomeForStatus(status int) (Outcome, bool) {
	switch {
	case status == http.StatusCreated:
		return OutcomeSuccess, true
	case status == http.StatusOK:
		return OutcomeAlreadyMarked, true
	case status == http.StatusUnauthorized:
		return OutcomeUnauthenticated, true
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return OutcomeInvalid, true
	case status >= 500 && status <= 599:
		return OutcomeServerError, true
	default:
		return OutcomeNone, false
	}
}
