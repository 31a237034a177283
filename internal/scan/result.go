package scan

// ResultKind classifies what the QR scanner collaborator produced.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultUserCanceled
	ResultMissingPermission
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultUserCanceled:
		return "user_canceled"
	case ResultMissingPermission:
		return "missing_permission"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the scanner's report. Content is only meaningful for ResultSuccess,
// and Err only for ResultError.
type Result struct {
	Kind    ResultKind
	Content string
	Err     error
}

// Payload returns the decoded string when the scan succeeded.
func (r Result) Payload() (string, bool) {
	if r.Kind != ResultSuccess {
		return "", false
	}
	return r.Content, true
}
