package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is matched by APIError values of KindUnauthenticated.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrServer is matched by APIError values of KindServerError.
	ErrServer = errors.New("server error")
	// ErrInvalidCredentials is matched by AuthError values of AuthInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthServer is matched by AuthError values of AuthServerError.
	ErrAuthServer = errors.New("login server error")
)

type ErrorKind int

const (
	KindUnauthenticated ErrorKind = iota + 1
	KindServerError
)

// APIError is returned by FetchEvents and SubmitAttendance. StatusCode is 0
// when no response was received, or when the call never reached the network.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	msg := "server error"
	if e.Kind == KindUnauthenticated {
		msg = "unauthenticated"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	sentinel := ErrServer
	if e.Kind == KindUnauthenticated {
		sentinel = ErrUnauthenticated
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

type AuthErrorKind int

const (
	AuthInvalidCredentials AuthErrorKind = iota + 1
	AuthServerError
)

// AuthError is returned by Login. No credential is persisted when it occurs.
type AuthError struct {
	Kind       AuthErrorKind
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	msg := "login failed"
	if e.Kind == AuthInvalidCredentials {
		msg = "invalid credentials"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() []error {
	sentinel := ErrAuthServer
	if e.Kind == AuthInvalidCredentials {
		sentinel = ErrInvalidCredentials
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}
