// Package session persists the single session credential ("cookie") the API
// client attaches to every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultNamespace is the fixed key the credential is stored under.
const DefaultNamespace = "cookies"

// ErrStorage is matched by every StorageError.
var ErrStorage = errors.New("session storage unavailable")

// Store holds at most one credential. Implementations are safe for concurrent
// use; the last completed Set wins.
type Store interface {
	Get(ctx context.Context) (cred string, ok bool, err error)
	Set(ctx context.Context, cred string) error
	Clear(ctx context.Context) error
}

// StorageError wraps a backend failure. It is never retried by the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// present reports whether a stored value counts as a credential.
func present(cred string) bool {
	return strings.TrimSpace(cred) != ""
}
