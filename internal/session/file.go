package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type fileDocument struct {
	Cookie string `json:"cookie"`
}

// FileStore keeps the credential in a small JSON document on disk. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath returns ~/.sidewayqr/<namespace>.json.
func DefaultFilePath(namespace string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return filepath.Join(home, ".sidewayqr", namespace+".json"), nil
}

func (s *FileStore) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, storageErr("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, storageErr("get", fmt.Errorf("read session file: %w", err))
	}
	if len(b) == 0 {
		return "", false, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", false, storageErr("get", fmt.Errorf("decode session file: %w", err))
	}
	return doc.Cookie, present(doc.Cookie), nil
}

func (s *FileStore) Set(ctx context.Context, cred string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("set", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return storageErr("set", s.persistLocked(fileDocument{Cookie: cred}))
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storageErr("clear", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return storageErr("clear", fmt.Errorf("remove session file: %w", err))
	}
	return nil
}

func (s *FileStore) persistLocked(doc fileDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
