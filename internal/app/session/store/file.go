package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Key is the fixed name the access token is stored under.
const Key = "access_token"

// File persists the token as a single file named Key inside dir.
type File struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

func NewFile(fs afero.Fs, dir string) *File {
	if fs == nil {
		panic("store.File: fs is nil")
	}
	if dir == "" {
		panic("store.File: dir is empty")
	}

	return &File{fs: fs, path: filepath.Join(dir, Key)}
}

// Load returns "" when nothing is stored.
func (s *File) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("store.File.Load: %w", err)
	}

	return strings.TrimSpace(string(raw)), nil
}

func (s *File) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("store.File.Save: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("store.File.Save: %w", err)
	}

	return nil
}

func (s *File) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store.File.Clear: %w", err)
	}

	return nil
}
