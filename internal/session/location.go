package session

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Location is the viewer's own address. A uid embedded in its query lets a
// restart resume the same player.
type Location interface {
	Current() (*url.URL, error)
	Replace(u *url.URL) error
}

// FileLocation keeps the address in a file; a missing file means the
// default address.
type FileLocation struct {
	path     string
	fallback string
}

func NewFileLocation(path, fallback string) *FileLocation {
	return &FileLocation{path: path, fallback: fallback}
}

func (l *FileLocation) Current() (*url.URL, error) {
	raw := l.fallback
	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if s := strings.TrimSpace(string(data)); s != "" {
			raw = s
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read session file: %w", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse session address: %w", err)
	}
	return u, nil
}

func (l *FileLocation) Replace(u *url.URL) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(l.path, []byte(u.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

type MemoryLocation struct {
	mu       sync.Mutex
	u        *url.URL
	replaced int
}

func NewMemoryLocation(raw string) (*MemoryLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &MemoryLocation{u: u}, nil
}

func (l *MemoryLocation) Current() (*url.URL, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := *l.u
	return &u, nil
}

func (l *MemoryLocation) Replace(u *url.URL) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *u
	l.u = &cp
	l.replaced++
	return nil
}

// Replaced counts address rewrites.
func (l *MemoryLocation) Replaced() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replaced
}
