package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"FloatOverlay/internal/config"

	"gopkg.in/yaml.v3"
)

// DefaultPath returns the full path to state.yaml in the config directory.
func DefaultPath() (string, error) {
	d, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "state.yaml"), nil
}

// File keeps every key in one yaml document.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a File store writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) read() (map[string]Position, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Position{}, nil
		}
		return nil, err
	}
	all := map[string]Position{}
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("state decode %s: %w", f.path, err)
	}
	return all, nil
}

func (f *File) Load(_ context.Context, key string) (Position, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.read()
	if err != nil {
		return Position{}, false, err
	}
	p, ok := all[key]
	return p, ok, nil
}

// Save rewrites the document through a temp file so a crash mid-write
// leaves the previous state intact.
func (f *File) Save(_ context.Context, key string, p Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.read()
	if err != nil {
		return err
	}
	all[key] = p
	data, err := yaml.Marshal(all)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) Close() error { return nil }
