package learned

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps rules in a JSON object on disk. The whole file is
// rewritten through a temp file and rename on every Record.
type FileStore struct {
	path  string
	mu    sync.RWMutex
	rules map[string]string
}

// OpenFile loads the rules at path. A missing file is an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, rules: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read learned rules: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.rules); err != nil {
		return nil, fmt.Errorf("decode learned rules %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Lookup(_ context.Context, description string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.rules[description]
	return cat, ok, nil
}

func (s *FileStore) Record(ctx context.Context, description, category string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.rules[description]
	s.rules[description] = category
	if err := s.flush(); err != nil {
		if had {
			s.rules[description] = prev
		} else {
			delete(s.rules, description)
		}
		return err
	}
	return nil
}

func (s *FileStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.rules))
	for k, v := range s.rules {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// flush must be called with mu held.
func (s *FileStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create learned rules directory: %w", err)
	}

	// map keys are written sorted
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode learned rules: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".learned-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write learned rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace learned rules: %w", err)
	}
	return nil
}
