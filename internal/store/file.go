package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// File is a Store backed by a single JSON document on disk. Every Apply
// rewrites the document through a temp file and rename, so a crash leaves
// either the old or the new state.
type File struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	data map[string][]byte
}

// OpenFile loads path, creating parent directories as needed. An unreadable
// or corrupt document is treated as empty and logged, never returned as an
// error, so a damaged state file cannot block a session from starting.
func OpenFile(path string, log zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	f := &File{
		path: path,
		log:  log.With().Str("component", "file_store").Str("path", path).Logger(),
		data: make(map[string][]byte),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		f.log.Warn().Err(err).Msg("State file unreadable, starting empty")
		return f, nil
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.data); err != nil {
			f.log.Warn().Err(err).Msg("State file corrupt, starting empty")
			f.data = make(map[string][]byte)
		}
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (f *File) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := listFrom(f.data, prefix)
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Apply(_ context.Context, ops ...Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string][]byte, len(f.data)+len(ops))
	for k, v := range f.data {
		next[k] = v
	}
	applyTo(next, ops)

	if err := f.write(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *File) write(data map[string][]byte) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
