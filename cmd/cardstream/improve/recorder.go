package improvecmder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// recorder tees the raw stream into a file. The file is opened after the
// session exists so auto-named recordings can carry the session ID; until
// then writes are dropped.
type recorder struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func (r *recorder) open(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.f = f
	r.path = path
	return nil
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return len(p), nil
	}
	return r.f.Write(p)
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
