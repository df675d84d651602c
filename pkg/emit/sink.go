package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Sink receives rendered files by slash-separated relative path.
type Sink interface {
	WriteFile(name string, data []byte) error
}

// DirSink writes below Root, creating directories as needed and
// overwriting existing files.
type DirSink struct {
	Root string
}

func (s DirSink) WriteFile(name string, data []byte) error {
	p := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}

// MemSink keeps files in memory.
type MemSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemSink creates an empty in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{files: make(map[string][]byte)}
}

func (s *MemSink) WriteFile(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
	return nil
}

// File returns the contents written under name.
func (s *MemSink) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names lists the written paths, sorted.
func (s *MemSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
