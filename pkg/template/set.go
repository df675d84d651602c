package template

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"
)

// Set resolves templates by slash-separated name from a stack of file
// systems, parsing each template once. Earlier layers shadow later ones, so
// a user directory placed first overrides embedded defaults.
type Set struct {
	mu        sync.RWMutex
	layers    []fs.FS
	templates map[string]*Template
}

// NewSet creates a set over the given layers.
func NewSet(layers ...fs.FS) *Set {
	return &Set{
		layers:    layers,
		templates: make(map[string]*Template),
	}
}

// Add parses src and registers it under name, replacing any file of the
// same name.
func (s *Set) Add(name, src string) error {
	t, err := Parse(path.Clean(name), src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Name] = t
	return nil
}

// Lookup returns the parsed template for name. A template found in no
// layer yields an error matching fs.ErrNotExist.
func (s *Set) Lookup(name string) (*Template, error) {
	name = path.Clean(name)

	s.mu.RLock()
	t, ok := s.templates[name]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	for _, layer := range s.layers {
		src, err := fs.ReadFile(layer, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("template: read %s: %w", name, err)
		}
		t, err := Parse(name, string(src))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.templates[name] = t
		s.mu.Unlock()
		return t, nil
	}
	return nil, fmt.Errorf("template: %s: %w", name, fs.ErrNotExist)
}

// Render renders the named template, resolving includes within the set.
func (s *Set) Render(name string, data Data) (string, error) {
	t, err := s.Lookup(name)
	if err != nil {
		return "", err
	}
	return t.RenderWith(data, s.Lookup)
}

// Names lists every template reachable through the set, sorted.
func (s *Set) Names() ([]string, error) {
	seen := make(map[string]bool)
	s.mu.RLock()
	for name := range s.templates {
		seen[name] = true
	}
	s.mu.RUnlock()

	for _, layer := range s.layers {
		err := fs.WalkDir(layer, ".", func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() {
				seen[p] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("template: list: %w", err)
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
