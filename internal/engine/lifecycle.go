package engine

import (
	"log/slog"
	"os"
	"sync"
)

// Scope owns every file created during one acquisition/delivery cycle and
// guarantees their removal on every exit path. It only ever deletes files
// it was told about; nothing outside the scope is touched.
type Scope struct {
	mu     sync.Mutex
	owned  map[string]bool
	logger *slog.Logger
}

// NewScope creates an empty lifecycle scope.
func NewScope(logger *slog.Logger) *Scope {
	return &Scope{
		owned:  make(map[string]bool),
		logger: logger,
	}
}

// Track registers a file the scope now owns.
func (s *Scope) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned[path] = true
}

// Disown removes a path from the scope without deleting it.
func (s *Scope) Disown(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owned, path)
}

// Release deletes an owned file immediately and disowns it. Used by the
// delivery stage once the artifact has been consumed (or refused).
func (s *Scope) Release(path string) {
	s.mu.Lock()
	owned := s.owned[path]
	delete(s.owned, path)
	s.mu.Unlock()

	if owned {
		s.remove(path)
	}
}

// Close deletes every file the scope still owns. Idempotent; meant to be
// deferred around the whole acquire-and-deliver sequence.
func (s *Scope) Close() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.owned))
	for p := range s.owned {
		paths = append(paths, p)
	}
	s.owned = make(map[string]bool)
	s.mu.Unlock()

	for _, p := range paths {
		s.remove(p)
	}
}

func (s *Scope) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove scoped file", "path", path, "error", err)
	}
}
