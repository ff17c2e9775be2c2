package board

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kanbansync/pkg/fileutil"
	"kanbansync/pkg/protocol"
)

// Store is the file-backed local document store.
type Store struct {
	path   string
	parser *Parser
}

// NewStore returns a Store for the tasks file at path. A nil parser uses the
// default status workflow.
func NewStore(path string, parser *Parser) *Store {
	if parser == nil {
		parser = NewParser(nil)
	}
	return &Store{path: path, parser: parser}
}

// Path returns the tasks file path.
func (s *Store) Path() string { return s.path }

// Load reads and parses the tasks file. A missing file is an error.
func (s *Store) Load() (*protocol.Board, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &protocol.NotFoundError{Kind: "tasks file", ID: s.path}
		}
		return nil, fmt.Errorf("read tasks file: %w", err)
	}
	return s.parser.Parse(string(data)), nil
}

// Save rewrites the whole tasks file atomically.
func (s *Store) Save(b *protocol.Board) error {
	if err := fileutil.AtomicWrite(s.path, []byte(Serialize(b)), 0o644); err != nil { //nolint:gosec // tracked in the repository
		return fmt.Errorf("save tasks file: %w", err)
	}
	return nil
}

// DetailPath resolves a task's detail document against the tasks file
// directory. It returns "" when the task names none.
func (s *Store) DetailPath(t *protocol.Task) string {
	if t.Detail == "" {
		return ""
	}
	if filepath.IsAbs(t.Detail) {
		return t.Detail
	}
	return filepath.Join(filepath.Dir(s.path), filepath.FromSlash(t.Detail))
}

// ReadDetail returns the task's detail document, or "" when it has no detail
// path or the file does not exist.
func (s *Store) ReadDetail(t *protocol.Task) (string, error) {
	path := s.DetailPath(t)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the tasks file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read detail for %s: %w", t.ID, err)
	}
	return string(data), nil
}

// WriteDetail replaces the task's detail document.
func (s *Store) WriteDetail(t *protocol.Task, content string) error {
	path := s.DetailPath(t)
	if path == "" {
		return fmt.Errorf("write detail for %s: task has no detail path", t.ID)
	}
	if err := fileutil.AtomicWrite(path, []byte(content), 0o644); err != nil { //nolint:gosec // tracked in the repository
		return fmt.Errorf("write detail for %s: %w", t.ID, err)
	}
	return nil
}

// EnsureDetailFile creates a stub detail document when the task names a
// detail path that does not exist yet. Existing files are never touched.
func (s *Store) EnsureDetailFile(t *protocol.Task) (bool, error) {
	path := s.DetailPath(t)
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat detail for %s: %w", t.ID, err)
	}
	if err := fileutil.AtomicWrite(path, []byte(DetailStub(t.ID)), 0o644); err != nil { //nolint:gosec // tracked in the repository
		return false, fmt.Errorf("create detail for %s: %w", t.ID, err)
	}
	return true, nil
}

// DetailStub is the initial content of a new detail document.
func DetailStub(id string) string {
	return "# " + id + "\n\n  - steps:\n      - [ ] Define scope\n"
}

// DefaultDetailPath is the detail path assigned to imported tasks.
func DefaultDetailPath(id string) string {
	return "./" + protocol.DefaultDetailDir + "/" + id + ".md"
}
