package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kanbansync/pkg/fileutil"
	"kanbansync/pkg/protocol"
)

type sidecar struct {
	Version     int    `json:"version"`
	GeneratedAt string `json:"generated_at"`
	RunID       string `json:"run_id,omitempty"`
	Entries     Map    `json:"entries"`
}

// JSONStore keeps the baseline map in <stateDir>/state.json.
type JSONStore struct {
	stateDir string
	runID    string
	now      func() time.Time
	logger   *slog.Logger
}

// JSONOption configures a JSONStore.
type JSONOption func(*JSONStore)

// WithRunID stamps saved sidecars with the run that wrote them.
func WithRunID(id string) JSONOption { return func(s *JSONStore) { s.runID = id } }

// WithClock overrides the clock used for generation stamps.
func WithClock(now func() time.Time) JSONOption { return func(s *JSONStore) { s.now = now } }

// WithLogger sets the logger used to report quarantined sidecars.
func WithLogger(l *slog.Logger) JSONOption { return func(s *JSONStore) { s.logger = l } }

// NewJSONStore returns a JSONStore rooted at stateDir.
func NewJSONStore(stateDir string, opts ...JSONOption) *JSONStore {
	s := &JSONStore{
		stateDir: stateDir,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the sidecar file path.
func (s *JSONStore) Path() string { return filepath.Join(s.stateDir, protocol.StateFile) }

// Load reads the sidecar. A missing file yields an empty map. A corrupt file
// is moved to the quarantine directory and also yields an empty map.
func (s *JSONStore) Load(ctx context.Context) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path()
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the state directory
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("baseline sidecar unreadable, treating as empty", "path", path, "error", err)
		}
		return Map{}, nil
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		s.quarantine(path, err)
		return Map{}, nil
	}
	if sc.Entries == nil {
		return Map{}, nil
	}
	for key, e := range sc.Entries {
		if e.ExternalID == "" {
			e.ExternalID = key
			sc.Entries[key] = e
		}
	}
	return sc.Entries, nil
}

func (s *JSONStore) quarantine(path string, cause error) {
	dest, err := fileutil.Quarantine(s.stateDir, path, s.now())
	if err != nil {
		s.logger.Warn("baseline sidecar corrupt and could not be quarantined", "path", path, "error", err)
		return
	}
	s.logger.Warn("baseline sidecar corrupt, quarantined", "path", path, "quarantine", dest, "error", cause)
}

// Save rewrites the sidecar atomically with a fresh generation stamp.
func (s *JSONStore) Save(ctx context.Context, m Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m == nil {
		m = Map{}
	}
	sc := sidecar{
		Version:     protocol.BaselineSchemaVersion,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
		RunID:       s.runID,
		Entries:     m,
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	if err := fileutil.AtomicWrite(s.Path(), append(data, '\n'), 0o644); err != nil { //nolint:gosec // sidecar lives next to the tasks file
		return fmt.Errorf("save baseline: %w", err)
	}
	return nil
}

var _ Store = (*JSONStore)(nil)
