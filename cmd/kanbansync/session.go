package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"kanbansync/pkg/baseline"
	"kanbansync/pkg/board"
	"kanbansync/pkg/config"
	"kanbansync/pkg/conflict"
	"kanbansync/pkg/protocol"
	"kanbansync/pkg/reconcile"
	"kanbansync/pkg/tracker"
)

// session is the wiring of one CLI invocation.
type session struct {
	cfg       *config.Config
	tasksPath string
	stateDir  string
	runID     string
	logger    *slog.Logger
	engine    *reconcile.Engine
	closers   []func() error
}

// openSession loads the config and wires the engine. Logs go to logw.
func openSession(ctx context.Context, g *globalFlags, logw io.Writer) (*session, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	runID := uuid.NewString()
	logger := newLogger(cfg.Logging, logw).With("run_id", runID)

	tasksPath, err := cfg.TasksPath(g.tasksFile)
	if err != nil {
		return nil, fmt.Errorf("resolve tasks file: %w", err)
	}
	tax, err := cfg.Taxonomy()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		tasksPath: tasksPath,
		stateDir:  filepath.Join(filepath.Dir(tasksPath), protocol.StateDir),
		runID:     runID,
		logger:    logger,
	}

	baselines, err := s.openBaselines(ctx)
	if err != nil {
		return nil, err
	}

	runner := g.runner
	if runner == nil {
		runner = &tracker.ExecRunner{}
	}
	deps := reconcile.Deps{
		Local:     board.NewStore(tasksPath, board.NewParser(cfg.AllowedStatuses)),
		Remote:    tracker.NewClient(runner, cfg.Owner, cfg.Repo, logger),
		Baselines: baselines,
		Conflicts: conflict.NewDir(s.stateDir, runID),
		Logger:    logger,
	}
	if cfg.Board.StatusEnabled() || cfg.Board.DatesEnabled() {
		deps.Board = tracker.NewProject(runner, cfg.Owner, cfg.Repo, tracker.ProjectFields{
			ProjectID:        cfg.Board.ProjectID,
			StatusFieldID:    cfg.Board.StatusFieldID,
			StartFieldID:     cfg.Board.StartDateFieldID,
			DueFieldID:       cfg.Board.DueDateFieldID,
			CompletedFieldID: cfg.Board.CompletedDateFieldID,
		}, logger)
	}

	s.engine, err = reconcile.New(deps, reconcile.Options{
		Taxonomy:                 tax,
		BoardStatus:              cfg.Board.StatusEnabled(),
		BoardDates:               cfg.Board.DatesEnabled(),
		CreateMissingDetailFiles: cfg.Bootstrap.CreateMissingDetailFiles,
		RequireConfirm:           cfg.Bootstrap.RequireConfirmFlag,
		SourceName:               filepath.Base(tasksPath),
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug("session opened",
		"tasks_file", tasksPath, "repo", cfg.Owner+"/"+cfg.Repo,
		"backend", cfg.Baseline.Backend, "statuses", tax.String())
	return s, nil
}

// openBaselines opens the configured baseline backend.
func (s *session) openBaselines(ctx context.Context) (baseline.Store, error) {
	switch s.cfg.Baseline.Backend {
	case config.BackendSQLite:
		db, err := openStateDB(s.stateDir)
		if err != nil {
			return nil, err
		}
		store, err := baseline.NewSQLiteStore(ctx, db, s.runID, s.logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		return store, nil
	default:
		return baseline.NewJSONStore(s.stateDir,
			baseline.WithRunID(s.runID),
			baseline.WithLogger(s.logger),
		), nil
	}
}

// Close releases the session's resources.
func (s *session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// withSession opens a session for cmd, runs fn and closes the session.
func withSession(ctx context.Context, g *globalFlags, logw io.Writer, fn func(*session) error) error {
	s, err := openSession(ctx, g, logw)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}
