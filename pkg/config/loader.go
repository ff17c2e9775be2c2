package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = "kanbansync.yaml"

// Load reads the config at path using the hierarchy defaults < file < env,
// then validates it. Unlike optional service configs, the file is required:
// owner, repo and the status map have no sensible defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	cfg := Defaults()
	if err := loadFile(&cfg, abs); err != nil {
		return nil, err
	}
	cfg.Dir = filepath.Dir(abs)

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// loadFile decodes the file over cfg; the format follows the extension.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config not found: %s. Create %s (yaml, toml or json): %w", path, DefaultConfigFile, err)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Owner, "KANBANSYNC_OWNER")
	setString(&cfg.Repo, "KANBANSYNC_REPO")
	setString(&cfg.TasksFile, "KANBANSYNC_TASKS_FILE")
	setString(&cfg.Baseline.Backend, "KANBANSYNC_BASELINE_BACKEND")
	setString(&cfg.Logging.Level, "KANBANSYNC_LOG_LEVEL")
	setString(&cfg.Logging.Format, "KANBANSYNC_LOG_FORMAT")
	setString(&cfg.Board.ProjectID, "KANBANSYNC_PROJECT_ID")
}

// validate checks required fields and the status invariants. Every problem
// is collected into one ConfigError.
func validate(cfg *Config) error {
	var problems []string
	if cfg.Owner == "" || cfg.Repo == "" {
		problems = append(problems, "owner and repo are required")
	}
	if cfg.TasksFile == "" {
		cfg.TasksFile = protocol.DefaultTasksFile
	}
	if cfg.StatusMap == nil {
		problems = append(problems, "status_map is required")
	}
	switch cfg.Baseline.Backend {
	case "":
		cfg.Baseline.Backend = BackendJSON
	case BackendJSON, BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("baseline.backend must be %q or %q, got %q",
			BackendJSON, BackendSQLite, cfg.Baseline.Backend))
	}
	if cfg.StatusMap != nil {
		if err := status.Validate(cfg.StatusSpec()); err != nil {
			var cfgErr *protocol.ConfigError
			if errors.As(err, &cfgErr) {
				problems = append(problems, cfgErr.Problems...)
			} else {
				return err
			}
		}
	}
	if len(problems) > 0 {
		return &protocol.ConfigError{Problems: problems}
	}
	return nil
}

// TasksPath resolves the tasks file. override, when set, is taken relative
// to the working directory; the configured path is relative to the config file.
func (c *Config) TasksPath(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	if filepath.IsAbs(c.TasksFile) {
		return c.TasksFile, nil
	}
	return filepath.Join(c.Dir, c.TasksFile), nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
