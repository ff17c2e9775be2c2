// Package config loads and validates the kanbansync configuration.
package config

import (
	"kanbansync/pkg/protocol"
	"kanbansync/pkg/status"
)

// Config is the sync configuration. JSON keys follow the camelCase layout of
// legacy JSON configs; YAML and TOML use snake_case.
type Config struct {
	Owner              string            `yaml:"owner" toml:"owner" json:"owner"`
	Repo               string            `yaml:"repo" toml:"repo" json:"repo"`
	TasksFile          string            `yaml:"tasks_file" toml:"tasks_file" json:"tasksFile"`
	AllowedStatuses    []string          `yaml:"allowed_statuses" toml:"allowed_statuses" json:"allowedStatuses"`
	CompletionStatuses []string          `yaml:"completion_statuses" toml:"completion_statuses" json:"completionStatuses"`
	StatusMap          map[string]string `yaml:"status_map" toml:"status_map" json:"statusMap"`
	Board              Board             `yaml:"board" toml:"board" json:"board"`
	Bootstrap          Bootstrap         `yaml:"bootstrap" toml:"bootstrap" json:"bootstrap"`
	Baseline           Baseline          `yaml:"baseline" toml:"baseline" json:"baseline"`
	Logging            Logging           `yaml:"logging" toml:"logging" json:"logging"`

	// Dir is the directory of the loaded config file; relative paths resolve against it.
	Dir string `yaml:"-" toml:"-" json:"-"`
}

// Board identifies the optional remote kanban board (GitHub Projects v2).
type Board struct {
	ProjectID            string `yaml:"project_id" toml:"project_id" json:"projectId"`
	StatusFieldID        string `yaml:"status_field_id" toml:"status_field_id" json:"statusFieldId"`
	StartDateFieldID     string `yaml:"start_date_field_id" toml:"start_date_field_id" json:"startDateFieldId"`
	DueDateFieldID       string `yaml:"due_date_field_id" toml:"due_date_field_id" json:"dueDateFieldId"`
	CompletedDateFieldID string `yaml:"completed_date_field_id" toml:"completed_date_field_id" json:"completedDateFieldId"`
}

// StatusEnabled reports whether a board and its status field are configured.
func (b Board) StatusEnabled() bool { return b.ProjectID != "" && b.StatusFieldID != "" }

// DatesEnabled reports whether any board date field is configured.
func (b Board) DatesEnabled() bool {
	return b.ProjectID != "" && (b.StartDateFieldID != "" || b.DueDateFieldID != "" || b.CompletedDateFieldID != "")
}

// DateFieldID returns the configured field id for a board date field.
func (b Board) DateFieldID(f protocol.DateField) string {
	switch f {
	case protocol.DateStart:
		return b.StartDateFieldID
	case protocol.DateDue:
		return b.DueDateFieldID
	case protocol.DateCompleted:
		return b.CompletedDateFieldID
	default:
		return ""
	}
}

// Bootstrap holds the bootstrap policy flags.
type Bootstrap struct {
	CreateMissingDetailFiles       bool   `yaml:"create_missing_detail_files" toml:"create_missing_detail_files" json:"createMissingDetailFiles"`
	DefaultStatusForImportedIssues string `yaml:"default_status_for_imported_issues" toml:"default_status_for_imported_issues" json:"defaultStatusForImportedIssues"`
	RequireConfirmFlag             bool   `yaml:"require_confirm_flag" toml:"require_confirm_flag" json:"requireConfirmFlag"`
}

// Baseline backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Baseline selects the baseline sidecar backend.
type Baseline struct {
	Backend string `yaml:"backend" toml:"backend" json:"backend"`
}

// Logging configures the run logger.
type Logging struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

// Defaults returns a Config with every optional field at its default.
func Defaults() Config {
	return Config{
		TasksFile: protocol.DefaultTasksFile,
		Baseline:  Baseline{Backend: BackendJSON},
		Logging:   Logging{Level: "info", Format: "text"},
	}
}

// StatusSpec returns the raw status configuration for the status package.
func (c *Config) StatusSpec() status.Spec {
	return status.Spec{
		Allowed:       c.AllowedStatuses,
		Completion:    c.CompletionStatuses,
		StatusMap:     c.StatusMap,
		DefaultImport: c.Bootstrap.DefaultStatusForImportedIssues,
	}
}

// Taxonomy validates and returns the status taxonomy of c.
func (c *Config) Taxonomy() (*status.Taxonomy, error) {
	return status.New(c.StatusSpec())
}

// Normalize rewrites the status lists with normalized, deduplicated values,
// applying defaults where unset.
func (c *Config) Normalize() {
	spec := c.StatusSpec()
	c.AllowedStatuses = spec.AllowedStatuses()
	c.CompletionStatuses = spec.CompletionStatuses()
	c.StatusMap = spec.NormalizedMap()
	c.Bootstrap.DefaultStatusForImportedIssues = status.Normalize(c.Bootstrap.DefaultStatusForImportedIssues)
}
