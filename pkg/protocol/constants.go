package protocol

// Paths and naming used throughout kanbansync.
const (
	// StateDir is the sidecar directory created next to the tasks file.
	StateDir = ".kanbansync"

	// StateFile is the JSON baseline sidecar inside StateDir.
	StateFile = "state.json"

	// StateDBFile is the SQLite baseline sidecar inside StateDir.
	StateDBFile = "state.db"

	// ConflictsDir holds conflict artifacts inside StateDir.
	ConflictsDir = "conflicts"

	// QuarantineDir receives unreadable sidecar files inside StateDir.
	QuarantineDir = "quarantine"

	// ConflictSuffix is the file suffix of a conflict artifact.
	ConflictSuffix = ".reconcile.md"

	// DefaultTasksFile is used when the config does not name one.
	DefaultTasksFile = "./TASKS.md"

	// DefaultDetailDir is where generated detail documents are placed,
	// relative to the tasks file.
	DefaultDetailDir = "tasks"

	// ExternalIDPrefix prefixes the issue number in Task.ExternalID.
	ExternalIDPrefix = "github:issue:"

	// TaskIDPrefix prefixes generated task ids (T-001, T-002, ...).
	TaskIDPrefix = "T-"

	// CLIName is used in remediation hints.
	CLIName = "kanbansync"
)

// Label prefixes of the label codec.
const (
	LabelPriority = "priority:"
	LabelWorkload = "workload:"
	LabelTag      = "tag:"
)

// DateLayout is the layout of every date stored on the board.
const DateLayout = "2006-01-02"
