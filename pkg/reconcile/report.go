package reconcile

// TaskRef names a task and, when linked, its issue.
type TaskRef struct {
	TaskID      string `json:"task_id"`
	IssueNumber int    `json:"issue_number,omitempty"`
}

// InvalidLink is a task whose externalId is not a recognized issue reference.
type InvalidLink struct {
	TaskID     string `json:"task_id"`
	ExternalID string `json:"external_id"`
}

// RemoteOnly is a remote issue no task links to.
type RemoteOnly struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	URL    string `json:"url,omitempty"`
}

// StatusChange is a status divergence between a task and its issue.
type StatusChange struct {
	TaskID      string `json:"task_id"`
	IssueNumber int    `json:"issue_number"`
	Local       string `json:"local"`
	Remote      string `json:"remote"`
}

// TaskContent is the content classification of one linked task.
type TaskContent struct {
	TaskID      string       `json:"task_id"`
	IssueNumber int          `json:"issue_number"`
	State       ContentState `json:"state"`
}

// Skip is a task a push did not write, with the reason.
type Skip struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// remoteOnlyLimit caps the remote-only issues listed in a status report.
const remoteOnlyLimit = 50

// StatusReport is the read-only overview produced by Engine.Status.
type StatusReport struct {
	LocalTasks       int            `json:"local_tasks"`
	LinkedTasks      int            `json:"linked_tasks"`
	UnlinkedTasks    int            `json:"unlinked_tasks"`
	RemoteIssues     int            `json:"remote_issues"`
	MissingRemote    []TaskRef      `json:"missing_remote_for_linked"`
	InvalidLinks     []InvalidLink  `json:"invalid_links"`
	RemoteOnly       []RemoteOnly   `json:"remote_only_issues"`
	RemoteOnlyTotal  int            `json:"remote_only_total"`
	Diverged         []StatusChange `json:"diverged_statuses"`
	Content          []TaskContent  `json:"content"`
	PendingConflicts []string       `json:"pending_conflicts"`
}

// PullResult summarizes a pull.
type PullResult struct {
	DryRun        bool           `json:"dry_run"`
	Linked        int            `json:"linked"`
	StatusChanges []StatusChange `json:"status_changes"`
	UpdatedTasks  []string       `json:"updated_tasks"`
	MissingRemote []TaskRef      `json:"missing_remote_for_linked"`
	InvalidLinks  []InvalidLink  `json:"invalid_links"`
	Baselines     int            `json:"baselines"`
}

// PushResult summarizes a push. Skipped and Conflicts are also reported
// through the returned AggregateError.
type PushResult struct {
	DryRun      bool      `json:"dry_run"`
	Created     []TaskRef `json:"created"`
	Updated     []TaskRef `json:"updated"`
	BodySkipped []string  `json:"body_skipped"`
	Skipped     []Skip    `json:"skipped"`
	Conflicts   []string  `json:"conflicts"`
	Actions     []string  `json:"actions"`
}

// BootstrapResult summarizes a bootstrap.
type BootstrapResult struct {
	Direction    Direction   `json:"direction"`
	DryRun       bool        `json:"dry_run"`
	CreatedLocal []TaskRef   `json:"created_local,omitempty"`
	UpdatedLocal []TaskRef   `json:"updated_local,omitempty"`
	DetailFiles  []string    `json:"detail_files_created,omitempty"`
	Push         *PushResult `json:"push,omitempty"`
}

// ReconcileResult summarizes a reconcile.
type ReconcileResult struct {
	TaskID       string `json:"task_id"`
	IssueNumber  int    `json:"issue_number"`
	ArtifactPath string `json:"artifact_path"`
	Accepted     Accept `json:"accepted,omitempty"`
	Resolved     bool   `json:"resolved"`
}
