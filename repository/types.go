package repository

import "time"

// Status is the lifecycle state shared by runs and run items.
// Transitions are monotone: pending → running → a terminal state.
// Partial applies only to runs whose items split between completed and failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Run modes.
const (
	ModeIsolated = "isolated"
	ModeChained  = "chained"
)

// Run is a user-initiated benchmark execution owning one or more items.
type Run struct {
	ID         string
	Mode       string
	Vendors    []string
	Config     map[string]any
	Status     Status
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// RunItem is a single (input, vendor-assignment) attempt within a run.
// Vendor holds a single vendor name in isolated mode or the combined
// "tts→stt" label in chained mode.
type RunItem struct {
	ID             string
	RunID          string
	ScriptItemID   string
	Vendor         string
	TextInput      string
	AudioPath      string
	Transcript     string
	MetricsSummary string
	Sidecar        map[string]any
	Status         Status
	FailureReason  string
	CreatedAt      time.Time
}

// Metric is one named measurement attached to a run item.
// (run_item_id, name) pairs are unique; violating that is an IntegrityError.
type Metric struct {
	ID        string
	RunItemID string
	Name      string
	Value     float64
	Unit      string
	Threshold *float64
	PassFail  string
}

// ArtifactRecord points at a stored blob belonging to a run item.
type ArtifactRecord struct {
	ID          string
	RunItemID   string
	Kind        string
	FilePath    string
	ContentType string
	ByteLength  int
	CreatedAt   time.Time
}

// Script is an ordered reference corpus used for batch runs.
type Script struct {
	ID          string
	Name        string
	Description string
	Tags        string
	ItemCount   int
}

// ScriptItem is one entry of a reference script.
type ScriptItem struct {
	ID       string
	ScriptID string
	Text     string
	Lang     string
	Tags     string
}

// ItemCompletion carries everything written when a run item reaches a
// terminal state: the item row update, its metric rows and artifact
// pointers. The repository commits all of it in one transaction.
type ItemCompletion struct {
	ItemID         string
	Status         Status
	AudioPath      string
	Transcript     string
	MetricsSummary string
	Sidecar        map[string]any
	FailureReason  string
	Metrics        []Metric
	Artifacts      []ArtifactRecord
}
