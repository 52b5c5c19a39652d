package production

import "time"

// =============================================================================
// RUN - Persisted simulation request and outcome
// =============================================================================

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one submitted simulation. RequestJSON is the scenario document (or
// order reference) as received; ResultJSON is the rendered report.
type Run struct {
	ID          string
	Name        string
	OrderID     string
	Status      RunStatus
	Outcome     string // engine status once finished: completed, did_not_converge, ...
	TotalHours  int
	RequestJSON string
	ResultJSON  string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// IsFinished reports whether the run reached a terminal state.
func (r Run) IsFinished() bool { return r.Status == RunCompleted || r.Status == RunFailed }
