package jobs

import "strings"

// Status represents the lifecycle state of a conversion job as reported
// by the remote service.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether polling stops once a job reaches s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus maps a wire value onto a Status. The service writes
// in_progress and failed into its status records, so those are folded
// into processing and error. The second return value is false for
// values that could not be recognized; those are treated as processing.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued":
		return StatusPending, true
	case "processing", "in_progress", "running":
		return StatusProcessing, true
	case "completed":
		return StatusCompleted, true
	case "error", "failed":
		return StatusError, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return StatusProcessing, false
}

// Mode selects the converter on the server side. The client passes it
// through without interpretation.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAccurate Mode = "accurate"
)
