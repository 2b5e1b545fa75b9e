package lifecycle

import (
	"errors"
	"time"

	"doc2txt/internal/config"
	"doc2txt/internal/jobs"
)

// State is the coordinator's position in the job lifecycle.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingSubmission State = "awaiting_submission"
	StatePolling            State = "polling"
	StateCompleted          State = "completed"
	StateFailed             State = "failed"
	StateCancelled          State = "cancelled"
)

// IsTerminal reports whether s only leaves via an explicit reset.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Active reports whether a job is being submitted or polled.
func (s State) Active() bool {
	return s == StateAwaitingSubmission || s == StatePolling
}

const (
	// TimeoutMessage is shown when polling exceeds the configured timeout.
	TimeoutMessage = "Processing timeout"
	// DefaultFailureMessage is shown when the service reports an error
	// without a message of its own.
	DefaultFailureMessage = "Processing failed"
)

var (
	ErrBusy       = errors.New("a job is already in progress")
	ErrNotIdle    = errors.New("reset before submitting another document")
	ErrNotPolling = errors.New("no job is being polled")
	ErrClosed     = errors.New("coordinator is closed")
)

// ValidationError is a local rejection of a document before any request
// is sent.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Snapshot is a point-in-time copy of the coordinator state.
type Snapshot struct {
	State State     `json:"state"`
	Job   *jobs.Job `json:"job,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Config holds the coordinator limits.
type Config struct {
	MaxUploadBytes int64
	AllowedTypes   []string
	PollInterval   time.Duration
	PollTimeout    time.Duration
}

// ConfigFrom extracts the coordinator settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxUploadBytes: cfg.Upload.MaxSizeBytes,
		AllowedTypes:   cfg.Upload.AllowedTypes,
		PollInterval:   cfg.PollInterval(),
		PollTimeout:    cfg.PollTimeout(),
	}
}
