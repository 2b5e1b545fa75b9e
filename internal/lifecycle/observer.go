package lifecycle

import "doc2txt/internal/jobs"

// Renderer is the presentation side of the coordinator. Calls are made
// while the coordinator holds its lock, so implementations must not call
// back into the Coordinator.
type Renderer interface {
	ShowStatus(job jobs.Job)
	ShowResult(job jobs.Job)
	ShowError(message string)
	Reset()
}

// Observer is notified of job boundaries. The same locking rule as for
// Renderer applies.
type Observer interface {
	// OnJobStarted fires once polling begins for a submitted or resumed job.
	OnJobStarted(jobID string)
	// OnTerminal fires when a job leaves the lifecycle: completed, failed,
	// or cancelled by the user or the service.
	OnTerminal(jobID string, state State)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	JobStarted func(jobID string)
	Terminal   func(jobID string, state State)
}

func (o ObserverFuncs) OnJobStarted(jobID string) {
	if o.JobStarted != nil {
		o.JobStarted(jobID)
	}
}

func (o ObserverFuncs) OnTerminal(jobID string, state State) {
	if o.Terminal != nil {
		o.Terminal(jobID, state)
	}
}

type nopRenderer struct{}

func (nopRenderer) ShowStatus(jobs.Job) {}
func (nopRenderer) ShowResult(jobs.Job) {}
func (nopRenderer) ShowError(string)    {}
func (nopRenderer) Reset()              {}
