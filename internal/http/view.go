package http

import (
	"sync"

	"doc2txt/internal/jobs"
)

// View is the lifecycle renderer behind the web UI. The browser reads it
// through /api/state.
type View struct {
	mu    sync.RWMutex
	state ViewState
}

func NewView() *View {
	return &View{state: ViewState{Section: SectionUpload}}
}

func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) ShowStatus(job jobs.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Section = SectionStatus
	v.state.Status = job.Status
	v.state.Message = job.Message
	if job.ID != "" {
		v.state.RequestID = job.ID
	}
	v.state.Result = ""
	v.state.Error = ""
}

func (v *View) ShowResult(job jobs.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Section = SectionResults
	v.state.Status = job.Status
	v.state.Message = job.Message
	v.state.RequestID = job.ID
	v.state.Result = job.Result
	v.state.Error = ""
}

func (v *View) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Section = SectionError
	v.state.Error = message
	v.state.Result = ""
}

func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = ViewState{Section: SectionUpload}
}
