package jobs

import "time"

// Job is one document-conversion request tracked by its server-assigned
// identifier.
type Job struct {
	ID          string    `json:"id"`
	Mode        Mode      `json:"mode,omitempty"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Result      string    `json:"result,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Apply replaces the status fields with a fresh poll observation.
func (j *Job) Apply(status Status, message string, at time.Time) {
	j.Status = status
	j.Message = message
	j.UpdatedAt = at
}
