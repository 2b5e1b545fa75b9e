package http

import "doc2txt/internal/jobs"

// ErrorResponse is the error body every API route returns.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// Section names the panel the web UI should show.
type Section string

const (
	SectionUpload  Section = "upload"
	SectionStatus  Section = "status"
	SectionResults Section = "results"
	SectionError   Section = "error"
)

// ViewState is what the web UI renders.
type ViewState struct {
	Section   Section     `json:"section"`
	Status    jobs.Status `json:"status,omitempty"`
	Message   string      `json:"message,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Result    string      `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type StateResponse struct {
	Success bool      `json:"success"`
	State   string    `json:"state"`
	View    ViewState `json:"view"`
}

type SubmitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
}
