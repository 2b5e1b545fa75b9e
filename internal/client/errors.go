package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Op names one of the four remote operations.
type Op string

const (
	OpSubmit Op = "submit"
	OpStatus Op = "status"
	OpResult Op = "result"
	OpCancel Op = "cancel"
)

// stage is the user-facing name of the step that failed.
func (o Op) stage() string {
	switch o {
	case OpSubmit:
		return "Upload"
	case OpStatus:
		return "Status check"
	case OpResult:
		return "Download"
	case OpCancel:
		return "Cancellation"
	}
	return string(o)
}

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrMissingResponse = errors.New("response is missing expected data")
)

// Error is the single failure type returned by every Client operation.
// Network failures, non-2xx responses and envelopes with a populated
// error field all end up here; they differ only in which fields are set.
type Error struct {
	Op         Op
	StatusCode int
	Remote     string
	Err        error
}

func (e *Error) Error() string {
	detail := e.Remote
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" && e.StatusCode != 0 {
		detail = http.StatusText(e.StatusCode)
		if detail == "" {
			detail = fmt.Sprintf("status %d", e.StatusCode)
		}
	}
	return e.Op.stage() + " failed: " + detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a transport failure caused by the
// service not knowing the requested job.
func IsNotFound(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.StatusCode == http.StatusNotFound
	}
	return false
}
