package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"doc2txt/internal/client"
)

const (
	ReasonNoFile   = "no_file"
	ReasonEmpty    = "empty"
	ReasonTooLarge = "too_large"
	ReasonType     = "type"
)

// validate checks an upload against the configured limits. A negative
// Size means the size is unknown and only the type is checked.
func (c Config) validate(up client.Upload) *ValidationError {
	if up.Body == nil || up.Name == "" {
		return &ValidationError{Reason: ReasonNoFile, Message: "Please select a file first"}
	}
	if up.Size == 0 {
		return &ValidationError{Reason: ReasonEmpty, Message: "The selected file is empty"}
	}
	if c.MaxUploadBytes > 0 && up.Size > c.MaxUploadBytes {
		return &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("File size exceeds the maximum limit of %s", formatMB(c.MaxUploadBytes)),
		}
	}
	ct := strings.ToLower(strings.TrimSpace(up.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !slices.Contains(c.AllowedTypes, ct) {
		return &ValidationError{
			Reason:  ReasonType,
			Message: "Invalid file type. Please upload a PDF or Word document.",
		}
	}
	return nil
}

func formatMB(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
