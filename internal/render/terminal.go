// Package render presents coordinator updates on a terminal.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"doc2txt/internal/jobs"
)

// DefaultResultName is used when the result path names a directory.
const DefaultResultName = "document.md"

// Terminal writes status lines and errors to one writer and the extracted
// text to another, or to a file when an output path is set.
type Terminal struct {
	mu         sync.Mutex
	status     io.Writer
	out        io.Writer
	outputPath string
	last       string
	err        error
}

func NewTerminal(status, out io.Writer, outputPath string) *Terminal {
	return &Terminal{status: status, out: out, outputPath: outputPath}
}

func (t *Terminal) ShowStatus(job jobs.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := string(job.Status)
	if job.ID != "" {
		line = job.ID + ": " + line
	}
	if job.Message != "" {
		line += " (" + job.Message + ")"
	}
	// Polling repeats the same status every interval.
	if line == t.last {
		return
	}
	t.last = line
	fmt.Fprintln(t.status, line)
}

func (t *Terminal) ShowResult(job jobs.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""

	if t.outputPath == "" {
		text := job.Result
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, t.err = io.WriteString(t.out, text)
		return
	}

	path, err := SaveResult(t.outputPath, job.Result)
	if err != nil {
		t.err = err
		fmt.Fprintf(t.status, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(t.status, "Saved result to %s\n", path)
}

func (t *Terminal) ShowError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""
	fmt.Fprintf(t.status, "Error: %s\n", message)
}

func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""
	fmt.Fprintln(t.status, "Ready")
}

// Err returns the last error from writing a result.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// SaveResult writes text to path and returns the file written. A path
// that is an existing directory or ends in a separator gets
// DefaultResultName appended.
func SaveResult(path, text string) (string, error) {
	if path == "" {
		path = DefaultResultName
	}
	if strings.HasSuffix(path, string(os.PathSeparator)) || strings.HasSuffix(path, "/") {
		path = filepath.Join(path, DefaultResultName)
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultResultName)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
