package jobs

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  Status
		known bool
	}{
		{"pending", StatusPending, true},
		{"processing", StatusProcessing, true},
		{"in_progress", StatusProcessing, true},
		{"COMPLETED", StatusCompleted, true},
		{"error", StatusError, true},
		{"failed", StatusError, true},
		{"cancelled", StatusCancelled, true},
		{"", StatusProcessing, false},
		{"mystery", StatusProcessing, false},
	}
	for _, tc := range cases {
		got, known := ParseStatus(tc.in)
		if got != tc.want || known != tc.known {
			t.Fatalf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusError, StatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.IsTerminal() {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}

func TestJobApply(t *testing.T) {
	j := Job{ID: "abc123", Status: StatusPending, Result: "kept"}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	j.Apply(StatusProcessing, "working", at)
	if j.Status != StatusProcessing || j.Message != "working" || !j.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected job after Apply: %+v", j)
	}
	if j.Result != "kept" {
		t.Fatalf("Apply must not touch the result, got %q", j.Result)
	}
}
