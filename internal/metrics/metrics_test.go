package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	// Record a single request and ensure it appears in the export.
	RecordRequest("GET", "/api/state", 200, 3)

	out := Export()
	if !strings.Contains(out, "doc2txt_ui_requests_total{method=\"GET\",path=\"/api/state\",status=\"200\"}") {
		t.Fatalf("expected UI request metric for GET /api/state in export, got:\n%s", out)
	}
	if !strings.Contains(out, "doc2txt_ui_request_duration_ms_sum") || !strings.Contains(out, "doc2txt_ui_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordTransportCall(t *testing.T) {
	RecordTransportCall("status", "ok", 12)
	RecordTransportCall("status", "error", 4)

	out := Export()
	if !strings.Contains(out, "doc2txt_transport_calls_total{op=\"status\",outcome=\"ok\"}") {
		t.Fatalf("expected ok status call in export, got:\n%s", out)
	}
	if !strings.Contains(out, "doc2txt_transport_calls_total{op=\"status\",outcome=\"error\"}") {
		t.Fatalf("expected error status call in export, got:\n%s", out)
	}
	if !strings.Contains(out, "doc2txt_transport_duration_ms_count{op=\"status\"}") {
		t.Fatalf("expected status latency count in export, got:\n%s", out)
	}
}

func TestRecordJobOutcomeAndValidation(t *testing.T) {
	RecordJobOutcome("completed")
	RecordValidationFailure("size")

	out := Export()
	if !strings.Contains(out, "doc2txt_jobs_terminal_total{state=\"completed\"}") {
		t.Fatalf("expected completed outcome in export, got:\n%s", out)
	}
	if !strings.Contains(out, "doc2txt_upload_rejected_total{reason=\"size\"}") {
		t.Fatalf("expected size rejection in export, got:\n%s", out)
	}
}
