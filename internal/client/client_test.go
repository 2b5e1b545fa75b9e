package client

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"doc2txt/internal/config"
	"doc2txt/internal/jobs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, svc config.ServiceConfig) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc.BaseURL = srv.URL
	c, err := New(svc, config.Default().Endpoints, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c, srv
}

func pdfUpload(body string) Upload {
	return Upload{
		Name:        "report.pdf",
		ContentType: config.TypePDF,
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestSubmit_SendsMultipartAndHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ProcessDocument" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("mode"); got != "fast" {
			t.Fatalf("expected mode=fast, got %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "key-1" {
			t.Fatalf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("expected Accept application/json, got %q", got)
		}
		if got := r.Header.Get("Origin"); got != "http://ui.local" {
			t.Fatalf("expected Origin header, got %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Fatalf("expected X-Request-Id header")
		}

		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile error: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.7 hello" {
			t.Fatalf("unexpected file body %q", data)
		}
		if hdr.Filename != "report.pdf" {
			t.Fatalf("unexpected filename %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != config.TypePDF {
			t.Fatalf("unexpected part content type %q", ct)
		}

		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"status":"in_progress","message":"Document processing started","data":{"request_id":"abc123"},"error":null}`)
	}, config.ServiceConfig{APIKey: "key-1", CORSMode: "cors", Origin: "http://ui.local"})

	id, err := c.Submit(t.Context(), pdfUpload("%PDF-1.7 hello"), "fast")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected abc123, got %q", id)
	}
}

func TestSubmit_AlwaysSendsMode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		values, ok := r.URL.Query()["mode"]
		if !ok {
			t.Fatalf("expected mode parameter, got query %q", r.URL.RawQuery)
		}
		if len(values) != 1 || values[0] != "" {
			t.Fatalf("expected empty mode value, got %v", values)
		}
		_, _ = io.WriteString(w, `{"data":{"request_id":"abc123"}}`)
	}, config.ServiceConfig{})

	if _, err := c.Submit(t.Context(), pdfUpload("x"), ""); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
}

func TestSubmit_EmptyFileNeverCallsServer(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, config.ServiceConfig{})

	_, err := c.Submit(t.Context(), pdfUpload(""), "fast")
	if err == nil {
		t.Fatalf("expected error for empty file")
	}
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Upload failed:") {
		t.Fatalf("expected upload stage prefix, got %q", err.Error())
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no server calls, got %d", calls)
	}
}

func TestEnvelopeErrorWinsOverSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"converter crashed","data":{"request_id":"abc123"}}`)
	}, config.ServiceConfig{})

	_, err := c.Submit(t.Context(), pdfUpload("x"), "fast")
	if err == nil {
		t.Fatalf("expected failure for populated error field")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.StatusCode != http.StatusOK || cerr.Remote != "converter crashed" {
		t.Fatalf("unexpected error fields: %+v", cerr)
	}
	if err.Error() != "Upload failed: converter crashed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNonSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("request_id") {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"status":"error","message":"Request not found","error":"Invalid request_id"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}, config.ServiceConfig{})

	_, err := c.CheckStatus(t.Context(), "missing")
	if err == nil || err.Error() != "Status check failed: Invalid request_id" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound for 404")
	}

	_, err = c.CheckStatus(t.Context(), "boom")
	if err == nil || err.Error() != "Status check failed: Internal Server Error" {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsNotFound(err) {
		t.Fatalf("500 must not be reported as not found")
	}
}

func TestCheckStatus_MapsServerValues(t *testing.T) {
	statuses := map[string]jobs.Status{
		"a": jobs.StatusProcessing,
		"b": jobs.StatusError,
		"c": jobs.StatusCompleted,
	}
	raw := map[string]string{"a": "in_progress", "b": "failed", "c": "completed"}

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/CheckStatus" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		id := r.URL.Query().Get("request_id")
		_, _ = io.WriteString(w, `{"message":"Status retrieved successfully","data":{"status":"`+raw[id]+`"}}`)
	}, config.ServiceConfig{})

	for id, want := range statuses {
		res, err := c.CheckStatus(t.Context(), id)
		if err != nil {
			t.Fatalf("CheckStatus(%s) error: %v", id, err)
		}
		if res.Status != want {
			t.Fatalf("CheckStatus(%s) = %q, want %q", id, res.Status, want)
		}
		if res.Message != "Status retrieved successfully" {
			t.Fatalf("unexpected message %q", res.Message)
		}
	}
}

func TestFetchResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/DownloadResult" || r.URL.Query().Get("request_id") != "abc123" {
			t.Fatalf("unexpected request %s", r.URL.String())
		}
		_, _ = io.WriteString(w, `{"data":{"content":"Hello world","request_id":"abc123"}}`)
	}, config.ServiceConfig{})

	text, err := c.FetchResult(t.Context(), "abc123")
	if err != nil {
		t.Fatalf("FetchResult error: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("expected Hello world, got %q", text)
	}
}

func TestFetchResult_MissingContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{}}`)
	}, config.ServiceConfig{})

	_, err := c.FetchResult(t.Context(), "abc123")
	if !errors.Is(err, ErrMissingResponse) {
		t.Fatalf("expected ErrMissingResponse, got %v", err)
	}
}

func TestCancel_DefaultsToCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/CancelProcessing" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"status":"success","message":"Processing cancelled successfully","data":{"request_id":"abc123"}}`)
	}, config.ServiceConfig{})

	res, err := c.Cancel(t.Context(), "abc123")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if res.Status != jobs.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", res.Status)
	}
	if res.Message != "Processing cancelled successfully" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestWithHeaderOverridesCommonHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/plain" {
			t.Fatalf("expected overridden Accept, got %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "other" {
			t.Fatalf("expected overridden key, got %q", got)
		}
		_, _ = io.WriteString(w, `{"data":{"status":"pending"}}`)
	}, config.ServiceConfig{APIKey: "key-1"})

	res, err := c.CheckStatus(t.Context(), "abc123", WithHeader("Accept", "text/plain"), WithHeader("X-Api-Key", "other"))
	if err != nil {
		t.Fatalf("CheckStatus error: %v", err)
	}
	if res.Status != jobs.StatusPending {
		t.Fatalf("expected pending, got %q", res.Status)
	}
}

func TestNetworkFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, config.ServiceConfig{})
	srv.Close()

	_, err := c.Cancel(t.Context(), "abc123")
	if err == nil {
		t.Fatalf("expected network error")
	}
	if !strings.HasPrefix(err.Error(), "Cancellation failed: ") {
		t.Fatalf("expected cancellation stage prefix, got %q", err.Error())
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.StatusCode != 0 {
		t.Fatalf("expected *Error without status code, got %#v", err)
	}
}

func TestNew_RequiresAbsoluteBaseURL(t *testing.T) {
	if _, err := New(config.ServiceConfig{}, config.Default().Endpoints, nil); err == nil {
		t.Fatalf("expected error for empty baseURL")
	}
	if _, err := New(config.ServiceConfig{BaseURL: "/api"}, config.Default().Endpoints, nil); err == nil {
		t.Fatalf("expected error for relative baseURL")
	}
}
