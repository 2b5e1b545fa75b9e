package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"doc2txt/internal/config"
	"doc2txt/internal/jobs"
	"doc2txt/internal/metrics"
)

// maxResponseBytes bounds how much of a response body is read. Results
// are plain text extracted from documents of at most a few MiB.
const maxResponseBytes = 64 << 20

// StatusResult is the outcome of a status check or cancellation.
type StatusResult struct {
	Status  jobs.Status
	Message string
	// Raw is the status string as sent by the service.
	Raw string
}

// envelope is the uniform wrapper every endpoint responds with.
type envelope struct {
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client talks to the document conversion service.
type Client struct {
	svc       config.ServiceConfig
	endpoints config.EndpointsConfig
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers map[string]string
}

// WithHeader sets a header for one call, overriding the common set.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// New creates a Client for the given service deployment.
func New(svc config.ServiceConfig, endpoints config.EndpointsConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(svc.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("service baseURL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service baseURL %q", svc.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		svc:       svc,
		endpoints: endpoints,
		baseURL:   base,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Submit uploads a document and returns the job identifier assigned by
// the service. mode is sent verbatim as the mode query parameter, even
// when empty.
func (c *Client) Submit(ctx context.Context, file Upload, mode string, opts ...RequestOption) (string, error) {
	if file.Body == nil {
		return "", c.reject(OpSubmit, ErrEmptyFile)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return "", c.reject(OpSubmit, fmt.Errorf("build form: %w", err))
	}
	n, err := io.Copy(part, file.Body)
	if err != nil {
		return "", c.reject(OpSubmit, fmt.Errorf("read file: %w", err))
	}
	if n == 0 {
		return "", c.reject(OpSubmit, ErrEmptyFile)
	}
	if err := mw.Close(); err != nil {
		return "", c.reject(OpSubmit, fmt.Errorf("build form: %w", err))
	}

	query := url.Values{"mode": {mode}}

	var data struct {
		RequestID string `json:"request_id"`
	}
	if _, err := c.do(ctx, OpSubmit, http.MethodPost, c.endpoints.Process, query, &buf, mw.FormDataContentType(), opts, &data); err != nil {
		return "", err
	}
	if data.RequestID == "" {
		return "", &Error{Op: OpSubmit, Err: fmt.Errorf("%w: request_id", ErrMissingResponse)}
	}
	return data.RequestID, nil
}

// CheckStatus fetches the current status of a job.
func (c *Client) CheckStatus(ctx context.Context, jobID string, opts ...RequestOption) (StatusResult, error) {
	return c.statusCall(ctx, OpStatus, http.MethodGet, c.endpoints.Status, jobID, opts)
}

// FetchResult downloads the extracted text of a completed job. The
// service answers with an error when the job has not completed yet.
func (c *Client) FetchResult(ctx context.Context, jobID string, opts ...RequestOption) (string, error) {
	var data struct {
		Content *string `json:"content"`
	}
	query := url.Values{"request_id": {jobID}}
	if _, err := c.do(ctx, OpResult, http.MethodGet, c.endpoints.Download, query, nil, "", opts, &data); err != nil {
		return "", err
	}
	if data.Content == nil {
		return "", &Error{Op: OpResult, Err: fmt.Errorf("%w: content", ErrMissingResponse)}
	}
	return *data.Content, nil
}

// Cancel asks the service to stop processing a job.
func (c *Client) Cancel(ctx context.Context, jobID string, opts ...RequestOption) (StatusResult, error) {
	res, err := c.statusCall(ctx, OpCancel, http.MethodPost, c.endpoints.Cancel, jobID, opts)
	if err != nil {
		return res, err
	}
	// The service only echoes the request id on a successful cancel.
	if res.Raw == "" {
		res.Status = jobs.StatusCancelled
	}
	return res, nil
}

func (c *Client) statusCall(ctx context.Context, op Op, method, path, jobID string, opts []RequestOption) (StatusResult, error) {
	var data struct {
		Status string `json:"status"`
	}
	query := url.Values{"request_id": {jobID}}
	env, err := c.do(ctx, op, method, path, query, nil, "", opts, &data)
	if err != nil {
		return StatusResult{}, err
	}

	status, known := jobs.ParseStatus(data.Status)
	if !known && data.Status != "" {
		c.logger.Warn("client.status.unknown", "op", string(op), "job_id", jobID, "status", data.Status)
	}
	return StatusResult{Status: status, Message: env.Message, Raw: data.Status}, nil
}

// do performs one request and decodes the envelope. out, when non-nil,
// receives the envelope's data field.
func (c *Client) do(ctx context.Context, op Op, method, path string, query url.Values, body io.Reader, contentType string, opts []RequestOption, out any) (*envelope, error) {
	var ro requestOptions
	for _, o := range opts {
		o(&ro)
	}

	reqID := uuid.New().String()
	start := time.Now()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, c.finish(op, reqID, start, &Error{Op: op, Err: fmt.Errorf("build request: %w", err)})
	}
	c.applyHeaders(req, reqID, contentType, ro.headers)

	c.logger.Debug("client.request",
		"request_id", reqID,
		"op", string(op),
		"method", method,
		"url", endpoint,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.finish(op, reqID, start, &Error{Op: op, Err: err})
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("client.response_body_close_error", "request_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.finish(op, reqID, start, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)})
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode/100 != 2 {
		e := &Error{Op: op, StatusCode: resp.StatusCode}
		if decodeErr == nil {
			e.Remote = env.Error
		}
		return nil, c.finish(op, reqID, start, e)
	}
	if decodeErr != nil {
		return nil, c.finish(op, reqID, start, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)})
	}
	// A populated error field wins over a successful status code.
	if env.Error != "" {
		return nil, c.finish(op, reqID, start, &Error{Op: op, StatusCode: resp.StatusCode, Remote: env.Error})
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, c.finish(op, reqID, start, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)})
		}
	}

	c.finish(op, reqID, start, nil)
	c.logger.Debug("client.response",
		"request_id", reqID,
		"op", string(op),
		"status", resp.StatusCode,
		"bytes", len(raw),
	)
	return &env, nil
}

func (c *Client) applyHeaders(req *http.Request, reqID, contentType string, overrides map[string]string) {
	if c.svc.APIKey != "" {
		req.Header.Set("x-api-key", c.svc.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if strings.EqualFold(c.svc.CORSMode, "cors") && c.svc.Origin != "" {
		req.Header.Set("Origin", c.svc.Origin)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range overrides {
		req.Header.Set(k, v)
	}
}

// finish records metrics and logs failures. It returns err unchanged.
func (c *Client) finish(op Op, reqID string, start time.Time, err error) error {
	elapsed := time.Since(start).Milliseconds()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Warn("client.error",
			"request_id", reqID,
			"op", string(op),
			"error", err,
			"elapsed_ms", elapsed,
		)
	}
	metrics.RecordTransportCall(string(op), outcome, elapsed)
	return err
}

// reject fails a call before any request is sent.
func (c *Client) reject(op Op, cause error) error {
	return &Error{Op: op, Err: cause}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
