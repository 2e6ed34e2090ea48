package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alnah/paperdigest/internal/processor"
)

// JobsPath is the processor endpoint that accepts jobs.
const JobsPath = "/v1/jobs"

// APIKeyHeader carries the shared key between front door and processor.
const APIKeyHeader = "X-Api-Key"

const (
	defaultDispatchTimeout = 10 * time.Second
	maxErrorBody           = 512
)

// HTTPOption configures an HTTPDispatcher.
type HTTPOption func(*HTTPDispatcher)

// WithHTTPClient sets the client used for job submission.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithAPIKey sends key in the X-Api-Key header.
func WithAPIKey(key string) HTTPOption {
	return func(d *HTTPDispatcher) { d.apiKey = key }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(d *HTTPDispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// HTTPDispatcher posts jobs to a processor running as a separate service.
type HTTPDispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *slog.Logger
}

// NewHTTPDispatcher targets the processor at baseURL.
func NewHTTPDispatcher(baseURL string, opts ...HTTPOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		endpoint: strings.TrimSuffix(baseURL, "/") + JobsPath,
		client:   &http.Client{Timeout: defaultDispatchTimeout},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch submits job and expects 202 Accepted.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, job processor.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: encoding job: %v", ErrDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set(APIKeyHeader, d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", ErrDispatch, resp.Status, strings.TrimSpace(string(msg)))
	}

	d.log.Debug("dispatch.sent", "request_id", job.RequestID, "endpoint", d.endpoint)
	return nil
}
