package processor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidJob indicates a job with a malformed request id or no URL.
var ErrInvalidJob = errors.New("invalid job")

// Job is one summarization request. Field names match the JSON payload the
// front door sends to the processor.
type Job struct {
	RequestID string `json:"requestId"`
	ArxivURL  string `json:"arxivUrl"`
}

// NewJob creates a job with a fresh request id.
func NewJob(arxivURL string) Job {
	return Job{RequestID: uuid.NewString(), ArxivURL: arxivURL}
}

// Validate checks that the request id is a UUID and the URL is set.
func (j Job) Validate() error {
	if _, err := uuid.Parse(j.RequestID); err != nil {
		return fmt.Errorf("%w: request id %q: %v", ErrInvalidJob, j.RequestID, err)
	}
	if j.ArxivURL == "" {
		return fmt.Errorf("%w: empty arxiv url", ErrInvalidJob)
	}
	return nil
}

// Result lists the artifacts written for a job.
type Result struct {
	RequestID   string
	Markdown    string
	HTMLKey     string
	MarkdownKey string
	PDFKey      string // empty when PDF export is disabled
}

// Keys returns every stored artifact key in write order.
func (r *Result) Keys() []string {
	keys := []string{r.HTMLKey, r.MarkdownKey}
	if r.PDFKey != "" {
		keys = append(keys, r.PDFKey)
	}
	return keys
}
