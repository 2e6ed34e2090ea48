package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/alnah/paperdigest/internal/arxiv"
	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/processor"
	"github.com/alnah/paperdigest/internal/storage"
)

// SummaryRequest is the front door body. ArxivURL starts a job; RequestID
// polls for its result.
type SummaryRequest struct {
	ArxivURL  string `json:"arxivUrl,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// FrontDoor accepts URLs and serves finished summaries.
type FrontDoor struct {
	dispatcher dispatch.Dispatcher
	store      storage.Store
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewFrontDoor creates a FrontDoor. m may be nil.
func NewFrontDoor(d dispatch.Dispatcher, store storage.Store, m *metrics.Metrics, log *slog.Logger) *FrontDoor {
	if log == nil {
		log = slog.Default()
	}
	return &FrontDoor{dispatcher: d, store: store, metrics: m, log: log}
}

// Register mounts POST / and POST /summaries.
func (f *FrontDoor) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /{$}", f.handleSummary)
	mux.HandleFunc("POST /summaries", f.handleSummary)
}

func (f *FrontDoor) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case req.ArxivURL != "":
		f.submit(r.Context(), w, req.ArxivURL)
	case req.RequestID != "":
		f.poll(r.Context(), w, req.RequestID)
	default:
		writeError(w, http.StatusBadRequest, "arxivUrl or requestId is required")
	}
}

func (f *FrontDoor) submit(ctx context.Context, w http.ResponseWriter, arxivURL string) {
	if _, err := arxiv.PDFURL(arxivURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := processor.NewJob(arxivURL)
	if err := f.dispatcher.Dispatch(ctx, job); err != nil {
		f.countDispatch(metrics.OutcomeFailed)
		f.log.Error("frontdoor.dispatch.failed", "request_id", job.RequestID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start summary")
		return
	}

	f.countDispatch(metrics.OutcomeSucceeded)
	f.log.Info("frontdoor.dispatched", "request_id", job.RequestID, "arxiv_id", arxiv.ExtractID(arxivURL))
	writeJSON(w, http.StatusOK, map[string]string{"request_id": job.RequestID})
}

// pollOutcome is the result of looking up a summary.
type pollOutcome int

const (
	pollFound pollOutcome = iota
	pollNotFound
	pollTransient
)

// lookup separates a missing artifact from a failing store.
func (f *FrontDoor) lookup(ctx context.Context, requestID string) (string, pollOutcome, error) {
	body, err := f.store.Get(ctx, storage.HTMLKey(requestID))
	switch {
	case err == nil:
		return string(body), pollFound, nil
	case errors.Is(err, storage.ErrNotFound):
		return "", pollNotFound, nil
	default:
		return "", pollTransient, err
	}
}

func (f *FrontDoor) poll(ctx context.Context, w http.ResponseWriter, requestID string) {
	if _, err := uuid.Parse(requestID); err != nil {
		f.countPoll(metrics.PollPending)
		f.log.Info("frontdoor.poll.invalid_id", "request_id", requestID)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}

	html, outcome, err := f.lookup(ctx, requestID)
	switch outcome {
	case pollFound:
		f.countPoll(metrics.PollFound)
		writeJSON(w, http.StatusOK, map[string]string{"html": html})
		return
	case pollNotFound:
		f.countPoll(metrics.PollPending)
		f.log.Info("frontdoor.poll.pending", "request_id", requestID)
	case pollTransient:
		f.countPoll(metrics.PollError)
		f.log.Error("frontdoor.poll.failed", "request_id", requestID, "error", err)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func (f *FrontDoor) countDispatch(outcome string) {
	if f.metrics != nil {
		f.metrics.DispatchesTotal.WithLabelValues(outcome).Inc()
	}
}

func (f *FrontDoor) countPoll(result string) {
	if f.metrics != nil {
		f.metrics.PollsTotal.WithLabelValues(result).Inc()
	}
}
