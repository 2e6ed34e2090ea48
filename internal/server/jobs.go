package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/processor"
)

// Jobs is the processor side of HTTP dispatch. Accepted jobs run on the
// local queue.
type Jobs struct {
	queue dispatch.Dispatcher
	log   *slog.Logger
}

// NewJobs creates the job endpoint.
func NewJobs(queue dispatch.Dispatcher, log *slog.Logger) *Jobs {
	if log == nil {
		log = slog.Default()
	}
	return &Jobs{queue: queue, log: log}
}

// Register mounts POST /v1/jobs.
func (j *Jobs) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+dispatch.JobsPath, j.handleJob)
}

func (j *Jobs) handleJob(w http.ResponseWriter, r *http.Request) {
	var job processor.Job
	if err := decodeJSON(w, r, &job); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := j.queue.Dispatch(r.Context(), job); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		j.log.Warn("jobs.rejected", "request_id", job.RequestID, "error", err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": job.RequestID})
}
