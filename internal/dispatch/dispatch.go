// Package dispatch hands jobs from the front door to a processor, either on
// an in-process worker queue or over HTTP to a separate processor.
package dispatch

import (
	"context"
	"errors"

	"github.com/alnah/paperdigest/internal/processor"
)

// Sentinel errors for dispatch.
var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
	ErrDispatch    = errors.New("dispatch to processor failed")
)

// Dispatcher starts a job asynchronously. A nil error means the job was
// accepted, not that it succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, job processor.Job) error
}

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, job processor.Job) (*processor.Result, error)
}

// Compile-time interface implementation checks.
var (
	_ Dispatcher = (*Queue)(nil)
	_ Dispatcher = (*HTTPDispatcher)(nil)
	_ Processor  = (*processor.Processor)(nil)
)
