package sink

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
)

// ErrWriteFailure indicates the results artifact could not be created or written.
var ErrWriteFailure = errors.New("write failure")

// Write modes for the CSV sink.
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
	ModeUnique    = "unique"
)

// Batch is the row set produced by one job.
type Batch struct {
	JobID string
	Date  time.Time
	Rows  []evaluation.ResultRow
}

// Artifact references what a sink persisted.
type Artifact struct {
	Ref      string
	URL      string
	Rows     int
	Warnings []string
}

// Sink persists the results table of one job.
type Sink interface {
	Write(ctx context.Context, batch Batch) (Artifact, error)
}
