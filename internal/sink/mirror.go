package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Uploader copies a finished artifact to remote storage and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// MirroredSink uploads the file produced by an inner sink. Upload failures are
// reported as artifact warnings and never fail the write.
type MirroredSink struct {
	inner    Sink
	uploader Uploader
	logger   zerolog.Logger
}

// NewMirroredSink wraps inner; a nil uploader returns inner unchanged.
func NewMirroredSink(inner Sink, uploader Uploader, logger zerolog.Logger) Sink {
	if uploader == nil {
		return inner
	}
	return &MirroredSink{
		inner:    inner,
		uploader: uploader,
		logger:   logger.With().Str("component", "artifact_mirror").Logger(),
	}
}

func (s *MirroredSink) Write(ctx context.Context, batch Batch) (Artifact, error) {
	artifact, err := s.inner.Write(ctx, batch)
	if err != nil {
		return artifact, err
	}

	url, err := s.upload(ctx, artifact.Ref)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", batch.JobID).Str("path", artifact.Ref).Msg("artifact mirror failed")
		artifact.Warnings = append(artifact.Warnings, fmt.Sprintf("artifact mirror failed: %v", err))
		return artifact, nil
	}

	artifact.URL = url
	return artifact, nil
}

func (s *MirroredSink) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return s.uploader.Upload(ctx, filepath.Base(path), file)
}
