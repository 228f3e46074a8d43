package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
)

const bom = "\uFEFF"

// CSVConfig configures where and how result files are written.
type CSVConfig struct {
	Dir  string
	Mode string
}

// CSVSink writes one results file per calendar day named eval_YYYY-MM-DD.csv.
type CSVSink struct {
	cfg    CSVConfig
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewCSVSink validates the mode and returns a sink.
func NewCSVSink(cfg CSVConfig, logger zerolog.Logger) (*CSVSink, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAppend
	}
	switch cfg.Mode {
	case ModeAppend, ModeOverwrite, ModeUnique:
	default:
		return nil, fmt.Errorf("unsupported results mode %q", cfg.Mode)
	}

	return &CSVSink{
		cfg:    cfg,
		logger: logger.With().Str("component", "csv_sink").Logger(),
	}, nil
}

// FileName returns the artifact name for the batch.
func (s *CSVSink) FileName(batch Batch) string {
	day := batch.Date.Format("2006-01-02")
	if s.cfg.Mode == ModeUnique {
		return fmt.Sprintf("eval_%s_%s.csv", day, batch.JobID)
	}
	return fmt.Sprintf("eval_%s.csv", day)
}

// Write encodes every row before touching the destination, so a failed job
// never leaves a partial row set behind.
func (s *CSVSink) Write(_ context.Context, batch Batch) (Artifact, error) {
	body, err := encodeRows(batch.Rows)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: encode rows: %v", ErrWriteFailure, err)
	}
	header, err := encodeHeader()
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: encode header: %v", ErrWriteFailure, err)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("%w: create results dir: %v", ErrWriteFailure, err)
	}

	path := filepath.Join(s.cfg.Dir, s.FileName(batch))

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.cfg.Mode {
	case ModeOverwrite:
		err = writeAtomic(path, append(header, body...))
	case ModeUnique:
		err = writeExclusive(path, append(header, body...))
	default:
		err = appendRows(path, header, body)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}

	s.logger.Info().Str("job_id", batch.JobID).Str("path", path).Int("rows", len(batch.Rows)).Msg("results written")

	return Artifact{Ref: path, Rows: len(batch.Rows)}, nil
}

func encodeHeader() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)
	w := csv.NewWriter(&buf)
	if err := w.Write(evaluation.ResultColumns); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeRows(rows []evaluation.ResultRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row.Record()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// appendRows creates the file with a header when it is missing or empty and
// otherwise appends rows only.
func appendRows(path string, header, body []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	payload := body
	if info.Size() == 0 {
		payload = append(append([]byte{}, header...), body...)
	}

	if _, err := file.Write(payload); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".eval-*.csv.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("artifact already exists")
		}
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}
