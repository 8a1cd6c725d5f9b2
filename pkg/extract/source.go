// Package extract supplies the raw telemetry records a run reconciles.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/plantsync/pkg/models"
)

// Source yields the records for one run.
type Source interface {
	Records(ctx context.Context) ([]models.RawRecord, error)
}

// Stdin is the path that makes a FileSource read standard input.
const Stdin = "-"

// FileSource reads a JSON or YAML array of records from a file or stdin.
type FileSource struct {
	path   string
	stdin  io.Reader
	logger *zap.Logger
}

// NewFileSource creates a source for path. An empty path or "-" reads stdin.
func NewFileSource(path string, stdin io.Reader, logger *zap.Logger) *FileSource {
	if path == "" {
		path = Stdin
	}
	return &FileSource{
		path:   path,
		stdin:  stdin,
		logger: logger.Named("extract"),
	}
}

// Records reads and decodes the whole input.
func (s *FileSource) Records(ctx context.Context) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r io.Reader
	if s.path == Stdin {
		r = s.stdin
	} else {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	records, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name(), err)
	}

	s.logger.Info("Read records",
		zap.String("source", s.name()),
		zap.Int("records", len(records)))
	return records, nil
}

func (s *FileSource) name() string {
	if s.path == Stdin {
		return "stdin"
	}
	return s.path
}

// Decode parses a JSON or YAML sequence of mappings. JSON is read through the
// YAML decoder, which accepts it as a subset. Empty input yields no records.
// Null entries are skipped; any other non-mapping entry is an error.
func Decode(r io.Reader) ([]models.RawRecord, error) {
	var items []any
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]models.RawRecord, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case map[string]any:
			records = append(records, models.RawRecord(v))
		default:
			return nil, fmt.Errorf("record %d: expected an object, got %T", i, item)
		}
	}
	return records, nil
}

// Ensure FileSource implements Source at compile time.
var _ Source = (*FileSource)(nil)
