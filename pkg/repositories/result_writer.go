package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ResultWriter writes run artifacts (candidate lists, warehouse rows) as
// indented JSON files.
type ResultWriter interface {
	// Write stores v as dir/name, creating dir, and returns the file path.
	Write(dir, name string, v any) (string, error)
}

type resultWriter struct {
	logger *zap.Logger
}

func NewResultWriter(logger *zap.Logger) ResultWriter {
	return &resultWriter{logger: logger.Named("result-writer")}
}

var _ ResultWriter = (*resultWriter)(nil)

func (w *resultWriter) Write(dir, name string, v any) (string, error) {
	path := filepath.Join(dir, name)
	if err := writeJSONFile(path, v); err != nil {
		return "", err
	}
	w.logger.Info("Wrote result file", zap.String("path", path))
	return path, nil
}

// writeJSONFile writes v to a temp file next to path and renames it into
// place, so readers never see a half-written file.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
