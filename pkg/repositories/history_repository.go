package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
)

// HistoryRepository provides access to the run history file.
type HistoryRepository interface {
	Append(ctx context.Context, entry *models.RunSummary) error
	List(ctx context.Context) ([]*models.RunSummary, error)
}

// historyRepository stores the history as one JSON array. A file that cannot
// be parsed is treated as empty and replaced on the next append.
type historyRepository struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewHistoryRepository(path string, logger *zap.Logger) HistoryRepository {
	return &historyRepository{path: path, logger: logger.Named("history")}
}

var _ HistoryRepository = (*historyRepository)(nil)

func (r *historyRepository) Append(ctx context.Context, entry *models.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	if err := writeJSONFile(r.path, entries); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	r.logger.Debug("Appended history entry",
		zap.String("id", entry.ID.String()),
		zap.Int("example_index", entry.ExampleIndex),
		zap.Int("entries", len(entries)))
	return nil
}

func (r *historyRepository) List(ctx context.Context) ([]*models.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *historyRepository) read() ([]*models.RunSummary, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var entries []*models.RunSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("History file is not a JSON array, starting a new one",
			zap.String("path", r.path),
			zap.Error(err))
		return nil, nil
	}
	return entries, nil
}
