package repositories

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
)

func TestHistoryRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history", "query_history.json")
	repo := NewHistoryRepository(path, zap.NewNop())

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := &models.RunSummary{ExampleIndex: 1, SearchKey: "GOLD", ChosenCount: 3}
	require.NoError(t, repo.Append(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID, "append assigns an id")
	assert.False(t, first.CompletedAt.IsZero())

	require.NoError(t, repo.Append(ctx, &models.RunSummary{ExampleIndex: 2, SearchKey: "SILVER"}))

	entries, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "GOLD", entries[0].SearchKey)
	assert.Equal(t, "SILVER", entries[1].SearchKey)

	// The file is a plain JSON array.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 2)
	assert.Nil(t, raw[0]["warehouse_output_file"], "missing warehouse output is written as null")
}

func TestHistoryRepository_CorruptFileTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	repo := NewHistoryRepository(path, zap.NewNop())

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, repo.Append(ctx, &models.RunSummary{ExampleIndex: 1}))
	entries, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHistoryRepository_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, &models.RunSummary{ExampleIndex: idx}))
		}(i)
	}
	wg.Wait()

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestHistoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewHistoryRepository(filepath.Join(t.TempDir(), "history.json"), zap.NewNop())
	assert.ErrorIs(t, repo.Append(ctx, &models.RunSummary{}), context.Canceled)
}
