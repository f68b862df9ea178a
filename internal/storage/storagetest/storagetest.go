// Package storagetest holds behavior tests shared by every storage backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a storage backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("ImportRunLifecycle", func(t *testing.T) { testImportRunLifecycle(t, newStore(t)) })
	t.Run("ListImportRunsNewestFirst", func(t *testing.T) { testListImportRuns(t, newStore(t)) })
	t.Run("EntryOutcomes", func(t *testing.T) { testEntryOutcomes(t, newStore(t)) })
	t.Run("Transaction", func(t *testing.T) { testTransaction(t, newStore(t)) })
}

func newRun(id string, started time.Time) *domain.ImportRun {
	return &domain.ImportRun{
		ID:        id,
		Source:    "connections.csv",
		Status:    domain.RunStatusPending,
		StartedAt: started,
	}
}

func testImportRunLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := newRun("run-1", started)
	run.DryRun = true

	require.NoError(t, s.CreateImportRun(ctx, run))
	assert.True(t, errors.Is(s.CreateImportRun(ctx, run), domain.ErrAlreadyExists))

	got, err := s.GetImportRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "connections.csv", got.Source)
	assert.True(t, got.DryRun)
	assert.Equal(t, domain.RunStatusPending, got.Status)
	assert.Nil(t, got.FinishedAt)

	finished := started.Add(3 * time.Second)
	run.Status = domain.RunStatusPartial
	run.Successful, run.Skipped, run.Failed, run.Total = 2, 1, 1, 4
	run.Error = "1 entry failed"
	run.FinishedAt = &finished
	require.NoError(t, s.UpdateImportRun(ctx, run))

	got, err = s.GetImportRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPartial, got.Status)
	assert.Equal(t, 2, got.Successful)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, "1 entry failed", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))

	_, err = s.GetImportRun(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(s.UpdateImportRun(ctx, newRun("missing", started)), domain.ErrNotFound))
}

func testListImportRuns(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateImportRun(ctx, newRun(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := s.ListImportRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = s.ListImportRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].ID)

	runs, err = s.ListImportRuns(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func testEntryOutcomes(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateImportRun(ctx, newRun("run-1", time.Now().UTC())))

	outcomes := []domain.EntryOutcome{
		{RunID: "run-1", Position: 1, Line: 3, Path: "ROOT/Office", DeviceName: "PC2", Status: domain.OutcomeFailed, Error: "boom"},
		{RunID: "run-1", Position: 0, Line: 2, Path: "ROOT/Office", DeviceName: "PC1", Status: domain.OutcomeCreated, ConnectionID: "12"},
	}
	require.NoError(t, s.CreateEntryOutcomes(ctx, outcomes))

	got, err := s.ListEntryOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, outcomes[1], got[0])
	assert.Equal(t, outcomes[0], got[1])

	assert.True(t, errors.Is(s.CreateEntryOutcomes(ctx, outcomes[:1]), domain.ErrAlreadyExists))

	none, err := s.ListEntryOutcomes(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testTransaction(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	run := newRun("run-1", time.Now().UTC())
	require.NoError(t, s.CreateImportRun(ctx, run))

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	run.Status = domain.RunStatusSuccess
	require.NoError(t, tx.UpdateImportRun(ctx, run))
	require.NoError(t, tx.CreateEntryOutcomes(ctx, []domain.EntryOutcome{
		{RunID: "run-1", Position: 0, Path: "ROOT", DeviceName: "x", Status: domain.OutcomeSkipped},
	}))
	require.NoError(t, tx.Commit())

	got, err := s.GetImportRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, got.Status)
	outcomes, err := s.ListEntryOutcomes(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}
