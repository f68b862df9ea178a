package storage

import (
	"context"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
)

// Storage defines the interface for the run-history store.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Import Runs
	CreateImportRun(ctx context.Context, run *domain.ImportRun) error
	GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error)
	ListImportRuns(ctx context.Context, limit, offset int) ([]*domain.ImportRun, error)
	UpdateImportRun(ctx context.Context, run *domain.ImportRun) error

	// Entry Outcomes
	CreateEntryOutcomes(ctx context.Context, outcomes []domain.EntryOutcome) error
	ListEntryOutcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error)

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
