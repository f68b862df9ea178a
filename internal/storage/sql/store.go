package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================
// Import Runs
// ============================================

const importRunColumns = `id, source, dry_run, status, successful, skipped, failed, total, error, started_at, finished_at`

func createImportRun(ctx context.Context, db dbInterface, run *domain.ImportRun) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO import_runs (`+importRunColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Source, run.DryRun, run.Status, run.Successful, run.Skipped,
		run.Failed, run.Total, run.Error, run.StartedAt, run.FinishedAt)
	return wrapUniqueError(err)
}

func (s *Store) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return createImportRun(ctx, s.db, run)
}

func (t *Tx) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return createImportRun(ctx, t.tx, run)
}

func getImportRun(ctx context.Context, db dbInterface, id string) (*domain.ImportRun, error) {
	var run domain.ImportRun
	err := db.GetContext(ctx, &run,
		`SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	return getImportRun(ctx, s.db, id)
}

func (t *Tx) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	return getImportRun(ctx, t.tx, id)
}

func listImportRuns(ctx context.Context, db dbInterface, limit, offset int) ([]*domain.ImportRun, error) {
	var runs []*domain.ImportRun
	err := db.SelectContext(ctx, &runs,
		`SELECT `+importRunColumns+` FROM import_runs ORDER BY started_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	return runs, err
}

func (s *Store) ListImportRuns(ctx context.Context, limit, offset int) ([]*domain.ImportRun, error) {
	return listImportRuns(ctx, s.db, limit, offset)
}

func (t *Tx) ListImportRuns(ctx context.Context, limit, offset int) ([]*domain.ImportRun, error) {
	return listImportRuns(ctx, t.tx, limit, offset)
}

func updateImportRun(ctx context.Context, db dbInterface, run *domain.ImportRun) error {
	result, err := db.ExecContext(ctx,
		`UPDATE import_runs SET status = $1, successful = $2, skipped = $3, failed = $4, total = $5, error = $6, finished_at = $7
		 WHERE id = $8`,
		run.Status, run.Successful, run.Skipped, run.Failed, run.Total, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return updateImportRun(ctx, s.db, run)
}

func (t *Tx) UpdateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return updateImportRun(ctx, t.tx, run)
}

// ============================================
// Entry Outcomes
// ============================================

func createEntryOutcomes(ctx context.Context, db dbInterface, outcomes []domain.EntryOutcome) error {
	for _, o := range outcomes {
		_, err := db.ExecContext(ctx,
			`INSERT INTO entry_outcomes (run_id, position, line, path, device_name, status, connection_id, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.RunID, o.Position, o.Line, o.Path, o.DeviceName, o.Status, o.ConnectionID, o.Error)
		if err != nil {
			return wrapUniqueError(err)
		}
	}
	return nil
}

// CreateEntryOutcomes inserts all outcomes in one transaction.
func (s *Store) CreateEntryOutcomes(ctx context.Context, outcomes []domain.EntryOutcome) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createEntryOutcomes(ctx, tx, outcomes); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (t *Tx) CreateEntryOutcomes(ctx context.Context, outcomes []domain.EntryOutcome) error {
	return createEntryOutcomes(ctx, t.tx, outcomes)
}

func listEntryOutcomes(ctx context.Context, db dbInterface, runID string) ([]domain.EntryOutcome, error) {
	var outcomes []domain.EntryOutcome
	err := db.SelectContext(ctx, &outcomes,
		`SELECT run_id, position, line, path, device_name, status, connection_id, error
		 FROM entry_outcomes WHERE run_id = $1 ORDER BY position`, runID)
	return outcomes, err
}

func (s *Store) ListEntryOutcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error) {
	return listEntryOutcomes(ctx, s.db, runID)
}

func (t *Tx) ListEntryOutcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error) {
	return listEntryOutcomes(ctx, t.tx, runID)
}
