package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/guacamole"
	"github.com/bcnelson/guacamole-csv-importer/internal/importer"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
	"github.com/bcnelson/guacamole-csv-importer/internal/tree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImportService runs imports against the remote directory and records them.
type ImportService struct {
	directory guacamole.Directory
	store     storage.Storage
	settings  importer.Settings
	logger    zerolog.Logger
	now       func() time.Time
}

// NewImportService creates a new ImportService. store may be nil, in which
// case runs are not recorded.
func NewImportService(directory guacamole.Directory, store storage.Storage, settings importer.Settings, logger zerolog.Logger) *ImportService {
	return &ImportService{
		directory: directory,
		store:     store,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// ImportOptions controls a single import run.
type ImportOptions struct {
	// Source names the input, usually the file path.
	Source string
	// DryRun reconciles against the snapshot without remote mutations.
	DryRun bool
}

// ImportReport is the outcome of an import run.
type ImportReport struct {
	Run    *domain.ImportRun
	Result *importer.Result
	// Tree is the hierarchy after reconciliation.
	Tree *tree.Tree
}

// Snapshot authenticates, fetches the remote hierarchy and builds a tree.
func (s *ImportService) Snapshot(ctx context.Context) (*tree.Tree, error) {
	if err := s.directory.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	groups, err := s.directory.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing connection groups: %w", err)
	}
	connections, err := s.directory.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	t, err := tree.Build(groups, connections)
	if err != nil {
		return nil, fmt.Errorf("building tree: %w", err)
	}
	s.logger.Debug().
		Int("groups", t.GroupCount()).
		Int("connections", t.ConnectionCount()).
		Msg("remote snapshot loaded")
	return t, nil
}

// Import reconciles entries against a fresh snapshot of the remote directory.
//
// Authentication and hierarchy failures abort before any mutation. Per-entry
// failures are tallied in the result. The run record is finalized in every
// case; storage failures are logged and never fail the import.
func (s *ImportService) Import(ctx context.Context, entries []domain.Entry, opts ImportOptions) (*ImportReport, error) {
	run := &domain.ImportRun{
		ID:        uuid.New().String(),
		Source:    opts.Source,
		DryRun:    opts.DryRun,
		Status:    domain.RunStatusPending,
		Total:     len(entries),
		StartedAt: s.now().UTC(),
	}
	report := &ImportReport{Run: run}
	log := s.logger.With().Str("run_id", run.ID).Logger()

	recording := s.store != nil
	if recording {
		if err := s.store.CreateImportRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("could not record import run")
			recording = false
		}
	}

	t, err := s.Snapshot(ctx)
	if err != nil {
		s.finish(ctx, log, recording, run, nil, err)
		return report, err
	}

	var mutator importer.Mutator = s.directory
	if opts.DryRun {
		mutator = &dryRunMutator{}
		log.Info().Msg("dry run: no changes will be made")
	}

	result, err := importer.New(mutator, s.settings, log).ImportAll(ctx, entries, t)
	report.Result = result
	report.Tree = t
	s.finish(ctx, log, recording, run, result, err)
	if err != nil {
		return report, err
	}

	event := log.Info()
	switch run.Status {
	case domain.RunStatusPartial:
		event = log.Warn()
	case domain.RunStatusFailed:
		event = log.Error()
	}
	event.
		Int("successful", result.Successful).
		Int("total", result.Total).
		Str("status", run.Status).
		Msgf("imported %d/%d connections", result.Successful, result.Total)

	return report, nil
}

// finish fills in the run record and stores it with its outcomes.
func (s *ImportService) finish(ctx context.Context, log zerolog.Logger, recording bool, run *domain.ImportRun, result *importer.Result, runErr error) {
	finished := s.now().UTC()
	run.FinishedAt = &finished
	if result != nil {
		run.Successful = result.Successful
		run.Skipped = result.Skipped
		run.Failed = result.Failed
	}
	if runErr != nil {
		run.Status = domain.RunStatusError
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunStatusSuccess
		if result != nil {
			run.Status = domain.RunStatus(result.Successful, result.Total)
		}
	}

	if !recording {
		return
	}

	// The caller's context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not record import run")
		return
	}
	if err := tx.UpdateImportRun(ctx, run); err != nil {
		_ = tx.Rollback()
		log.Warn().Err(err).Msg("could not record import run")
		return
	}
	if result != nil && len(result.Outcomes) > 0 {
		outcomes := make([]domain.EntryOutcome, len(result.Outcomes))
		for i, o := range result.Outcomes {
			o.RunID = run.ID
			outcomes[i] = o
		}
		if err := tx.CreateEntryOutcomes(ctx, outcomes); err != nil {
			_ = tx.Rollback()
			log.Warn().Err(err).Msg("could not record entry outcomes")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("could not record import run")
	}
}

// History returns the most recent runs, newest first.
func (s *ImportService) History(ctx context.Context, limit int) ([]*domain.ImportRun, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: run history is disabled", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListImportRuns(ctx, limit, 0)
}

// Outcomes returns the per-entry outcomes of a run.
func (s *ImportService) Outcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: run history is disabled", domain.ErrInvalidInput)
	}
	if _, err := s.store.GetImportRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.ListEntryOutcomes(ctx, runID)
}

// dryRunMutator hands out placeholder identifiers instead of creating anything.
type dryRunMutator struct {
	mu   sync.Mutex
	next int
}

func (m *dryRunMutator) allocate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("dry-run-%d", m.next)
}

func (m *dryRunMutator) CreateGroup(ctx context.Context, name, parentID string) (string, error) {
	return m.allocate(), nil
}

func (m *dryRunMutator) CreateConnection(ctx context.Context, spec domain.ConnectionSpec, parentID string) (string, error) {
	return m.allocate(), nil
}
