package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/bcnelson/guacamole-csv-importer/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	runs     map[string]*domain.ImportRun      // key: id
	outcomes map[string][]domain.EntryOutcome // key: run id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:     make(map[string]*domain.ImportRun),
		outcomes: make(map[string][]domain.EntryOutcome),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{store: s}, nil
}

// Tx is a no-op transaction for in-memory store.
type Tx struct {
	store *Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) Close() error    { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

// Forward all Tx methods to the underlying store
func (t *Tx) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return t.store.CreateImportRun(ctx, run)
}
func (t *Tx) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	return t.store.GetImportRun(ctx, id)
}
func (t *Tx) ListImportRuns(ctx context.Context, limit, offset int) ([]*domain.ImportRun, error) {
	return t.store.ListImportRuns(ctx, limit, offset)
}
func (t *Tx) UpdateImportRun(ctx context.Context, run *domain.ImportRun) error {
	return t.store.UpdateImportRun(ctx, run)
}
func (t *Tx) CreateEntryOutcomes(ctx context.Context, outcomes []domain.EntryOutcome) error {
	return t.store.CreateEntryOutcomes(ctx, outcomes)
}
func (t *Tx) ListEntryOutcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error) {
	return t.store.ListEntryOutcomes(ctx, runID)
}

// ============================================
// Import Runs
// ============================================

func (s *Store) CreateImportRun(ctx context.Context, run *domain.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return domain.ErrAlreadyExists
	}
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *Store) GetImportRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.runs[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (s *Store) ListImportRuns(ctx context.Context, limit, offset int) ([]*domain.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*domain.ImportRun, 0, len(s.runs))
	for _, r := range s.runs {
		copied := *r
		runs = append(runs, &copied)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if offset >= len(runs) {
		return []*domain.ImportRun{}, nil
	}
	end := offset + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], nil
}

func (s *Store) UpdateImportRun(ctx context.Context, run *domain.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		return domain.ErrNotFound
	}
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

// ============================================
// Entry Outcomes
// ============================================

func (s *Store) CreateEntryOutcomes(ctx context.Context, outcomes []domain.EntryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range outcomes {
		if _, exists := s.runs[o.RunID]; !exists {
			return domain.ErrNotFound
		}
		for _, existing := range s.outcomes[o.RunID] {
			if existing.Position == o.Position {
				return domain.ErrAlreadyExists
			}
		}
	}
	for _, o := range outcomes {
		s.outcomes[o.RunID] = append(s.outcomes[o.RunID], o)
	}
	return nil
}

func (s *Store) ListEntryOutcomes(ctx context.Context, runID string) ([]domain.EntryOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EntryOutcome, len(s.outcomes[runID]))
	copy(out, s.outcomes[runID])
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
