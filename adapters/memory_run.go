package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

// MemoryRunRepository is an in-memory implementation of RunRepository.
// It is the default store when no MongoDB URI is configured.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*entities.Run
}

// Ensure MemoryRunRepository implements RunRepository
var _ repositories.RunRepository = (*MemoryRunRepository)(nil)

// NewMemoryRunRepository creates a new in-memory run repository
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		runs: make(map[string]*entities.Run),
	}
}

// Create implements RunRepository interface
func (m *MemoryRunRepository) Create(ctx context.Context, run *entities.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return errors.New("run with this ID already exists")
	}

	m.runs[run.ID] = copyRun(run)
	return nil
}

// Update implements RunRepository interface
func (m *MemoryRunRepository) Update(ctx context.Context, run *entities.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; !exists {
		return repositories.ErrRunNotFound
	}

	m.runs[run.ID] = copyRun(run)
	return nil
}

// GetByID implements RunRepository interface
func (m *MemoryRunRepository) GetByID(ctx context.Context, id string) (*entities.Run, error) {
	if id == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, repositories.ErrRunNotFound
	}

	// Return a copy to prevent external modifications
	return copyRun(run), nil
}

// List implements RunRepository interface
func (m *MemoryRunRepository) List(ctx context.Context, limit int) ([]*entities.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, copyRun(run))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRun(run *entities.Run) *entities.Run {
	runCopy := *run
	runCopy.Outputs = append([]string(nil), run.Outputs...)
	runCopy.Stages = append([]entities.StageRecord(nil), run.Stages...)
	if run.CompletedAt != nil {
		completedAt := *run.CompletedAt
		runCopy.CompletedAt = &completedAt
	}
	return &runCopy
}
