package repositories

import (
	"context"
	"errors"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("run not found")

// RunRepository defines data access methods for pipeline runs
type RunRepository interface {
	Create(ctx context.Context, run *entities.Run) error
	Update(ctx context.Context, run *entities.Run) error
	GetByID(ctx context.Context, id string) (*entities.Run, error)
	// List returns the most recent runs first
	List(ctx context.Context, limit int) ([]*entities.Run, error)
}
