package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const runsCollection = "runs"

// RunRepository implements repositories.RunRepository using MongoDB
type RunRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// Ensure RunRepository implements the interface
var _ repositories.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new MongoDB run repository
func NewRunRepository(db *mongo.Database, logger *zap.Logger) *RunRepository {
	return &RunRepository{
		collection: db.Collection(runsCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the indexes used by List
func (r *RunRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}

	r.logger.Info("Run indexes created successfully")
	return nil
}

// Create implements repositories.RunRepository
func (r *RunRepository) Create(ctx context.Context, run *entities.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		r.logger.Error("Failed to create run", zap.Error(err), zap.String("run_id", run.ID))
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Update implements repositories.RunRepository
func (r *RunRepository) Update(ctx context.Context, run *entities.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", repositories.ErrRunNotFound, run.ID)
	}

	return nil
}

// GetByID implements repositories.RunRepository
func (r *RunRepository) GetByID(ctx context.Context, id string) (*entities.Run, error) {
	if id == "" {
		return nil, errors.New("run ID cannot be empty")
	}

	var run entities.Run
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrRunNotFound
		}
		r.logger.Error("Failed to get run by ID", zap.Error(err), zap.String("run_id", id))
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	return &run, nil
}

// List implements repositories.RunRepository
func (r *RunRepository) List(ctx context.Context, limit int) ([]*entities.Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := make([]*entities.Run, 0)
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}

	return runs, nil
}
