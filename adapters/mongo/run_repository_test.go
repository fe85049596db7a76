package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

// TestRunRepository_Integration requires a running MongoDB instance (skipped if MONGODB_URI is not set)
func TestRunRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	client, err := NewClient(ctx, Config{URI: mongoURI, Database: "kidsgpt_test"}, logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = client.Database.Drop(ctx)
		_ = client.Close(ctx)
	}()

	repo := NewRunRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateAndGet", func(t *testing.T) {
		run := entities.NewRun("run-1", "prompt.wav", base)
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}

		retrieved, err := repo.GetByID(ctx, "run-1")
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}
		if retrieved.AudioPath != "prompt.wav" {
			t.Errorf("Expected audio path prompt.wav, got %s", retrieved.AudioPath)
		}
		if len(retrieved.Stages) != len(entities.PipelineStages) {
			t.Errorf("Expected %d stages, got %d", len(entities.PipelineStages), len(retrieved.Stages))
		}
	})

	t.Run("Update", func(t *testing.T) {
		run := entities.NewRun("run-2", "prompt.wav", base.Add(time.Minute))
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}

		run.Transcript = "What is the sky?"
		run.Complete(base.Add(2 * time.Minute))
		if err := repo.Update(ctx, run); err != nil {
			t.Fatalf("Failed to update run: %v", err)
		}

		retrieved, err := repo.GetByID(ctx, "run-2")
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}
		if retrieved.Status != entities.RunStatusCompleted {
			t.Errorf("Expected status completed, got %s", retrieved.Status)
		}
		if retrieved.Transcript != "What is the sky?" {
			t.Errorf("Expected transcript to be stored, got %q", retrieved.Transcript)
		}
	})

	t.Run("ListMostRecentFirst", func(t *testing.T) {
		runs, err := repo.List(ctx, 10)
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("Expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != "run-2" {
			t.Errorf("Expected run-2 first, got %s", runs[0].ID)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		if !errors.Is(err, repositories.ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
	})
}
