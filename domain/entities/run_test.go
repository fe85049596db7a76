package entities

import (
	"errors"
	"testing"
	"time"
)

func TestRunCreation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun("run-1", "prompt.wav", now)

	if run.ID != "run-1" {
		t.Errorf("Expected ID run-1, got %s", run.ID)
	}

	if run.Status != RunStatusRunning {
		t.Errorf("Expected status %s, got %s", RunStatusRunning, run.Status)
	}

	if len(run.Stages) != len(PipelineStages) {
		t.Fatalf("Expected %d stages, got %d", len(PipelineStages), len(run.Stages))
	}

	for i, stage := range run.Stages {
		if stage.Name != PipelineStages[i] {
			t.Errorf("Expected stage %s at %d, got %s", PipelineStages[i], i, stage.Name)
		}
		if stage.State != StageStatePending {
			t.Errorf("Expected stage %s to be pending, got %s", stage.Name, stage.State)
		}
	}

	if len(run.Outputs) != 0 {
		t.Errorf("Expected no outputs, got %d", len(run.Outputs))
	}
}

func TestStageLifecycle(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun("run-1", "prompt.wav", start)

	run.StartStage(StageTranscribe, start)
	stage, ok := run.Stage(StageTranscribe)
	if !ok {
		t.Fatal("Expected transcribe stage to exist")
	}
	if stage.State != StageStateRunning {
		t.Errorf("Expected running state, got %s", stage.State)
	}

	run.CompleteStage(StageTranscribe, start.Add(1500*time.Millisecond))
	stage, _ = run.Stage(StageTranscribe)
	if stage.State != StageStateCompleted {
		t.Errorf("Expected completed state, got %s", stage.State)
	}
	if stage.DurationMs != 1500 {
		t.Errorf("Expected duration 1500ms, got %f", stage.DurationMs)
	}

	run.StartStage(StageRespond, start.Add(2*time.Second))
	run.FailStage(StageRespond, start.Add(3*time.Second), errors.New("model unavailable"))
	stage, _ = run.Stage(StageRespond)
	if stage.State != StageStateFailed {
		t.Errorf("Expected failed state, got %s", stage.State)
	}
	if stage.Error != "model unavailable" {
		t.Errorf("Expected stage error to be recorded, got %q", stage.Error)
	}
}

func TestRunCompletion(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	run := NewRun("run-1", "prompt.wav", start)
	run.Complete(start.Add(4 * time.Second))
	if run.Status != RunStatusCompleted {
		t.Errorf("Expected completed status, got %s", run.Status)
	}
	if run.Duration() != 4*time.Second {
		t.Errorf("Expected duration 4s, got %s", run.Duration())
	}

	failed := NewRun("run-2", "prompt.wav", start)
	failed.Fail(start.Add(time.Second), errors.New("boom"))
	if failed.Status != RunStatusFailed {
		t.Errorf("Expected failed status, got %s", failed.Status)
	}
	if failed.Error != "boom" {
		t.Errorf("Expected error boom, got %q", failed.Error)
	}
}

func TestRunValidation(t *testing.T) {
	run := NewRun("run-1", "prompt.wav", time.Now())
	if err := run.Validate(); err != nil {
		t.Errorf("Valid run should not have validation errors, got: %v", err)
	}

	run.ID = ""
	if err := run.Validate(); err == nil {
		t.Error("Run with empty ID should have validation error")
	}

	run.ID = "run-1"
	run.Status = RunStatus("invalid")
	if err := run.Validate(); err == nil {
		t.Error("Run with invalid status should have validation error")
	}
}
