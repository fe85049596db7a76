package entities

import (
	"errors"
	"time"
)

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageName identifies one step of the assistant pipeline
type StageName string

const (
	StageTranscribe   StageName = "transcribe"
	StageFormatPrompt StageName = "format_prompt"
	StageRespond      StageName = "respond"
	StageSynthesize   StageName = "synthesize"
	StageWriteOutputs StageName = "write_outputs"
)

// PipelineStages lists the stages in execution order
var PipelineStages = []StageName{
	StageTranscribe,
	StageFormatPrompt,
	StageRespond,
	StageSynthesize,
	StageWriteOutputs,
}

// StageState represents the state of an individual stage
type StageState string

const (
	StageStatePending   StageState = "pending"
	StageStateRunning   StageState = "running"
	StageStateCompleted StageState = "completed"
	StageStateFailed    StageState = "failed"
)

// StageRecord is the execution record of one stage
type StageRecord struct {
	Name        StageName  `json:"name" bson:"name" yaml:"name"`
	State       StageState `json:"state" bson:"state" yaml:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	DurationMs  float64    `json:"duration_ms" bson:"duration_ms" yaml:"duration_ms"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty" yaml:"error,omitempty"`
}

// Run is the record of one pass through the assistant pipeline
type Run struct {
	ID          string        `json:"id" bson:"_id" yaml:"id"`
	AudioPath   string        `json:"audio_path" bson:"audio_path" yaml:"audio_path"`
	Status      RunStatus     `json:"status" bson:"status" yaml:"status"`
	Transcript  string        `json:"transcript,omitempty" bson:"transcript,omitempty" yaml:"transcript,omitempty"`
	Reply       string        `json:"reply,omitempty" bson:"reply,omitempty" yaml:"reply,omitempty"`
	Outputs     []string      `json:"outputs" bson:"outputs" yaml:"outputs"`
	Stages      []StageRecord `json:"stages" bson:"stages" yaml:"stages"`
	StartedAt   time.Time     `json:"started_at" bson:"started_at" yaml:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty" bson:"error,omitempty" yaml:"error,omitempty"`
}

// NewRun creates a running record with every stage pending
func NewRun(id, audioPath string, now time.Time) *Run {
	stages := make([]StageRecord, len(PipelineStages))
	for i, name := range PipelineStages {
		stages[i] = StageRecord{Name: name, State: StageStatePending}
	}
	return &Run{
		ID:        id,
		AudioPath: audioPath,
		Status:    RunStatusRunning,
		Outputs:   make([]string, 0),
		Stages:    stages,
		StartedAt: now,
	}
}

// Stage returns the record for name
func (r *Run) Stage(name StageName) (*StageRecord, bool) {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i], true
		}
	}
	return nil, false
}

// StartStage marks a stage as running
func (r *Run) StartStage(name StageName, now time.Time) {
	stage, ok := r.Stage(name)
	if !ok {
		r.Stages = append(r.Stages, StageRecord{Name: name})
		stage = &r.Stages[len(r.Stages)-1]
	}
	stage.State = StageStateRunning
	stage.StartedAt = &now
}

// CompleteStage marks a stage as completed and records its duration
func (r *Run) CompleteStage(name StageName, now time.Time) {
	r.finishStage(name, StageStateCompleted, now, "")
}

// FailStage marks a stage as failed
func (r *Run) FailStage(name StageName, now time.Time, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.finishStage(name, StageStateFailed, now, msg)
}

func (r *Run) finishStage(name StageName, state StageState, now time.Time, errMsg string) {
	stage, ok := r.Stage(name)
	if !ok {
		return
	}
	stage.State = state
	stage.CompletedAt = &now
	stage.Error = errMsg
	if stage.StartedAt != nil {
		stage.DurationMs = float64(now.Sub(*stage.StartedAt)) / float64(time.Millisecond)
	}
}

// Complete marks the run as completed
func (r *Run) Complete(now time.Time) {
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
}

// Fail marks the run as failed
func (r *Run) Fail(now time.Time, err error) {
	r.Status = RunStatusFailed
	r.CompletedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration is the wall time of a finished run
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Validate validates the run data
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}

	if r.Status != RunStatusRunning && r.Status != RunStatusCompleted && r.Status != RunStatusFailed {
		return errors.New("invalid run status")
	}

	return nil
}
