package tracker

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/metrics"
)

// Tracker records the lifecycle of pipeline runs. Every transition is persisted,
// observed in metrics and, when enabled, published as an Event.
type Tracker struct {
	logger    *zap.Logger
	repo      repositories.RunRepository
	metrics   *metrics.Metrics
	clock     clock.Clock
	newID     func() string
	eventChan chan Event
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithIDGenerator replaces the run ID generator
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithEvents enables event publishing with a buffer of size events
func WithEvents(size int) Option {
	return func(t *Tracker) { t.eventChan = make(chan Event, size) }
}

// WithMetrics records stage latencies and failures in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker creates a new run tracker
func NewTracker(repo repositories.RunRepository, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		logger: logger,
		repo:   repo,
		clock:  clock.New(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clock returns the clock used for timestamps
func (t *Tracker) Clock() clock.Clock {
	return t.clock
}

// StartRun creates and stores a new run record
func (t *Tracker) StartRun(ctx context.Context, audioPath string) *entities.Run {
	now := t.clock.Now()
	run := entities.NewRun(t.newID(), audioPath, now)

	if err := t.repo.Create(ctx, run); err != nil {
		t.logger.Warn("Failed to store run", zap.String("runID", run.ID), zap.Error(err))
	}

	t.emitEvent(Event{
		RunID:     run.ID,
		Type:      EventRunStarted,
		Timestamp: now,
		Data:      map[string]string{"audio_path": audioPath},
	})

	t.logger.Info("Run started", zap.String("runID", run.ID), zap.String("audioPath", audioPath))
	return run
}

// StartStage marks stage as running
func (t *Tracker) StartStage(ctx context.Context, run *entities.Run, stage entities.StageName) {
	now := t.clock.Now()
	run.StartStage(stage, now)
	t.persist(ctx, run)

	t.emitEvent(Event{
		RunID:     run.ID,
		Stage:     stage,
		Type:      EventStageStarted,
		Timestamp: now,
	})
}

// CompleteStage marks stage as completed; data is attached to the published event
func (t *Tracker) CompleteStage(ctx context.Context, run *entities.Run, stage entities.StageName, data interface{}) {
	now := t.clock.Now()
	run.CompleteStage(stage, now)
	t.persist(ctx, run)

	if record, ok := run.Stage(stage); ok && t.metrics != nil {
		t.metrics.StageDuration.WithLabelValues(string(stage)).Observe(record.DurationMs / 1000)
	}

	t.emitEvent(Event{
		RunID:     run.ID,
		Stage:     stage,
		Type:      EventStageCompleted,
		Timestamp: now,
		Data:      data,
	})

	t.logger.Info("Stage completed",
		zap.String("runID", run.ID),
		zap.String("stage", string(stage)))
}

// FailStage marks stage as failed
func (t *Tracker) FailStage(ctx context.Context, run *entities.Run, stage entities.StageName, err error) {
	now := t.clock.Now()
	run.FailStage(stage, now, err)
	t.persist(ctx, run)

	if t.metrics != nil {
		t.metrics.StageFailures.WithLabelValues(string(stage)).Inc()
	}

	t.emitEvent(Event{
		RunID:     run.ID,
		Stage:     stage,
		Type:      EventStageFailed,
		Timestamp: now,
		Data:      err.Error(),
	})

	t.logger.Error("Stage failed",
		zap.String("runID", run.ID),
		zap.String("stage", string(stage)),
		zap.Error(err))
}

// RecordFallback counts an audio write that needed the fallback layout
func (t *Tracker) RecordFallback(run *entities.Run, path string) {
	if t.metrics != nil {
		t.metrics.WriteFallbacks.Inc()
	}
	t.logger.Info("Audio write used fallback layout",
		zap.String("runID", run.ID),
		zap.String("path", path))
}

// RecordOutput appends a written file to the run
func (t *Tracker) RecordOutput(run *entities.Run, path string) {
	run.Outputs = append(run.Outputs, path)
	if t.metrics != nil {
		t.metrics.OutputFiles.Inc()
	}
}

// Finish completes or fails the run depending on err
func (t *Tracker) Finish(ctx context.Context, run *entities.Run, err error) {
	now := t.clock.Now()

	eventType := EventRunCompleted
	if err != nil {
		run.Fail(now, err)
		eventType = EventRunFailed
	} else {
		run.Complete(now)
	}
	t.persist(ctx, run)

	if t.metrics != nil {
		t.metrics.Runs.WithLabelValues(string(run.Status)).Inc()
	}

	t.emitEvent(Event{
		RunID:     run.ID,
		Type:      eventType,
		Timestamp: now,
		Data:      run,
	})

	t.logger.Info("Run finished",
		zap.String("runID", run.ID),
		zap.String("status", string(run.Status)),
		zap.Duration("duration", run.Duration()))
}

func (t *Tracker) persist(ctx context.Context, run *entities.Run) {
	if err := t.repo.Update(ctx, run); err != nil {
		t.logger.Warn("Failed to update run", zap.String("runID", run.ID), zap.Error(err))
	}
}

func (t *Tracker) emitEvent(event Event) {
	if t.eventChan == nil {
		return
	}
	select {
	case t.eventChan <- event:
	default:
		t.logger.Warn("Event channel full, dropping event", zap.String("type", string(event.Type)))
	}
}

// EventChannel returns the event channel, or nil when events are disabled
func (t *Tracker) EventChannel() <-chan Event {
	return t.eventChan
}

// Since is a convenience for stage timing on the tracker clock
func (t *Tracker) Since(start time.Time) time.Duration {
	return t.clock.Since(start)
}
