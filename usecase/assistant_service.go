package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/audio"
	"github.com/rairaimanish/kidsGPT/internal/tracker"
)

const (
	// DefaultSystemInstruction frames every conversation
	DefaultSystemInstruction = "You are a children expert. You need to respond appropriately to children questions and remarks. Keep it simple and short."
	// DefaultOutputPattern names the i-th synthesized file
	DefaultOutputPattern = "basic_output%d.wav"
)

// AssistantConfig holds the fixed inputs of the assistant pipeline
type AssistantConfig struct {
	SystemInstruction string                  `mapstructure:"system_instruction"`
	OutputPattern     string                  `mapstructure:"output_pattern"`
	SampleRate        int                     `mapstructure:"sample_rate"`
	Sampling          entities.SamplingConfig `mapstructure:"sampling"`
}

// Params are the per-run inputs of AssistantService.Run
type Params struct {
	AudioPath string
	// OutputPattern overrides the configured pattern when set
	OutputPattern string
}

// OutputFile describes one written waveform
type OutputFile struct {
	Path     string `json:"path"`
	Fallback bool   `json:"fallback"`
}

// AssistantService turns a spoken question into a spoken answer:
// transcribe, format prompt, respond, synthesize, write outputs.
type AssistantService struct {
	stt      repositories.SpeechToText
	llm      repositories.LargeLanguageModel
	tts      repositories.TextToSpeech
	template repositories.ChatTemplate
	writer   repositories.AudioWriter
	tracker  *tracker.Tracker
	config   AssistantConfig
	out      io.Writer
	logger   *zap.Logger
}

// ValidateAssistantConfig validates the AssistantConfig
func ValidateAssistantConfig(config AssistantConfig) error {
	if err := config.Sampling.Validate(); err != nil {
		return fmt.Errorf("invalid sampling configuration: %w", err)
	}
	if config.SampleRate < 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.OutputPattern != "" {
		if err := validateOutputPattern(config.OutputPattern); err != nil {
			return err
		}
	}
	return nil
}

func validateOutputPattern(pattern string) error {
	if fmt.Sprintf(pattern, 0) == fmt.Sprintf(pattern, 1) || strings.Contains(fmt.Sprintf(pattern, 0), "%!") {
		return fmt.Errorf("output pattern %q must contain one integer verb such as %%d", pattern)
	}
	return nil
}

// NewAssistantService creates the pipeline orchestrator. Transcription and reply lines are printed to out.
func NewAssistantService(
	stt repositories.SpeechToText,
	llm repositories.LargeLanguageModel,
	tts repositories.TextToSpeech,
	template repositories.ChatTemplate,
	writer repositories.AudioWriter,
	tracker *tracker.Tracker,
	config AssistantConfig,
	out io.Writer,
	logger *zap.Logger,
) (*AssistantService, error) {
	if err := ValidateAssistantConfig(config); err != nil {
		return nil, err
	}
	if stt == nil || llm == nil || tts == nil || template == nil || writer == nil || tracker == nil {
		return nil, errors.New("assistant service requires every collaborator")
	}

	if config.SystemInstruction == "" {
		config.SystemInstruction = DefaultSystemInstruction
		logger.Info("Using default system instruction")
	}
	if config.OutputPattern == "" {
		config.OutputPattern = DefaultOutputPattern
		logger.Info("Using default output pattern", zap.String("outputPattern", config.OutputPattern))
	}
	if config.SampleRate == 0 {
		config.SampleRate = audio.DefaultSampleRate
		logger.Info("Using default sample rate", zap.Int("sampleRate", config.SampleRate))
	}
	if out == nil {
		out = io.Discard
	}

	return &AssistantService{
		stt:      stt,
		llm:      llm,
		tts:      tts,
		template: template,
		writer:   writer,
		tracker:  tracker,
		config:   config,
		out:      out,
		logger:   logger,
	}, nil
}

// Run executes every stage in order and returns the run record. Any stage error aborts the run.
func (s *AssistantService) Run(ctx context.Context, params Params) (*entities.Run, error) {
	pattern := params.OutputPattern
	if pattern == "" {
		pattern = s.config.OutputPattern
	} else if err := validateOutputPattern(pattern); err != nil {
		return nil, domain.WrapStage(domain.ErrWrite, err)
	}

	run := s.tracker.StartRun(ctx, params.AudioPath)
	err := s.execute(ctx, run, params.AudioPath, pattern)
	s.tracker.Finish(ctx, run, err)

	return run, err
}

func (s *AssistantService) execute(ctx context.Context, run *entities.Run, audioPath, pattern string) error {
	var utterance entities.Utterance
	err := s.stage(ctx, run, entities.StageTranscribe, func() (interface{}, error) {
		var err error
		utterance, err = s.Transcribe(ctx, audioPath)
		return map[string]string{"transcript": utterance.Text}, err
	})
	if err != nil {
		return err
	}
	run.Transcript = utterance.Text
	fmt.Fprintln(s.out, utterance.Text)

	var request entities.ConversationRequest
	err = s.stage(ctx, run, entities.StageFormatPrompt, func() (interface{}, error) {
		var err error
		request, err = s.FormatPrompt(s.config.SystemInstruction, utterance)
		return nil, err
	})
	if err != nil {
		return err
	}

	var reply entities.Reply
	err = s.stage(ctx, run, entities.StageRespond, func() (interface{}, error) {
		var err error
		reply, err = s.Respond(ctx, request, s.config.Sampling)
		return map[string]interface{}{"reply": reply.Text, "tokens": reply.TokenCount}, err
	})
	if err != nil {
		return err
	}
	run.Reply = reply.Text
	fmt.Fprintln(s.out, reply.Text)

	var waveforms entities.WaveformSet
	err = s.stage(ctx, run, entities.StageSynthesize, func() (interface{}, error) {
		var err error
		waveforms, err = s.Synthesize(ctx, reply)
		return map[string]int{"waveforms": len(waveforms)}, err
	})
	if err != nil {
		return err
	}

	return s.stage(ctx, run, entities.StageWriteOutputs, func() (interface{}, error) {
		files, err := s.WriteOutputs(waveforms, pattern)
		for _, f := range files {
			if f.Fallback {
				s.tracker.RecordFallback(run, f.Path)
			}
			s.tracker.RecordOutput(run, f.Path)
		}
		return files, err
	})
}

func (s *AssistantService) stage(ctx context.Context, run *entities.Run, name entities.StageName, fn func() (interface{}, error)) error {
	s.tracker.StartStage(ctx, run, name)

	data, err := fn()
	if err != nil {
		s.tracker.FailStage(ctx, run, name, err)
		return err
	}

	s.tracker.CompleteStage(ctx, run, name, data)
	return nil
}

// Transcribe converts the audio file to an utterance
func (s *AssistantService) Transcribe(ctx context.Context, audioPath string) (entities.Utterance, error) {
	if audioPath == "" {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription, errors.New("audio path cannot be empty"))
	}

	utterance, err := s.stt.Transcribe(ctx, audioPath)
	if err != nil {
		return entities.Utterance{}, ensureStage(domain.ErrTranscription, err)
	}
	if utterance.IsEmpty() {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription, errors.New("no speech recognized"))
	}

	return utterance, nil
}

// FormatPrompt renders the system instruction and utterance. It is pure and deterministic.
func (s *AssistantService) FormatPrompt(system string, utterance entities.Utterance) (entities.ConversationRequest, error) {
	request, err := s.template.Format(system, utterance)
	if err != nil {
		return entities.ConversationRequest{}, ensureStage(domain.ErrTemplate, err)
	}
	return request, nil
}

// Respond generates a reply to the request
func (s *AssistantService) Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error) {
	if err := sampling.Validate(); err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, err)
	}

	reply, err := s.llm.Respond(ctx, request, sampling)
	if err != nil {
		return entities.Reply{}, ensureStage(domain.ErrGeneration, err)
	}
	if strings.TrimSpace(reply.Text) == "" {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, errors.New("model returned an empty reply"))
	}

	return reply, nil
}

// Synthesize vocalizes the reply
func (s *AssistantService) Synthesize(ctx context.Context, reply entities.Reply) (entities.WaveformSet, error) {
	if strings.TrimSpace(reply.Text) == "" {
		return nil, domain.WrapStage(domain.ErrSynthesis, errors.New("reply text cannot be empty"))
	}

	waveforms, err := s.tts.Synthesize(ctx, reply)
	if err != nil {
		return nil, ensureStage(domain.ErrSynthesis, err)
	}
	if len(waveforms) == 0 {
		return nil, domain.WrapStage(domain.ErrSynthesis, errors.New("synthesizer returned no audio"))
	}

	return waveforms, nil
}

// WriteOutputs writes waveform i to fmt.Sprintf(pattern, i). Each waveform is first written
// with a leading channel axis; only a shape mismatch triggers a second attempt with the
// waveform as given. The files written before a failure are returned alongside the error.
func (s *AssistantService) WriteOutputs(waveforms entities.WaveformSet, pattern string) ([]OutputFile, error) {
	files := make([]OutputFile, 0, len(waveforms))

	for i, w := range waveforms {
		path := fmt.Sprintf(pattern, i)

		result := s.writer.Write(path, w.Unsqueeze(), s.config.SampleRate)
		switch result.Status {
		case entities.WriteOK:
			files = append(files, OutputFile{Path: path})
			continue
		case entities.WriteNeedsFallback:
			s.logger.Debug("Retrying write with unmodified layout",
				zap.String("path", path),
				zap.Ints("shape", w.Shape),
				zap.Error(result.Err))
		default:
			return files, domain.WrapStage(domain.ErrWrite, fmt.Errorf("failed to write %s: %w", path, result.Err))
		}

		fallback := s.writer.Write(path, w, s.config.SampleRate)
		if fallback.Status != entities.WriteOK {
			return files, domain.WrapStage(domain.ErrWrite, fmt.Errorf("failed to write %s: %w", path, fallback.Err))
		}
		files = append(files, OutputFile{Path: path, Fallback: true})
	}

	return files, nil
}

// ensureStage tags err with sentinel unless an adapter already did
func ensureStage(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return domain.WrapStage(sentinel, err)
}
