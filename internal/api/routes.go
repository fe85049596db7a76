package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/auth"
	"github.com/rairaimanish/kidsGPT/internal/metrics"
	"github.com/rairaimanish/kidsGPT/internal/websocket"
	"github.com/rairaimanish/kidsGPT/usecase"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	uploadFileName   = "input.wav"
)

// Assistant runs the voice pipeline on one audio file
type Assistant interface {
	Run(ctx context.Context, params usecase.Params) (*entities.Run, error)
}

// Config holds the HTTP API settings
type Config struct {
	// OutputDir receives one directory per request with the upload and the synthesized files
	OutputDir      string
	MaxUploadBytes int64
}

// Handler serves the HTTP API
type Handler struct {
	assistant Assistant
	runs      repositories.RunRepository
	hub       *websocket.Hub
	metrics   *metrics.Metrics
	config    Config
	logger    *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(
	assistant Assistant,
	runs repositories.RunRepository,
	hub *websocket.Hub,
	m *metrics.Metrics,
	config Config,
	logger *zap.Logger,
) (*Handler, error) {
	if config.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	outputDir, err := filepath.Abs(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	config.OutputDir = outputDir

	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 25 << 20
		logger.Info("Using default upload limit", zap.Int64("bytes", config.MaxUploadBytes))
	}

	return &Handler{
		assistant: assistant,
		runs:      runs,
		hub:       hub,
		metrics:   m,
		config:    config,
		logger:    logger,
	}, nil
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler, issuer *auth.Issuer, gatherer prometheus.Gatherer) {
	if h.metrics != nil {
		e.Use(h.countRequests)
	}

	// Health check
	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/assist", h.assist, issuer.Middleware(auth.RoleOperator))
	v1.GET("/runs", h.listRuns, issuer.Middleware())
	v1.GET("/runs/:id", h.getRun, issuer.Middleware())
	v1.GET("/runs/:id/outputs/:index", h.getOutput, issuer.Middleware())

	// WebSocket endpoint, token in the query string
	e.GET("/ws", func(c echo.Context) error {
		return h.hub.ServeWS(c, auth.ClaimsFrom(c).Subject)
	}, issuer.Middleware())
}

func (h *Handler) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		status := c.Response().Status
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		return err
	}
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "kidsgpt",
		Clients:   h.hub.ClientCount(),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) assist(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "Multipart field \"audio\" with a WAV file is required",
		})
	}
	if file.Size > h.config.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "audio_too_large",
			Message: fmt.Sprintf("Audio must not exceed %d bytes", h.config.MaxUploadBytes),
		})
	}

	dir := filepath.Join(h.config.OutputDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logger.Error("Failed to create request directory", zap.String("dir", dir), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage_failed"})
	}

	audioPath := filepath.Join(dir, uploadFileName)
	if err := saveUpload(file, audioPath); err != nil {
		h.logger.Error("Failed to store upload", zap.String("path", audioPath), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage_failed"})
	}

	pattern := filepath.Join(strings.ReplaceAll(dir, "%", "%%"), usecase.DefaultOutputPattern)
	run, err := h.assistant.Run(c.Request().Context(), usecase.Params{
		AudioPath:     audioPath,
		OutputPattern: pattern,
	})
	if err != nil {
		h.logger.Warn("Assist request failed", zap.Error(err))
		return c.JSON(statusFor(err), AssistResponse{Run: run, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, AssistResponse{Run: run, OutputURLs: outputURLs(run)})
}

func outputURLs(run *entities.Run) []string {
	urls := make([]string, len(run.Outputs))
	for i := range run.Outputs {
		urls[i] = fmt.Sprintf("/api/v1/runs/%s/outputs/%d", run.ID, i)
	}
	return urls
}

func (h *Handler) listRuns(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.runs.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage_failed"})
	}
	return c.JSON(http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

func (h *Handler) getRun(c echo.Context) error {
	run, err := h.runs.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.runError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) getOutput(c echo.Context) error {
	run, err := h.runs.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.runError(c, err)
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(run.Outputs) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "output_not_found"})
	}

	path, err := filepath.Abs(run.Outputs[index])
	if err != nil || !within(h.config.OutputDir, path) {
		// Runs started from the CLI write elsewhere and are not served
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "output_not_found"})
	}
	return c.File(path)
}

func (h *Handler) runError(c echo.Context, err error) error {
	if errors.Is(err, repositories.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run_not_found"})
	}
	h.logger.Error("Failed to load run", zap.String("runID", c.Param("id")), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage_failed"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTranscription),
		errors.Is(err, domain.ErrGeneration),
		errors.Is(err, domain.ErrSynthesis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func saveUpload(file *multipart.FileHeader, path string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
