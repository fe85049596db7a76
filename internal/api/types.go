package api

import (
	"time"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// AssistResponse is returned by POST /api/v1/assist
type AssistResponse struct {
	Run        *entities.Run `json:"run"`
	OutputURLs []string      `json:"output_urls,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// RunListResponse is returned by GET /api/v1/runs
type RunListResponse struct {
	Runs  []*entities.Run `json:"runs"`
	Count int             `json:"count"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Clients   int       `json:"ws_clients"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
