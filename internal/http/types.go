package http

import (
	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
	// NoteID optionally correlates log lines for one note.
	NoteID string `json:"note_id,omitempty"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze.
type AnalyzeResponse = extraction.Analysis

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// FieldsResponse is the response body for GET /api/v1/fields.
type FieldsResponse struct {
	Fields []extraction.FieldSpec `json:"fields"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
	Counts   StatusCounts      `json:"counts"`
}

// StatusCounts reports catalog and anchor index sizes.
type StatusCounts struct {
	Fields map[string]int `json:"fields"`
	// Anchors is nil when the semantic matcher is disabled.
	Anchors map[string]int `json:"anchors,omitempty"`
}
