package models

import "time"

// AnalysisEvent is published once per analyzed image. It never carries image
// bytes or the caller's credential.
type AnalysisEvent struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Model        string    `json:"model"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	OutcomeSuccess            = "success"
	OutcomeConfigurationError = "configuration_error"
	OutcomeValidationError    = "validation_error"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeTransportError     = "transport_error"
	OutcomeProtocolError      = "protocol_error"
	OutcomeInternalError      = "internal_error"
)
