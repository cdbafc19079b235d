package models

// AnalysisRequest is one upstream round trip. APIKey may be empty, in which
// case the client falls back to its configured default.
type AnalysisRequest struct {
	Image  []byte
	Format ImageFormat
	Prompt string
	Model  string
	APIKey string
}

type AnalysisResult struct {
	Result       string `json:"result"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// AnalysisOptions are the caller-supplied knobs shared by every item of a call.
type AnalysisOptions struct {
	Prompt string
	Model  string
	APIKey string
}

// StagedFile is an upload written to a transient location. It is owned by the
// inbound call that created it.
type StagedFile struct {
	Filename string
	Path     string
}
