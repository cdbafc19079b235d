package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type AnalyzeResponse struct {
	Success      bool   `json:"success"`
	Result       string `json:"result"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func NewAnalyzeResponse(result *AnalysisResult) AnalyzeResponse {
	return AnalyzeResponse{
		Success:      true,
		Result:       result.Result,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
	}
}

type ModelUsage struct {
	Model        string `json:"model"`
	Requests     int64  `json:"requests"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}
