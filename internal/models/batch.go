package models

// BatchItem is the outcome of one image in a batch. Exactly one of Result and
// Err is set.
type BatchItem struct {
	Filename string
	Result   *AnalysisResult
	Err      error
}

func (b BatchItem) Succeeded() bool {
	return b.Err == nil && b.Result != nil
}

type BatchResultEntry struct {
	Filename     string  `json:"filename"`
	Result       *string `json:"result,omitempty"`
	Error        string  `json:"error,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
}

type BatchResponse struct {
	Success bool               `json:"success"`
	Results []BatchResultEntry `json:"results"`
}

// NewBatchResponse flattens batch items into the wire format, keeping order.
func NewBatchResponse(items []BatchItem) BatchResponse {
	results := make([]BatchResultEntry, 0, len(items))
	for _, item := range items {
		entry := BatchResultEntry{Filename: item.Filename}
		if item.Succeeded() {
			text := item.Result.Result
			entry.Result = &text
			entry.InputTokens = item.Result.InputTokens
			entry.OutputTokens = item.Result.OutputTokens
		} else {
			entry.Error = errorMessage(item.Err)
		}
		results = append(results, entry)
	}

	return BatchResponse{
		Success: true,
		Results: results,
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "analysis produced no result"
	}
	return err.Error()
}
