package inference

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/tidwall/gjson"
)

const maxErrorBodyLength = 2048

// parseCompletion extracts the answer and token usage from a 200 response.
// Usage counters are optional; the first choice's message content is not.
func parseCompletion(body []byte) (*models.AnalysisResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, &models.UpstreamProtocolError{Reason: "response body is not valid JSON"}
	}

	choices := gjson.GetBytes(body, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return nil, &models.UpstreamProtocolError{Reason: "response contains no choices"}
	}

	content := choices.Get("0.message.content")
	if !content.Exists() {
		return nil, &models.UpstreamProtocolError{Reason: "first choice has no message content"}
	}

	usage := gjson.GetBytes(body, "usage")
	return &models.AnalysisResult{
		Result:       contentText(content),
		InputTokens:  tokenCount(usage.Get("prompt_tokens")),
		OutputTokens: tokenCount(usage.Get("completion_tokens")),
	}, nil
}

// tokenCount treats absent and negative counters as zero.
func tokenCount(v gjson.Result) int {
	return max(int(v.Int()), 0)
}

// contentText returns string content as-is and structured content as raw JSON.
func contentText(content gjson.Result) string {
	switch content.Type {
	case gjson.String:
		return content.String()
	case gjson.Null:
		return ""
	default:
		return content.Raw
	}
}

// extractErrorMessage picks the most specific human-readable message from a
// failed response: error.message, then the error field, then the raw body.
func extractErrorMessage(statusCode int, body []byte) string {
	if gjson.ValidBytes(body) {
		errField := gjson.GetBytes(body, "error")
		if msg := errField.Get("message"); msg.Exists() && msg.String() != "" {
			return msg.String()
		}
		switch errField.Type {
		case gjson.String:
			if s := strings.TrimSpace(errField.String()); s != "" {
				return s
			}
		case gjson.JSON, gjson.Number, gjson.True, gjson.False:
			return errField.Raw
		}
	}

	if raw := strings.TrimSpace(string(body)); raw != "" {
		return truncate(raw, maxErrorBodyLength)
	}

	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "") + "..."
}
