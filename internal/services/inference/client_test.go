package inference

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upstream struct {
	server *httptest.Server
	calls  atomic.Int32

	lastAuth atomic.Value
	lastBody atomic.Value
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.lastAuth.Store(r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		u.lastBody.Store(raw)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestClient(endpoint, apiKey string) *Client {
	return NewClient(config.VisionConfig{
		Endpoint:     endpoint,
		APIKey:       apiKey,
		SystemPrompt: config.DefaultSystemPrompt,
		Timeout:      2 * time.Second,
	}, zap.NewNop())
}

func testRequest() *models.AnalysisRequest {
	return &models.AnalysisRequest{
		Image:  []byte("fake-image-bytes"),
		Format: models.FormatJPEG,
		Prompt: "What is in the picture?",
		Model:  "qwen-vl-max-latest",
	}
}

const successBody = `{
	"choices": [{"message": {"role": "assistant", "content": "A cat on a sofa."}}],
	"usage": {"prompt_tokens": 1200, "completion_tokens": 15, "total_tokens": 1215}
}`

func TestAnalyzeSuccess(t *testing.T) {
	up := newUpstream(t, http.StatusOK, successBody)
	client := newTestClient(up.server.URL, "sk-default")

	result, err := client.Analyze(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa.", result.Result)
	assert.Equal(t, 1200, result.InputTokens)
	assert.Equal(t, 15, result.OutputTokens)
	assert.EqualValues(t, 1, up.calls.Load())
	assert.Equal(t, "Bearer sk-default", up.lastAuth.Load())
}

func TestAnalyzeRequestShape(t *testing.T) {
	up := newUpstream(t, http.StatusOK, successBody)
	client := newTestClient(up.server.URL, "sk-default")

	_, err := client.Analyze(context.Background(), testRequest())
	require.NoError(t, err)

	var payload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(up.lastBody.Load().([]byte), &payload))

	assert.Equal(t, "qwen-vl-max-latest", payload.Model)
	require.Len(t, payload.Messages, 2)

	system := payload.Messages[0]
	assert.Equal(t, "system", system.Role)
	require.Len(t, system.Content, 1)
	assert.Equal(t, "text", system.Content[0].Type)
	assert.Equal(t, config.DefaultSystemPrompt, system.Content[0].Text)

	user := payload.Messages[1]
	assert.Equal(t, "user", user.Role)
	require.Len(t, user.Content, 2)
	assert.Equal(t, "image_url", user.Content[0].Type)
	assert.Equal(t, "data:image/jpeg;base64,ZmFrZS1pbWFnZS1ieXRlcw==", user.Content[0].ImageURL.URL)
	assert.Equal(t, "text", user.Content[1].Type)
	assert.Equal(t, "What is in the picture?", user.Content[1].Text)
}

func TestAnalyzeRequestKeyOverridesDefault(t *testing.T) {
	up := newUpstream(t, http.StatusOK, successBody)
	client := newTestClient(up.server.URL, "sk-default")

	req := testRequest()
	req.APIKey = "sk-caller"
	_, err := client.Analyze(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-caller", up.lastAuth.Load())
}

func TestAnalyzeWithoutCredentialNeverCallsUpstream(t *testing.T) {
	up := newUpstream(t, http.StatusOK, successBody)
	client := newTestClient(up.server.URL, "")

	result, err := client.Analyze(context.Background(), testRequest())

	assert.Nil(t, result)
	var configErr *models.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
	assert.EqualValues(t, 0, up.calls.Load())
}

func TestAnalyzeMissingUsageDefaultsToZero(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	client := newTestClient(up.server.URL, "sk")

	result, err := client.Analyze(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Result)
	assert.Zero(t, result.InputTokens)
	assert.Zero(t, result.OutputTokens)
}

func TestAnalyzeNegativeUsageClampsToZero(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":-5,"completion_tokens":3}}`)
	client := newTestClient(up.server.URL, "sk")

	result, err := client.Analyze(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Result)
	assert.Zero(t, result.InputTokens)
	assert.Equal(t, 3, result.OutputTokens)
}

func TestAnalyzeProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing choices", `{"usage":{"prompt_tokens":3}}`},
		{"empty choices", `{"choices":[]}`},
		{"missing content", `{"choices":[{"message":{"role":"assistant"}}]}`},
		{"not json", `<html>gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, http.StatusOK, tt.body)
			client := newTestClient(up.server.URL, "sk")

			result, err := client.Analyze(context.Background(), testRequest())

			assert.Nil(t, result)
			var protocolErr *models.UpstreamProtocolError
			assert.ErrorAs(t, err, &protocolErr)
		})
	}
}

func TestAnalyzeUpstreamErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "error message",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key provided.","type":"invalid_request_error"}}`,
			want:   "Incorrect API key provided.",
		},
		{
			name:   "error string",
			status: http.StatusBadRequest,
			body:   `{"error":"model not found"}`,
			want:   "model not found",
		},
		{
			name:   "error object without message",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"InvalidParameter"}}`,
			want:   `{"code":"InvalidParameter"}`,
		},
		{
			name:   "unparseable body",
			status: http.StatusBadGateway,
			body:   "upstream connect error",
			want:   "upstream connect error",
		},
		{
			name:   "json without error field",
			status: http.StatusTooManyRequests,
			body:   `{"code":"Throttling","message":"Requests rate limit exceeded"}`,
			want:   `{"code":"Throttling","message":"Requests rate limit exceeded"}`,
		},
		{
			name:   "empty body",
			status: http.StatusServiceUnavailable,
			body:   "",
			want:   "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, tt.status, tt.body)
			client := newTestClient(up.server.URL, "sk-secret")

			result, err := client.Analyze(context.Background(), testRequest())

			assert.Nil(t, result)
			var upstreamErr *models.UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
			assert.Equal(t, tt.status, upstreamErr.StatusCode)
			assert.Equal(t, tt.want, upstreamErr.Message)
			assert.NotContains(t, err.Error(), "sk-secret")
			assert.EqualValues(t, 1, up.calls.Load())
		})
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	up := newUpstream(t, http.StatusOK, successBody)
	endpoint := up.server.URL
	up.server.Close()

	client := newTestClient(endpoint, "sk")
	result, err := client.Analyze(context.Background(), testRequest())

	assert.Nil(t, result)
	var transportErr *models.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestAnalyzeTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client := NewClient(config.VisionConfig{
		Endpoint: server.URL,
		APIKey:   "sk",
		Timeout:  50 * time.Millisecond,
	}, zap.NewNop())

	_, err := client.Analyze(context.Background(), testRequest())

	var transportErr *models.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout())
	assert.Equal(t, http.StatusGatewayTimeout, models.HTTPStatus(err))
}

func TestExtractErrorMessageTruncatesLargeBodies(t *testing.T) {
	body := strings.Repeat("x", maxErrorBodyLength*2)

	msg := extractErrorMessage(http.StatusInternalServerError, []byte(body))

	assert.Len(t, msg, maxErrorBodyLength+len("..."))
}
