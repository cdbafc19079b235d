package inference

type Message struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

func newChatRequest(model, systemPrompt, imageURL, prompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{
				Role: "system",
				Content: []any{
					TextContent{Type: "text", Text: systemPrompt},
				},
			},
			{
				Role: "user",
				Content: []any{
					ImageContent{Type: "image_url", ImageURL: ImageURL{URL: imageURL}},
					TextContent{Type: "text", Text: prompt},
				},
			},
		},
	}
}
