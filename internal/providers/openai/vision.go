package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"renderless/internal/domain"
)

// Message is one turn of a chat/completions conversation. When Image is set
// the content is sent as a text part plus an inline image part.
type Message struct {
	Role  string
	Text  string
	Image []byte
}

// ChatOptions tunes a single completion call.
type ChatOptions struct {
	JSON        bool
	MaxTokens   int
	Temperature float64
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze runs one vision call over the given PNG and returns the raw model
// reply. Used for image description and annotation understanding.
func (c *Client) Analyze(ctx context.Context, prompt string, image []byte) (string, error) {
	return c.Complete(ctx, []Message{{Role: "user", Text: prompt, Image: image}}, ChatOptions{MaxTokens: 500})
}

// Complete issues a single chat/completions call and returns the first
// choice's content. Completion calls are never retried; a remote failure is
// surfaced directly so the caller decides how to degrade.
func (c *Client) Complete(ctx context.Context, msgs []Message, opts ChatOptions) (string, error) {
	if !c.HasCredentials() {
		return "", missingKeyError()
	}
	payload := chatRequest{
		Model:       c.visionModel,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		payload.ResponseFormat = &chatFormat{Type: "json_object"}
	}
	for _, msg := range msgs {
		payload.Messages = append(payload.Messages, encodeMessage(msg))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return "", classifyStatus(resp, raw)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "decode response: " + err.Error()}
	}
	if len(decoded.Choices) == 0 {
		return "", errEmptyCompletion
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyCompletion
	}
	return content, nil
}

func encodeMessage(msg Message) chatMessage {
	if len(msg.Image) == 0 {
		return chatMessage{Role: msg.Role, Content: msg.Text}
	}
	parts := []chatPart{
		{Type: "text", Text: msg.Text},
		{Type: "image_url", ImageURL: &chatImageURL{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(msg.Image),
		}},
	}
	return chatMessage{Role: msg.Role, Content: parts}
}
