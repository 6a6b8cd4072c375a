package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"renderless/internal/domain"
)

func completionResponse(content string) string {
	out := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, _ := json.Marshal(out)
	return string(raw)
}

func TestCompleteJSONMode(t *testing.T) {
	var captured chatRequest
	client := NewClient(Options{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("path = %q", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonResponse(http.StatusOK, completionResponse(`{"message":"ok"}`)), nil
		})},
	})

	out, err := client.Complete(context.Background(), []Message{
		{Role: "system", Text: "reply with JSON"},
		{Role: "user", Text: "render"},
	}, ChatOptions{JSON: true, Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out != `{"message":"ok"}` {
		t.Fatalf("out = %q", out)
	}
	if captured.Model != DefaultVisionModel {
		t.Fatalf("model = %q, want %q", captured.Model, DefaultVisionModel)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %+v, want json_object", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
}

func TestAnalyzeAttachesImagePart(t *testing.T) {
	var body []byte
	client := NewClient(Options{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body, _ = io.ReadAll(r.Body)
			return jsonResponse(http.StatusOK, completionResponse("a building facade")), nil
		})},
	})

	out, err := client.Analyze(context.Background(), "describe this image", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if out != "a building facade" {
		t.Fatalf("out = %q", out)
	}
	if !strings.Contains(string(body), "data:image/png;base64,") {
		t.Fatal("request body missing inline image part")
	}
	if !strings.Contains(string(body), `"max_tokens":500`) {
		t.Fatalf("request body missing max_tokens: %s", body)
	}
}

func TestCompleteSurfacesAuthError(t *testing.T) {
	client := NewClient(Options{
		APIKey: "sk-bad",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`), nil
		})},
	})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}}, ChatOptions{})
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("err = %v, want auth", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := NewClient(Options{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"choices":[]}`), nil
		})},
	})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Text: "hi"}}, ChatOptions{})
	if !errors.Is(err, errEmptyCompletion) {
		t.Fatalf("err = %v, want empty completion", err)
	}
}
