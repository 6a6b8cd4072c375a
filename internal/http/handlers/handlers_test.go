package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"renderless/internal/imaging"
	"renderless/internal/infra"
)

func newTestApp() *App {
	cfg := &infra.Config{
		ImageBackend:      infra.BackendOpenAI,
		MaskFeatherRadius: 2,
	}
	return NewApp(cfg, zerolog.New(io.Discard), imaging.NewPool(1), nil, nil, nil, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
	if body["version"] == "" {
		t.Error("version field is empty")
	}
}

func TestPromptPreviewIsPure(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.PromptPreview, `{"prompt":"add a pool","style":"modern","renderMode":"pretty_render"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body promptPreviewResponse
	decodeBody(t, rec, &body)
	if !strings.Contains(body.PromptPreview, "add a pool") {
		t.Errorf("preview does not contain user prompt: %q", body.PromptPreview)
	}
	if !strings.Contains(body.PromptPreview, "Clean minimalist aesthetic") {
		t.Errorf("preview does not include the style fragment: %q", body.PromptPreview)
	}
	if body.StyleLabel != "Modern" {
		t.Errorf("styleLabel = %q, want Modern", body.StyleLabel)
	}
}

func TestEditImageRequiresPrompt(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.EditImage, `{"imageBase64":"aGVsbG8=","prompt":"  "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if !strings.Contains(body["detail"], "prompt") {
		t.Errorf("detail = %q, want mention of prompt", body["detail"])
	}
}

func TestRenderImageRejectsBadBase64(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.RenderImage, `{"imageBase64":"%%%not-base64%%%"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRenderImageRejectsMissingImage(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.RenderImage, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateReplicateRejectsOutOfRangeStrength(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.GenerateReplicate, `{"prompt":"a house","imageBase64":"aGVsbG8=","strength":1.5}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDecodeImageStripsDataURLPrefix(t *testing.T) {
	data, err := decodeImage("data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("decodeImage: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("decoded = %q, want hello", data)
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := decodeImage("!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestChatRequiresUserInput(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.Chat, `{"messages":[]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRedPenExecuteRequiresConfirmedPrompt(t *testing.T) {
	app := newTestApp()
	rec := postJSON(t, app.RedPenExecute, `{"imageBase64":"aGVsbG8="}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
