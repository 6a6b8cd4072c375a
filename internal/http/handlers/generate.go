package handlers

import (
	"net/http"
	"strings"

	"renderless/internal/imaging"
	"renderless/internal/providers/openai"
	"renderless/internal/render"
)

type generateRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"imageBase64"`
	MaskBase64  string `json:"maskBase64,omitempty"`
	Style       string `json:"style,omitempty"`
}

type generateResponse struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
}

type replicateGenerateRequest struct {
	Prompt      string  `json:"prompt"`
	ImageBase64 string  `json:"imageBase64"`
	Strength    float64 `json:"strength"`
	Style       string  `json:"style"`
}

type styleTransferRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"imageBase64"`
}

type analyzeRequest struct {
	ImageBase64 string `json:"image_base64"`
	Prompt      string `json:"prompt"`
}

// Generate edits or inpaints an image with the primary backend. A mask limits
// the change to the masked region.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	data, ok := a.requireImage(w, req.ImageBase64)
	if !ok {
		return
	}
	asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideEdit, imaging.ColorRGBA)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	mask, ok := a.prepareMask(w, r, req.MaskBase64, asset)
	if !ok {
		return
	}
	result, err := a.OpenAI.Edit(r.Context(), openai.EditRequest{
		Prompt:  req.Prompt,
		Image:   asset,
		Mask:    mask,
		Quality: render.QualityStandard,
		Style:   render.ParseStyle(req.Style),
		Mode:    render.ModePlanToRender,
	})
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

// GenerateReplicate runs SDXL img2img with the caller-controlled strength.
func (a *App) GenerateReplicate(w http.ResponseWriter, r *http.Request) {
	req := replicateGenerateRequest{Strength: 0.75, Style: "architectural"}
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if req.Strength < 0 || req.Strength > 1 {
		a.error(w, http.StatusBadRequest, "strength must be between 0 and 1")
		return
	}
	data, ok := a.requireImage(w, req.ImageBase64)
	if !ok {
		return
	}
	asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideDiffusion, imaging.ColorRGB)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	result, err := a.Replicate.Generate(r.Context(), req.Prompt, asset, req.Strength, req.Style)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

// StyleTransfer regenerates the image along its own edges for 1:1 structural
// fidelity.
func (a *App) StyleTransfer(w http.ResponseWriter, r *http.Request) {
	var req styleTransferRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	data, ok := a.requireImage(w, req.ImageBase64)
	if !ok {
		return
	}
	asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideDiffusion, imaging.ColorRGB)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	result, err := a.Replicate.StyleTransfer(r.Context(), req.Prompt, asset)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

// AnalyzeImage describes an image with the vision model.
func (a *App) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequest{Prompt: "Describe this architectural image"}
	if !a.decode(w, r, &req) {
		return
	}
	data, ok := a.requireImage(w, req.ImageBase64)
	if !ok {
		return
	}
	analysis, err := a.OpenAI.Analyze(r.Context(), req.Prompt, data)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"analysis": analysis})
}
