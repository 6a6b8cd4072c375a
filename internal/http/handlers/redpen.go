package handlers

import (
	"net/http"
	"strings"

	"renderless/internal/imaging"
)

type redpenAnalyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type redpenBuildPromptRequest struct {
	ImageBase64 string   `json:"imageBase64"`
	Analysis    string   `json:"analysis"`
	Questions   []string `json:"questions"`
	Answers     []string `json:"answers"`
}

// RedPenAnalyze reads the hand-drawn annotations on an image and returns
// clarifying questions for the user.
func (a *App) RedPenAnalyze(w http.ResponseWriter, r *http.Request) {
	var req redpenAnalyzeRequest
	if !a.decode(w, r, &req) {
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
	analysis, err := a.RedPen.Analyze(r.Context(), asset)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, analysis)
}

// RedPenBuildPrompt folds the user's answers into a final edit instruction.
func (a *App) RedPenBuildPrompt(w http.ResponseWriter, r *http.Request) {
	var req redpenBuildPromptRequest
	if !a.decode(w, r, &req) {
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
	final, err := a.RedPen.BuildPrompt(r.Context(), asset, req.Analysis, req.Questions, req.Answers)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, final)
}

type redpenExecuteRequest struct {
	ImageBase64     string `json:"imageBase64"`
	ConfirmedPrompt string `json:"confirmedPrompt"`
}

// RedPenExecute runs the two-stage clean-render-then-edit pipeline with the
// prompt the user confirmed.
func (a *App) RedPenExecute(w http.ResponseWriter, r *http.Request) {
	var req redpenExecuteRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ConfirmedPrompt) == "" {
		a.error(w, http.StatusBadRequest, "confirmedPrompt is required")
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
	result, err := a.RedPen.Execute(r.Context(), asset, req.ConfirmedPrompt)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}
