package handlers

import (
	"net/http"

	"renderless/internal/chat"
	"renderless/internal/render"
)

type chatRequest struct {
	Messages        []chat.Message     `json:"messages"`
	GatheredInfo    *chat.GatheredInfo `json:"gathered_info,omitempty"`
	UserInput       string             `json:"user_input"`
	ImageAnalysis   string             `json:"image_analysis,omitempty"`
	GenerationCount int                `json:"generation_count"`
	RenderMode      string             `json:"render_mode"`
}

// Chat advances the requirements-gathering conversation by one turn.
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.UserInput == "" {
		a.error(w, http.StatusBadRequest, "user_input is required")
		return
	}
	turn := chat.Turn{
		Messages:        req.Messages,
		UserInput:       req.UserInput,
		ImageAnalysis:   req.ImageAnalysis,
		GenerationCount: req.GenerationCount,
		Mode:            render.ParseMode(req.RenderMode),
	}
	if req.GatheredInfo != nil {
		turn.Gathered = *req.GatheredInfo
	}
	reply, err := a.Negotiator.Respond(r.Context(), turn)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}
