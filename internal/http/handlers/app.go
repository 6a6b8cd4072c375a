// Package handlers holds the thin JSON layer over the render, chat, and
// red-pen services. Handlers decode, delegate, and map domain errors to HTTP
// statuses; all real work happens in the service packages.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"renderless/internal/chat"
	"renderless/internal/domain"
	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/providers/openai"
	"renderless/internal/providers/replicate"
	"renderless/internal/redpen"
)

// App is the handler container with all injected dependencies.
type App struct {
	Cfg        *infra.Config
	Log        infra.Logger
	Pool       *imaging.Pool
	OpenAI     *openai.Client
	Replicate  *replicate.Client
	Negotiator *chat.Negotiator
	RedPen     *redpen.Interpreter
}

// NewApp wires the handler container.
func NewApp(cfg *infra.Config, log infra.Logger, pool *imaging.Pool, oa *openai.Client, rep *replicate.Client, neg *chat.Negotiator, rp *redpen.Interpreter) *App {
	return &App{Cfg: cfg, Log: log, Pool: pool, OpenAI: oa, Replicate: rep, Negotiator: neg, RedPen: rp}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, detail string) {
	a.json(w, code, map[string]string{"detail": detail})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// serviceError maps the domain error taxonomy onto HTTP statuses. Auth
// failures deliberately hide the provider message; everything else keeps it
// for diagnosis.
func (a *App) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	a.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	switch {
	case errors.Is(err, domain.ErrDecode):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAuth):
		a.error(w, http.StatusInternalServerError, "image provider not configured")
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrConnection), errors.Is(err, domain.ErrDownload):
		a.error(w, http.StatusBadGateway, err.Error())
	default:
		a.error(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeImage accepts plain base64 or a full data URL.
func decodeImage(encoded string) ([]byte, error) {
	trimmed := strings.TrimSpace(encoded)
	if idx := strings.Index(trimmed, ";base64,"); idx >= 0 && strings.HasPrefix(trimmed, "data:") {
		trimmed = trimmed[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, domain.ErrDecode
	}
	return data, nil
}

func (a *App) requireImage(w http.ResponseWriter, encoded string) ([]byte, bool) {
	if strings.TrimSpace(encoded) == "" {
		a.error(w, http.StatusBadRequest, "imageBase64 is required")
		return nil, false
	}
	data, err := decodeImage(encoded)
	if err != nil {
		a.error(w, http.StatusBadRequest, "imageBase64 is not valid base64")
		return nil, false
	}
	return data, true
}

func encodeResult(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
