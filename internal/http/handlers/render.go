package handlers

import (
	"net/http"
	"strings"

	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/providers/openai"
	"renderless/internal/render"
)

type renderRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Quality     string `json:"quality"`
	Style       string `json:"style"`
}

type editRequest struct {
	ImageBase64     string   `json:"imageBase64"`
	MaskBase64      string   `json:"maskBase64,omitempty"`
	Prompt          string   `json:"prompt"`
	Quality         string   `json:"quality"`
	Style           string   `json:"style"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
	RenderMode      string   `json:"renderMode"`
}

type renderResponse struct {
	ImageURL      string `json:"imageUrl"`
	ImageBase64   string `json:"imageBase64"`
	PromptPreview string `json:"promptPreview,omitempty"`
}

type promptPreviewRequest struct {
	Prompt     string `json:"prompt"`
	Style      string `json:"style"`
	RenderMode string `json:"renderMode"`
}

type promptPreviewResponse struct {
	PromptPreview string `json:"promptPreview"`
	StyleLabel    string `json:"styleLabel"`
}

// RenderImage converts a photo into an architectural marketing render. The
// configured backend decides which provider does the work.
func (a *App) RenderImage(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !a.decode(w, r, &req) {
		return
	}
	data, ok := a.requireImage(w, req.ImageBase64)
	if !ok {
		return
	}
	quality := render.ParseQuality(req.Quality)
	style := render.ParseStyle(req.Style)

	if a.Cfg.ImageBackend == infra.BackendReplicate {
		asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideDiffusion, imaging.ColorRGB)
		if err != nil {
			a.serviceError(w, r, err)
			return
		}
		result, err := a.Replicate.Kontext(r.Context(), render.CinematicRenderPrompt, asset)
		if err != nil {
			a.serviceError(w, r, err)
			return
		}
		a.json(w, http.StatusOK, renderResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
		return
	}

	asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideEdit, imaging.ColorRGBA)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	result, err := a.OpenAI.Render(r.Context(), asset, quality, style)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

// EditImage applies a natural-language change to an existing image, with an
// optional mask restricting the edit region and optional style references.
func (a *App) EditImage(w http.ResponseWriter, r *http.Request) {
	var req editRequest
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

	if a.Cfg.ImageBackend == infra.BackendReplicate {
		a.editWithReplicate(w, r, req, data)
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
	refs, ok := a.prepareReferences(w, r, req.ReferenceImages)
	if !ok {
		return
	}

	result, err := a.OpenAI.Edit(r.Context(), openai.EditRequest{
		Prompt:     req.Prompt,
		Image:      asset,
		Mask:       mask,
		References: refs,
		Quality:    render.ParseQuality(req.Quality),
		Style:      render.ParseStyle(req.Style),
		Mode:       render.ParseMode(req.RenderMode),
	})
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

func (a *App) editWithReplicate(w http.ResponseWriter, r *http.Request, req editRequest, data []byte) {
	asset, err := a.Pool.Prepare(r.Context(), data, imaging.MaxSideDiffusion, imaging.ColorRGB)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	mask, ok := a.prepareMask(w, r, req.MaskBase64, asset)
	if !ok {
		return
	}
	result, err := a.Replicate.KontextEdit(r.Context(), req.Prompt, asset, mask)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, renderResponse{ImageURL: result.URL, ImageBase64: encodeResult(result.Data)})
}

// PromptPreview exposes the prompt builder without making a remote call.
func (a *App) PromptPreview(w http.ResponseWriter, r *http.Request) {
	var req promptPreviewRequest
	if !a.decode(w, r, &req) {
		return
	}
	style := render.ParseStyle(req.Style)
	preview := render.BuildEditPrompt(req.Prompt, style, 0, render.ParseMode(req.RenderMode))
	a.json(w, http.StatusOK, promptPreviewResponse{PromptPreview: preview, StyleLabel: style.Label()})
}

func (a *App) prepareMask(w http.ResponseWriter, r *http.Request, maskBase64 string, target *imaging.Asset) (*imaging.Asset, bool) {
	if strings.TrimSpace(maskBase64) == "" {
		return nil, true
	}
	raw, err := decodeImage(maskBase64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "maskBase64 is not valid base64")
		return nil, false
	}
	mask, err := a.Pool.PrepareMask(r.Context(), raw, target.Width, target.Height, a.Cfg.MaskFeatherRadius)
	if err != nil {
		a.serviceError(w, r, err)
		return nil, false
	}
	return mask, true
}

func (a *App) prepareReferences(w http.ResponseWriter, r *http.Request, encoded []string) ([]*imaging.Asset, bool) {
	if len(encoded) > render.MaxReferenceImages {
		encoded = encoded[:render.MaxReferenceImages]
	}
	var refs []*imaging.Asset
	for _, ref := range encoded {
		raw, err := decodeImage(ref)
		if err != nil {
			a.error(w, http.StatusBadRequest, "reference image is not valid base64")
			return nil, false
		}
		asset, err := a.Pool.Prepare(r.Context(), raw, imaging.MaxSideEdit, imaging.ColorRGBA)
		if err != nil {
			a.serviceError(w, r, err)
			return nil, false
		}
		refs = append(refs, asset)
	}
	return refs, true
}
