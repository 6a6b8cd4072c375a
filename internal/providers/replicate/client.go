// Package replicate wraps the Replicate Predictions API for the diffusion
// pipelines: SDXL img2img, edge-conditioned style transfer, and the Flux
// Kontext edit family.
package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"renderless/internal/domain"
	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/render"
	"renderless/internal/retry"
)

const providerName = "replicate"

const (
	defaultBaseURL  = "https://api.replicate.com/v1"
	requestTimeout  = 120 * time.Second
	downloadTimeout = 30 * time.Second

	pollInterval    = 2 * time.Second
	maxPollAttempts = 90
)

// Model identifiers per pipeline. SDXL and the ControlNet model are pinned to
// a version hash; the Flux models are official models addressed by name.
const (
	modelSDXL        = "stability-ai/sdxl:7762fd07cf82c948538e41f63f77d685e02b063e37e496e96eefd46c929f9bdc"
	modelControlNet  = "xlabs-ai/flux-dev-controlnet:f2c31c31d81278a91b2447a304dae654c64a5d5a70340fba811bb1cbd41019a2"
	modelFluxFill    = "black-forest-labs/flux-fill-pro"
	modelFluxKontext = "black-forest-labs/flux-kontext-pro"
)

// styleSuffixes enrich img2img prompts per requested style. Unknown styles
// fall back to the architectural fragment.
var styleSuffixes = map[string]string{
	"architectural":  "professional architectural 3D render, clean lines, photorealistic materials, high quality visualization",
	"photorealistic": "photorealistic, high quality, 8k resolution, sharp details",
	"concept":        "architectural concept art, artistic visualization, professional rendering",
	"technical":      "technical architectural drawing, precise details, clean lines",
}

const negativePrompt = "blurry, low quality, distorted, ugly, bad proportions, unrealistic"

// Options configures the Replicate client.
type Options struct {
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Retry      retry.Options
}

// Client performs HTTP calls against the Replicate Predictions API.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	retry      retry.Options
	pollWait   func(context.Context) error
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type apiError struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		retry:      opts.Retry,
		pollWait:   waitPoll,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// Generate runs SDXL img2img over the prepared image. strength controls how
// far the output may drift from the input (0 = identical, 1 = regenerate).
func (c *Client) Generate(ctx context.Context, prompt string, image *imaging.Asset, strength float64, style string) (*render.Result, error) {
	suffix, ok := styleSuffixes[style]
	if !ok {
		suffix = styleSuffixes["architectural"]
	}
	c.logger.Info().
		Str("style", style).
		Float64("strength", strength).
		Msg("replicate: sdxl img2img")
	return c.run(ctx, modelSDXL, map[string]any{
		"prompt":              fmt.Sprintf("%s. %s", prompt, suffix),
		"image":               dataURI(image),
		"prompt_strength":     strength,
		"num_outputs":         1,
		"scheduler":           "K_EULER",
		"num_inference_steps": 30,
		"guidance_scale":      7.5,
		"negative_prompt":     negativePrompt,
		"refine":              "expert_ensemble_refiner",
		"refine_steps":        10,
	})
}

// StyleTransfer regenerates the image following its canny edges, giving 1:1
// structural fidelity while restyling surfaces.
func (c *Client) StyleTransfer(ctx context.Context, prompt string, image *imaging.Asset) (*render.Result, error) {
	c.logger.Info().Msg("replicate: controlnet style transfer")
	return c.run(ctx, modelControlNet, map[string]any{
		"prompt":              prompt,
		"control_image":       dataURI(image),
		"control_type":        "canny",
		"control_strength":    0.9,
		"num_outputs":         1,
		"guidance_scale":      3.5,
		"num_inference_steps": 28,
		"output_format":       "png",
	})
}

// KontextEdit applies a localized edit. With a mask it runs the fill pipeline
// over the masked region only; without one it runs a general Kontext edit
// wrapped in strict preservation instructions.
func (c *Client) KontextEdit(ctx context.Context, prompt string, image, mask *imaging.Asset) (*render.Result, error) {
	if mask != nil {
		c.logger.Info().Msg("replicate: flux fill inpainting")
		return c.run(ctx, modelFluxFill, map[string]any{
			"prompt":        prompt,
			"image":         dataURI(image),
			"mask":          dataURI(mask),
			"output_format": "png",
		})
	}
	c.logger.Info().Msg("replicate: kontext surgical edit")
	return c.Kontext(ctx, wrapPreservation(prompt), image)
}

// Kontext runs the general Kontext edit pipeline with the prompt as given.
// Callers that need preservation guarantees wrap the prompt themselves or go
// through KontextEdit.
func (c *Client) Kontext(ctx context.Context, prompt string, image *imaging.Asset) (*render.Result, error) {
	return c.run(ctx, modelFluxKontext, map[string]any{
		"prompt":           prompt,
		"input_image":      dataURI(image),
		"aspect_ratio":     "match_input_image",
		"output_format":    "png",
		"safety_tolerance": 5,
	})
}

func (c *Client) run(ctx context.Context, model string, input map[string]any) (*render.Result, error) {
	if !c.HasCredentials() {
		return nil, &domain.ProviderError{Kind: domain.ErrAuth, Provider: providerName, Message: "api token not configured"}
	}
	pred, err := retry.Do(ctx, func(ctx context.Context) (*prediction, error) {
		return c.runOnce(ctx, model, input)
	}, c.retry)
	if err != nil {
		return nil, err
	}
	outputURL, err := firstOutputURL(pred.Output)
	if err != nil {
		return nil, err
	}
	data, err := c.download(ctx, outputURL)
	if err != nil {
		return nil, err
	}
	return &render.Result{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), Data: data}, nil
}

// runOnce creates one prediction and waits for it to reach a terminal state.
// Retry policy lives with the caller.
func (c *Client) runOnce(ctx context.Context, model string, input map[string]any) (*prediction, error) {
	endpoint, payload := c.predictionRequest(model, input)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	// Hold the connection until the prediction finishes when the model
	// supports it; polling below covers the slow path.
	httpReq.Header.Set("Prefer", "wait")

	pred, err := c.doPrediction(httpReq)
	if err != nil {
		return nil, err
	}
	for attempt := 0; !terminal(pred.Status); attempt++ {
		if attempt >= maxPollAttempts {
			return nil, &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: "prediction did not finish in time"}
		}
		if err := c.pollWait(ctx); err != nil {
			return nil, err
		}
		pred, err = c.getPrediction(ctx, pred.URLs.Get)
		if err != nil {
			return nil, err
		}
	}
	if pred.Status != "succeeded" {
		return nil, classifyPredictionFailure(pred)
	}
	return pred, nil
}

// predictionRequest routes versioned models through the generic predictions
// endpoint and official models through their dedicated one.
func (c *Client) predictionRequest(model string, input map[string]any) (string, map[string]any) {
	if _, version, ok := strings.Cut(model, ":"); ok {
		return c.baseURL + "/predictions", map[string]any{"version": version, "input": input}
	}
	return c.baseURL + "/models/" + model + "/predictions", map[string]any{"input": input}
}

func (c *Client) getPrediction(ctx context.Context, getURL string) (*prediction, error) {
	if getURL == "" {
		return nil, &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: "prediction poll url missing"}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	return c.doPrediction(httpReq)
}

func (c *Client) doPrediction(httpReq *http.Request) (*prediction, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, raw)
	}
	var pred prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "decode response: " + err.Error()}
	}
	return &pred, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, &domain.ProviderError{Kind: domain.ErrDownload, Provider: providerName, Message: "invalid result url"}
	}
	data, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &domain.ProviderError{Kind: domain.ErrConnection, Provider: providerName, Message: err.Error()}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, classifyStatus(resp.StatusCode, nil)
		}
		return io.ReadAll(resp.Body)
	}, c.retry)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrDownload, Provider: providerName, Message: err.Error()}
	}
	return data, nil
}

// firstOutputURL normalizes the output field, which is either a bare URL
// string or a list of URLs.
func firstOutputURL(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}
	return "", &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "no output url in prediction"}
}

func terminal(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

func classifyPredictionFailure(pred *prediction) error {
	message := strings.TrimSpace(pred.Error)
	if message == "" {
		message = "prediction " + pred.Status
	}
	perr := &domain.ProviderError{Provider: providerName, Message: message}
	if looksThrottled(message) {
		perr.Kind = domain.ErrRateLimited
	} else {
		perr.Kind = domain.ErrValidation
	}
	return perr
}

func classifyStatus(status int, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	var detail apiError
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}
	if message == "" {
		message = http.StatusText(status)
	}
	perr := &domain.ProviderError{Provider: providerName, Message: message, StatusCode: status}
	switch {
	case status == http.StatusTooManyRequests:
		perr.Kind = domain.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		perr.Kind = domain.ErrAuth
	case status >= 500:
		perr.Kind = domain.ErrConnection
	default:
		perr.Kind = domain.ErrValidation
	}
	return perr
}

func looksThrottled(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(message, "429") ||
		strings.Contains(lower, "throttled") ||
		strings.Contains(lower, "rate limit")
}

func waitPoll(ctx context.Context) error {
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func wrapPreservation(prompt string) string {
	return fmt.Sprintf(`CRITICAL: Make ONLY the specific change described below.
Keep EVERYTHING else EXACTLY the same - same camera angle, same lighting, same perspective, same composition.

CHANGE TO MAKE: %s

PRESERVE EXACTLY (do not alter in any way):
- The exact camera position and angle
- The perspective and focal length
- The lighting direction and color temperature
- The sky and clouds
- The foreground elements (parking lot, road, landscaping)
- All elements not specifically mentioned in the change
- The overall composition and framing

This is a surgical edit - change ONLY what is specified, nothing else.`, prompt)
}

func dataURI(asset *imaging.Asset) string {
	if asset == nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(asset.Data)
}
