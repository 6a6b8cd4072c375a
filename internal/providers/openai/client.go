// Package openai wraps the OpenAI Images and Chat Completions APIs for
// architectural render work: masked edits, photo-to-render conversion, and
// vision analysis.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renderless/internal/domain"
	"renderless/internal/imaging"
	"renderless/internal/infra"
	"renderless/internal/render"
	"renderless/internal/retry"
)

const providerName = "openai"

const (
	// DefaultModel is the image-edit model used unless configured otherwise.
	DefaultModel = "gpt-image-1.5"
	// DefaultVisionModel handles analysis and conversation turns.
	DefaultVisionModel = "gpt-4o"

	defaultBaseURL  = "https://api.openai.com/v1"
	requestTimeout  = 120 * time.Second
	downloadTimeout = 30 * time.Second
)

// Options configures the OpenAI client.
type Options struct {
	APIKey       string
	Model        string
	VisionModel  string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Retry        retry.Options
}

// Client performs HTTP calls against the OpenAI API.
type Client struct {
	apiKey       string
	model        string
	visionModel  string
	baseURL      string
	organization string
	httpClient   *http.Client
	logger       *infra.Logger
	retry        retry.Options
}

// EditRequest carries everything needed for one images.edit call.
type EditRequest struct {
	Prompt     string
	Image      *imaging.Asset
	Mask       *imaging.Asset
	References []*imaging.Asset
	Quality    render.Quality
	Style      render.StylePreset
	Mode       render.Mode
}

type editResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
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
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	visionModel := strings.TrimSpace(opts.VisionModel)
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		visionModel:  visionModel,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		httpClient:   httpClient,
		logger:       logger,
		retry:        opts.Retry,
	}
}

// Model returns the configured image model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Edit applies a natural-language change to the main image, optionally
// restricted to a mask region, with up to nine style reference images.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*render.Result, error) {
	if !c.HasCredentials() {
		return nil, missingKeyError()
	}
	prompt := render.BuildEditPrompt(req.Prompt, req.Style, len(req.References), req.Mode)
	c.logger.Info().
		Str("model", c.model).
		Str("quality", string(req.Quality)).
		Str("style", string(req.Style)).
		Str("mode", string(req.Mode)).
		Int("references", len(req.References)).
		Bool("mask", req.Mask != nil).
		Msg("openai: image edit")
	return c.submit(ctx, prompt, req.Image, req.Mask, req.References)
}

// Render converts a photo into an architectural marketing render using the
// fixed photo-to-render prompt for the given style.
func (c *Client) Render(ctx context.Context, image *imaging.Asset, quality render.Quality, style render.StylePreset) (*render.Result, error) {
	if !c.HasCredentials() {
		return nil, missingKeyError()
	}
	prompt := render.BuildRenderPrompt(style)
	c.logger.Info().
		Str("model", c.model).
		Str("quality", string(quality)).
		Str("style", string(style)).
		Msg("openai: photo to render")
	return c.submit(ctx, prompt, image, nil, nil)
}

func (c *Client) submit(ctx context.Context, prompt string, image, mask *imaging.Asset, refs []*imaging.Asset) (*render.Result, error) {
	out, err := retry.Do(ctx, func(ctx context.Context) (*editResponse, error) {
		return c.callImagesEdit(ctx, prompt, image, mask, refs)
	}, c.retry)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "no image data in response"}
	}
	first := out.Data[0]
	switch {
	case first.B64JSON != "":
		raw, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "invalid base64 payload"}
		}
		return &render.Result{URL: "data:image/png;base64," + first.B64JSON, Data: raw}, nil
	case first.URL != "":
		raw, err := c.download(ctx, first.URL)
		if err != nil {
			return nil, err
		}
		return &render.Result{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), Data: raw}, nil
	default:
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "no image data in response"}
	}
}

// callImagesEdit issues a single images.edit attempt. Retry policy lives with
// the caller.
func (c *Client) callImagesEdit(ctx context.Context, prompt string, image, mask *imaging.Asset, refs []*imaging.Asset) (*editResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"model":         c.model,
		"prompt":        prompt,
		"n":             "1",
		"size":          sizeForModel(c.model),
		"output_format": "png",
	}
	// The gpt-image family accepts quality knobs; always pin both so detail
	// from the source photo survives the edit.
	if strings.HasPrefix(c.model, "gpt-image") {
		fields["quality"] = "high"
		fields["input_fidelity"] = "high"
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("openai: write field %s: %w", name, err)
		}
	}

	// Main image first, references after, so the model treats image 1 as the
	// edit target.
	imageField := "image"
	if len(refs) > 0 {
		imageField = "image[]"
	}
	if err := writeImagePart(writer, imageField, image); err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if err := writeImagePart(writer, imageField, ref); err != nil {
			return nil, err
		}
	}
	if mask != nil {
		if err := writeImagePart(writer, "mask", mask); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("openai: finalize multipart body: %w", err)
	}

	endpoint := c.baseURL + "/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

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
		return nil, classifyStatus(resp, raw)
	}

	var decoded editResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrParse, Provider: providerName, Message: "decode response: " + err.Error()}
	}
	return &decoded, nil
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
			return nil, classifyStatus(resp, nil)
		}
		return io.ReadAll(resp.Body)
	}, c.retry)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ErrDownload, Provider: providerName, Message: err.Error()}
	}
	return data, nil
}

// sizeForModel picks the output resolution. The legacy model only supports
// small squares; the gpt-image family gets the maximum landscape size so
// downstream quality loss stays minimal.
func sizeForModel(model string) string {
	if model == "dall-e-2" {
		return "512x512"
	}
	return "1536x1024"
}

func writeImagePart(w *multipart.Writer, field string, asset *imaging.Asset) error {
	if asset == nil {
		return &domain.ProviderError{Kind: domain.ErrValidation, Provider: providerName, Message: "image is required"}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, uuid.NewString()+".png"))
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("openai: create %s part: %w", field, err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return fmt.Errorf("openai: write %s part: %w", field, err)
	}
	return nil
}

func classifyStatus(resp *http.Response, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	var detail apiError
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
		message = detail.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	perr := &domain.ProviderError{Provider: providerName, Message: message, StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		perr.Kind = domain.ErrRateLimited
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			perr.RetryAfter = time.Duration(secs) * time.Second
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		perr.Kind = domain.ErrAuth
	case resp.StatusCode >= 500:
		perr.Kind = domain.ErrConnection
	default:
		perr.Kind = domain.ErrValidation
	}
	return perr
}

func missingKeyError() error {
	return &domain.ProviderError{Kind: domain.ErrAuth, Provider: providerName, Message: "api key not configured"}
}

var errEmptyCompletion = errors.New("openai: empty completion")
