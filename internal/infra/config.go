package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects which provider serves the render and edit endpoints.
const (
	BackendOpenAI    = "openai"
	BackendReplicate = "replicate"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	CORSOrigins []string

	ImageBackend string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIVisionModel string
	OpenAIBaseURL     string
	OpenAIOrg         string

	ReplicateAPIToken string
	ReplicateBaseURL  string

	MaskFeatherRadius int
	PrepareWorkers    int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		ImageBackend:      getEnv("IMAGE_BACKEND", BackendOpenAI),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-image-1.5"),
		OpenAIVisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:         os.Getenv("OPENAI_ORG"),
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		MaskFeatherRadius: getEnvInt("MASK_FEATHER_RADIUS", 2),
		PrepareWorkers:    getEnvInt("PREPARE_WORKERS", 0),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.ImageBackend != BackendOpenAI && cfg.ImageBackend != BackendReplicate {
		return nil, fmt.Errorf("IMAGE_BACKEND must be %q or %q, got %q", BackendOpenAI, BackendReplicate, cfg.ImageBackend)
	}
	if cfg.MaskFeatherRadius < 0 {
		return nil, fmt.Errorf("MASK_FEATHER_RADIUS must be >= 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
