package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ImageBackend != BackendOpenAI {
		t.Fatalf("ImageBackend = %q, want openai", cfg.ImageBackend)
	}
	if cfg.OpenAIModel != "gpt-image-1.5" {
		t.Fatalf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.HTTPWriteTimeout != 300*time.Second {
		t.Fatalf("HTTPWriteTimeout = %v", cfg.HTTPWriteTimeout)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("IMAGE_BACKEND", "midjourney")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadConfigBackendOverride(t *testing.T) {
	t.Setenv("IMAGE_BACKEND", "replicate")
	t.Setenv("CORS_ORIGINS", "https://app.example.com")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImageBackend != BackendReplicate {
		t.Fatalf("ImageBackend = %q", cfg.ImageBackend)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
