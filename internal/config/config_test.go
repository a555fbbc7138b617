package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "OLLAMA_BASE_URL", "OLLAMA_TIMEOUT", "CHUNK_SIZE", "TESSERACT_CMD"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode=%q", cfg.Mode)
	}
	if cfg.GenBaseURL != "http://localhost:11434" {
		t.Fatalf("base url=%q", cfg.GenBaseURL)
	}
	if cfg.GenTimeout != 300*time.Second {
		t.Fatalf("timeout=%v", cfg.GenTimeout)
	}
	if cfg.ChunkSize != 4000 || cfg.ChunkOverlap != 200 {
		t.Fatalf("chunk=%d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TesseractCmd != "/usr/bin/tesseract" {
		t.Fatalf("tesseract=%q", cfg.TesseractCmd)
	}
	if !cfg.EnableLocalAuth {
		t.Fatal("local auth should default on in offline mode")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434/")
	t.Setenv("OLLAMA_TIMEOUT", "45")
	t.Setenv("OCR_TIMEOUT", "2m")
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := FromEnv()
	if cfg.GenBaseURL != "http://gpu-box:11434" {
		t.Fatalf("base url=%q", cfg.GenBaseURL)
	}
	if cfg.GenTimeout != 45*time.Second {
		t.Fatalf("gen timeout=%v", cfg.GenTimeout)
	}
	if cfg.OCRTimeout != 2*time.Minute {
		t.Fatalf("ocr timeout=%v", cfg.OCRTimeout)
	}
	if cfg.ChunkSize != 4000 {
		t.Fatalf("bad int should fall back to default, got %d", cfg.ChunkSize)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors=%v", cfg.CORSOrigins)
	}
}
