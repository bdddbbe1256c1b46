package app

import (
	"testing"

	"banknote-reader/api/internal/config"
	"banknote-reader/api/internal/ocr"
)

func TestNewDetector(t *testing.T) {
	cfg := config.Default()
	det, err := NewDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := det.Engine(""); ocr.KindOf(err) != ocr.KindConfigMissing {
		t.Errorf("without a key: expected config missing, got %v", err)
	}

	cfg.GeminiAPIKey = "k"
	det, err = NewDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "gemini", "gemini-sdk"} {
		eng, err := det.Engine(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if eng.GetModel() != cfg.GeminiModel {
			t.Errorf("%q: unexpected model %s", name, eng.GetModel())
		}
	}
}

func TestNewDetector_EmptyPromptDir(t *testing.T) {
	cfg := config.Default()
	cfg.PromptDir = t.TempDir()
	// пустой каталог: берутся встроенные промпты
	if _, err := NewDetector(cfg); err != nil {
		t.Fatalf("empty override dir should fall back to embedded prompts: %v", err)
	}
}

func TestSDKEndpoint(t *testing.T) {
	if got := sdkEndpoint("https://generativelanguage.googleapis.com/v1beta/"); got != "" {
		t.Errorf("default base URL should map to the SDK default, got %q", got)
	}
	if got := sdkEndpoint("http://localhost:9000/"); got != "http://localhost:9000" {
		t.Errorf("unexpected endpoint %q", got)
	}
}
