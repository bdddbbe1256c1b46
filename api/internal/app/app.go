// Package app builds the detection stack shared by the HTTP service and the bot.
package app

import (
	"fmt"
	"strings"

	"banknote-reader/api/internal/config"
	"banknote-reader/api/internal/imaging"
	"banknote-reader/api/internal/ocr"
	"banknote-reader/api/internal/ocr/gemini"
	"banknote-reader/api/internal/ocr/geminisdk"
	"banknote-reader/api/internal/prompt"
)

func NewDetector(cfg *config.Config) (*ocr.Detector, error) {
	ps, err := prompt.Load(prompt.Detect, cfg.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	retry := ocr.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Unit: cfg.RetryUnit}

	engines := &ocr.Engines{
		Gemini: gemini.New(gemini.Config{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			BaseURL:   cfg.GeminiBaseURL,
			UseSchema: cfg.GeminiResponseSchema,
			Retry:     retry,
			Prompt:    ps,
		}),
		GeminiSDK: geminisdk.New(geminisdk.Config{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			Endpoint:  sdkEndpoint(cfg.GeminiBaseURL),
			UseSchema: cfg.GeminiResponseSchema,
			Retry:     retry,
			Prompt:    ps,
		}),
	}
	return ocr.NewDetector(engines, imaging.Options{
		MaxSide:   cfg.ImageMaxSide,
		Quality:   cfg.JPEGQuality,
		MaxPixels: cfg.ImageMaxPixels,
	}), nil
}

// sdkEndpoint passes a custom base URL to the SDK; the public one stays the SDK default.
func sdkEndpoint(baseURL string) string {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if u == "" || u == strings.TrimRight(gemini.DefaultBaseURL, "/") {
		return ""
	}
	return u
}
