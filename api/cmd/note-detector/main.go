package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"banknote-reader/api/internal/app"
	"banknote-reader/api/internal/config"
	"banknote-reader/api/internal/handle"
	"banknote-reader/api/internal/httpserver"
)

func main() {
	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		log.Printf("GEMINI_API_KEY is empty: /detect will answer with a configuration error")
	}

	det, err := app.NewDetector(cfg)
	if err != nil {
		log.Fatal(err)
	}

	mux := http.NewServeMux()
	handle.New(det, handle.Options{
		Timeout:        cfg.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Model:          cfg.GeminiModel,
	}).Routes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, ":"+cfg.Port, httpserver.Wrap(mux, cfg.CORSOrigins))
	})

	log.Printf("note-detector: model=%s retries=%d unit=%v", cfg.GeminiModel, cfg.RetryMaxAttempts, cfg.RetryUnit)
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
