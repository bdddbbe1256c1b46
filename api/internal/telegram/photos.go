package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"banknote-reader/api/internal/ocr"
)

// Telegram bot API caps downloads at 20 MB.
const maxDownloadBytes = 20 << 20

func (r *Router) acceptImage(ctx context.Context, cid int64, fileID string) {
	if !r.allow(cid) {
		r.send(cid, "Too many requests. Please wait a minute and try again.")
		return
	}
	eng := r.EngManager.Get(cid)
	if eng == nil || !eng.Configured() {
		r.send(cid, ocr.SpeechText(ocr.ConfigMissing("")))
		return
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		log.Printf("telegram: chat=%d get file: %v", cid, err)
		r.send(cid, ocr.SpeechText(ocr.NoImage()))
		return
	}
	img, err := download(ctx, url)
	if err != nil {
		log.Printf("telegram: chat=%d download: %v", cid, err)
		r.send(cid, ocr.SpeechText(ocr.NoImage()))
		return
	}

	res, err := r.Detector.Detect(ctx, eng, img)
	if err != nil {
		r.send(cid, ocr.SpeechText(err))
		return
	}
	r.send(cid, FormatResult(res))
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
