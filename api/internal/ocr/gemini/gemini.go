package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"banknote-reader/api/internal/ocr"
	"banknote-reader/api/internal/ocr/types"
	"banknote-reader/api/internal/prompt"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// UseSchema attaches prompt.Set.Schema as generationConfig.responseSchema.
	UseSchema bool
	Retry     ocr.RetryPolicy
	Prompt    prompt.Set
	HTTP      *http.Client
}

type Engine struct {
	APIKey    string
	Model     string
	baseURL   string
	useSchema bool
	retry     ocr.RetryPolicy
	prompt    prompt.Set
	httpc     *http.Client
}

func New(cfg Config) *Engine {
	e := &Engine{
		APIKey:    strings.TrimSpace(cfg.APIKey),
		Model:     strings.TrimSpace(cfg.Model),
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		useSchema: cfg.UseSchema,
		retry:     cfg.Retry,
		prompt:    cfg.Prompt,
		httpc:     cfg.HTTP,
	}
	if e.Model == "" {
		e.Model = DefaultModel
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.retry.MaxAttempts == 0 {
		e.retry = ocr.DefaultRetryPolicy()
	}
	if e.prompt.System == "" {
		e.prompt = prompt.MustDefault()
	}
	if e.httpc == nil {
		e.httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return e
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) Configured() bool { return e.APIKey != "" }

// --------------------------- wire format ---------------------------

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type request struct {
	Contents          []content        `json:"contents"`
	SystemInstruction content          `json:"systemInstruction"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// --------------------------- DETECT ---------------------------

func (e *Engine) buildRequest(img types.EncodedImage) ([]byte, error) {
	body := request{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: e.prompt.User},
				{InlineData: &inlineData{MimeType: img.MIMEType, Data: img.Data}},
			},
		}},
		SystemInstruction: content{Parts: []part{{Text: e.prompt.System}}},
		GenerationConfig: generationConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}
	if e.useSchema {
		body.GenerationConfig.ResponseSchema = e.prompt.Schema
	}
	return json.Marshal(body)
}

func (e *Engine) endpoint() string {
	q := url.Values{"key": {e.APIKey}}
	return fmt.Sprintf("%s/models/%s:generateContent?%s", e.baseURL, url.PathEscape(e.Model), q.Encode())
}

// Detect отправляет картинку в Gemini с ретраями и нормализует ответ.
func (e *Engine) Detect(ctx context.Context, img types.EncodedImage) (types.DetectionResult, error) {
	if e.APIKey == "" {
		return types.DetectionResult{}, ocr.ConfigMissing("GEMINI_API_KEY is empty")
	}
	payload, err := e.buildRequest(img)
	if err != nil {
		return types.DetectionResult{}, ocr.Internal("gemini: marshal request", err)
	}

	var text string
	attempts, err := e.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		t, err := e.send(ctx, payload)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	if err != nil {
		return types.DetectionResult{}, err
	}

	res, err := ocr.ParseDetection(text)
	if err != nil {
		if oe := ocr.AsError(err); oe != nil {
			oe.Attempts = attempts
		}
		return types.DetectionResult{}, err
	}
	return res, nil
}

// send makes exactly one HTTP call and returns the first candidate text.
func (e *Engine) send(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", ocr.Internal("gemini: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		if te := ocr.FromContext(ctx); te != nil {
			return "", te
		}
		return "", ocr.Internal("gemini: request failed", redactKey(err, e.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ocr.Internal("gemini: read body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", ocr.Upstream(resp.StatusCode, errorMessage(body))
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", ocr.Malformed("gemini: bad envelope", string(body), err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", ocr.Malformed("gemini: prompt blocked: "+out.PromptFeedback.BlockReason, string(body), nil)
	}
	for _, c := range out.Candidates {
		for _, p := range c.Content.Parts {
			if t := strings.TrimSpace(p.Text); t != "" {
				return t, nil
			}
		}
	}
	return "", ocr.Malformed("gemini: empty response", string(body), nil)
}

func errorMessage(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return ae.Error.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "Unknown API Error"
}

// net/http errors quote the URL, which carries the key.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "***"))
}
