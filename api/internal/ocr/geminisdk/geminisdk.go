// Package geminisdk implements the detection engine on top of the official
// generative-ai-go client. Retry and response handling match the REST engine.
package geminisdk

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"banknote-reader/api/internal/ocr"
	"banknote-reader/api/internal/ocr/types"
	"banknote-reader/api/internal/prompt"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey    string
	Model     string
	Endpoint  string // empty = SDK default
	UseSchema bool
	Retry     ocr.RetryPolicy
	Prompt    prompt.Set
}

type Engine struct {
	APIKey   string
	Model    string
	endpoint string
	schema   *genai.Schema
	retry    ocr.RetryPolicy
	prompt   prompt.Set
}

func New(cfg Config) *Engine {
	e := &Engine{
		APIKey:   strings.TrimSpace(cfg.APIKey),
		Model:    strings.TrimSpace(cfg.Model),
		endpoint: strings.TrimSpace(cfg.Endpoint),
		retry:    cfg.Retry,
		prompt:   cfg.Prompt,
	}
	if e.Model == "" {
		e.Model = DefaultModel
	}
	if e.retry.MaxAttempts == 0 {
		e.retry = ocr.DefaultRetryPolicy()
	}
	if e.prompt.System == "" {
		e.prompt = prompt.MustDefault()
	}
	if cfg.UseSchema {
		e.schema = ToSchema(e.prompt.Schema)
	}
	return e
}

func (e *Engine) Name() string     { return "gemini-sdk" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) Configured() bool { return e.APIKey != "" }

// --------------------------- DETECT ---------------------------

func (e *Engine) Detect(ctx context.Context, img types.EncodedImage) (types.DetectionResult, error) {
	if e.APIKey == "" {
		return types.DetectionResult{}, ocr.ConfigMissing("GEMINI_API_KEY is empty")
	}
	opts := []option.ClientOption{
		option.WithAPIKey(e.APIKey),
		option.WithHTTPClient(newHTTPClient(e.APIKey)),
	}
	if e.endpoint != "" {
		opts = append(opts, option.WithEndpoint(e.endpoint))
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return types.DetectionResult{}, ocr.Internal("gemini-sdk: client", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   e.schema,
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(e.prompt.System)},
	}

	parts := []genai.Part{
		genai.Text(e.prompt.User),
		genai.Blob{MIMEType: img.MIMEType, Data: img.JPEG},
	}

	var text string
	attempts, err := e.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			return classify(ctx, err)
		}
		text = firstText(resp)
		if strings.TrimSpace(text) == "" {
			return ocr.Malformed("gemini-sdk: empty response", "", nil)
		}
		return nil
	})
	if err != nil {
		return types.DetectionResult{}, err
	}

	res, err := ocr.ParseDetection(text)
	if err != nil {
		ocr.AsError(err).Attempts = attempts
		return types.DetectionResult{}, err
	}
	return res, nil
}

// classify maps SDK errors onto the same status-based kinds as the REST engine.
func classify(ctx context.Context, err error) error {
	if te := ocr.FromContext(ctx); te != nil {
		return te
	}
	var serr *statusError
	if errors.As(err, &serr) {
		return ocr.Upstream(serr.Status, serr.Message)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return ocr.Upstream(gerr.Code, gerr.Message)
	}
	var aerr *apierror.APIError
	if errors.As(err, &aerr) {
		if code := aerr.HTTPCode(); code > 0 {
			return ocr.Upstream(code, aerr.Reason()+" "+aerr.Error())
		}
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return ocr.Malformed("gemini-sdk: response blocked", blocked.Error(), err)
	}
	return ocr.Internal("gemini-sdk: generate", err)
}

// ToSchema converts the JSON response schema (Gemini REST dialect) into genai.Schema.
func ToSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if n, ok := m["nullable"].(bool); ok {
		s.Nullable = n
	}
	if f, ok := m["format"].(string); ok {
		s.Format = f
	}
	s.Enum = stringList(m["enum"])
	s.Required = stringList(m["required"])
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = ToSchema(items)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if pm, ok := v.(map[string]any); ok {
				s.Properties[k] = ToSchema(pm)
			}
		}
	}
	return s
}

func schemaType(t string) genai.Type {
	switch strings.ToUpper(t) {
	case "OBJECT":
		return genai.TypeObject
	case "ARRAY":
		return genai.TypeArray
	case "STRING":
		return genai.TypeString
	case "INTEGER":
		return genai.TypeInteger
	case "NUMBER":
		return genai.TypeNumber
	case "BOOLEAN":
		return genai.TypeBoolean
	}
	return genai.TypeUnspecified
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// --------------------------- helpers ---------------------------

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
