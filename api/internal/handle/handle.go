package handle

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"banknote-reader/api/internal/httpserver"
	"banknote-reader/api/internal/ocr"
)

type Options struct {
	// Timeout bounds one /detect call, retries included.
	Timeout        time.Duration
	MaxUploadBytes int64
	// Model is shown on the index page only.
	Model string
}

type Handle struct {
	det *ocr.Detector
	opt Options
}

func New(det *ocr.Detector, opt Options) *Handle {
	if opt.Timeout <= 0 {
		opt.Timeout = 120 * time.Second
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 10 << 20
	}
	return &Handle{det: det, opt: opt}
}

// Routes registers every endpoint on mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", httpserver.Healthz("ok"))
	mux.HandleFunc("/detect", h.Detect)
	mux.HandleFunc("/", h.Index)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	SpeechText  string `json:"speech_text"`
	RawResponse string `json:"raw_response,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := ocr.AsError(err)
	code := StatusFor(e)
	rid := httpserver.RequestID(r.Context())
	log.Printf("detect: rid=%s status=%d kind=%s: %v", rid, code, e.Kind, e)
	writeJSON(w, code, errorBody{
		Error:       diagnostic(e),
		SpeechText:  ocr.SpeechText(e),
		RawResponse: e.Raw,
		RequestID:   rid,
	})
}

// StatusFor maps an error kind to the HTTP status returned to the client.
func StatusFor(err error) int {
	e := ocr.AsError(err)
	switch e.Kind {
	case ocr.KindNoImage, ocr.KindBadRequest, ocr.KindImageDecode:
		return http.StatusBadRequest
	case ocr.KindUpstreamNonRetryable, ocr.KindUpstreamRetryable, ocr.KindRetryBudgetExhausted:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	case ocr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func diagnostic(e *ocr.Error) string {
	switch e.Kind {
	case ocr.KindConfigMissing:
		return "Gemini API Key not configured."
	case ocr.KindNoImage:
		return "No image provided."
	case ocr.KindMalformedResponse:
		return "Gemini returned invalid JSON: " + e.Error()
	case ocr.KindInternal:
		return "Server processing error: " + e.Error()
	}
	return e.Error()
}
