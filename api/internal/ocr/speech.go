package ocr

import (
	"fmt"
	"net/http"
	"unicode/utf8"
)

// SpeechText returns the short sentence that is safe to read out to the user for err.
func SpeechText(err error) string {
	e := AsError(err)
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindConfigMissing:
		return "Error: API key not configured."
	case KindNoImage:
		return "Error: No image received."
	case KindBadRequest:
		return "Error: Bad request."
	case KindImageDecode:
		return "Could not read the image. Please try another photo."
	case KindUpstreamNonRetryable, KindUpstreamRetryable, KindRetryBudgetExhausted:
		return upstreamSpeech(e.Status, e.Message)
	case KindMalformedResponse:
		return "Analysis failed. Server returned unstructured response."
	case KindTimeout:
		return "Analysis timed out. Please try again."
	default:
		return "Internal server error."
	}
}

func upstreamSpeech(status int, detail string) string {
	switch status {
	case http.StatusBadRequest:
		return fmt.Sprintf("Bad request. Detail: %s...", truncate(detail, 50))
	case http.StatusUnauthorized:
		return "API key error. Check your Gemini key."
	case http.StatusForbidden:
		return "Access denied by Gemini API."
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Too many requests."
	default:
		return fmt.Sprintf("Gemini API Error: %d", status)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
