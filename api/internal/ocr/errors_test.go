package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUpstreamClassification(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		if Upstream(s, "").Kind != KindUpstreamRetryable {
			t.Errorf("%d should be retryable", s)
		}
	}
	for _, s := range []int{400, 401, 403, 404, 501} {
		if Upstream(s, "").Kind != KindUpstreamNonRetryable {
			t.Errorf("%d should not be retryable", s)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(fmt.Errorf("wrapped: %w", NoImage())) != KindNoImage {
		t.Error("wrapped *Error should keep its kind")
	}
	if KindOf(context.DeadlineExceeded) != KindTimeout {
		t.Error("deadline should map to timeout")
	}
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("untyped error should be internal")
	}
}

func TestSpeechText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ConfigMissing("x"), "Error: API key not configured."},
		{NoImage(), "Error: No image received."},
		{Upstream(401, "bad key"), "API key error. Check your Gemini key."},
		{Upstream(429, ""), "Rate limit exceeded. Too many requests."},
		{Upstream(404, ""), "Gemini API Error: 404"},
		{&Error{Kind: KindRetryBudgetExhausted, Status: 503}, "Gemini API Error: 503"},
		{Malformed("x", "raw", nil), "Analysis failed. Server returned unstructured response."},
		{context.DeadlineExceeded, "Analysis timed out. Please try again."},
		{errors.New("boom"), "Internal server error."},
	}
	for _, c := range cases {
		if got := SpeechText(c.err); got != c.want {
			t.Errorf("SpeechText(%v) = %q, want %q", c.err, got, c.want)
		}
	}

	long := strings.Repeat("a", 80)
	if got := SpeechText(Upstream(400, long)); got != "Bad request. Detail: "+strings.Repeat("a", 50)+"..." {
		t.Errorf("400 detail not truncated: %q", got)
	}
}
