package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"banknote-reader/api/internal/imaging"
	"banknote-reader/api/internal/ocr/types"
)

type fakeEngine struct {
	key      string
	detect   func(ctx context.Context, img types.EncodedImage) (types.DetectionResult, error)
	received []types.EncodedImage
}

func (f *fakeEngine) Name() string     { return "fake" }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Configured() bool { return f.key != "" }
func (f *fakeEngine) Detect(ctx context.Context, img types.EncodedImage) (types.DetectionResult, error) {
	f.received = append(f.received, img)
	return f.detect(ctx, img)
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func okResult() types.DetectionResult {
	v := 500
	return types.DetectionResult{Side: types.SideBack, Denomination: &v, FullValidation: true, SpeechText: "It is a 500 Rupees note."}
}

func TestDetector_Engine(t *testing.T) {
	configured := &fakeEngine{key: "k"}
	d := NewDetector(&Engines{Gemini: configured, GeminiSDK: &fakeEngine{}}, imaging.DefaultOptions())

	if eng, err := d.Engine(""); err != nil || eng != configured {
		t.Errorf("default engine: got %v, %v", eng, err)
	}
	if _, err := d.Engine("gemini-sdk"); KindOf(err) != KindConfigMissing {
		t.Errorf("engine without key: expected config missing, got %v", err)
	}
	if _, err := d.Engine("gpt"); KindOf(err) != KindBadRequest {
		t.Errorf("unknown engine: expected bad request, got %v", err)
	}
	if _, err := NewDetector(&Engines{Gemini: configured}, imaging.Options{}).Engine("genai"); KindOf(err) != KindBadRequest {
		t.Errorf("disabled engine: expected bad request, got %v", err)
	}
}

func TestDetector_Detect(t *testing.T) {
	eng := &fakeEngine{key: "k", detect: func(context.Context, types.EncodedImage) (types.DetectionResult, error) {
		return okResult(), nil
	}}
	d := NewDetector(&Engines{Gemini: eng}, imaging.DefaultOptions())

	res, err := d.Detect(context.Background(), eng, smallPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *res.Denomination != 500 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(eng.received) != 1 || eng.received[0].MIMEType != "image/jpeg" {
		t.Errorf("engine should receive one JPEG, got %+v", eng.received)
	}
}

func TestDetector_DetectInputErrors(t *testing.T) {
	eng := &fakeEngine{key: "k", detect: func(context.Context, types.EncodedImage) (types.DetectionResult, error) {
		t.Fatal("engine must not be called for bad input")
		return types.DetectionResult{}, nil
	}}
	d := NewDetector(&Engines{Gemini: eng}, imaging.DefaultOptions())

	if _, err := d.Detect(context.Background(), eng, nil); KindOf(err) != KindNoImage {
		t.Errorf("nil image: expected no image, got %v", err)
	}
	_, err := d.Detect(context.Background(), eng, []byte("not an image"))
	if KindOf(err) != KindImageDecode {
		t.Errorf("garbage: expected image decode error, got %v", err)
	}
}

func TestDetector_EngineErrorsPassThrough(t *testing.T) {
	eng := &fakeEngine{key: "k", detect: func(context.Context, types.EncodedImage) (types.DetectionResult, error) {
		return types.DetectionResult{}, Upstream(401, "API key not valid")
	}}
	d := NewDetector(&Engines{Gemini: eng}, imaging.DefaultOptions())

	_, err := d.Detect(context.Background(), eng, smallPNG(t))
	e := AsError(err)
	if e.Kind != KindUpstreamNonRetryable || e.Status != 401 {
		t.Fatalf("expected upstream 401, got %v", err)
	}
}
