package telegram

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"banknote-reader/api/internal/imaging"
	"banknote-reader/api/internal/ocr"
	"banknote-reader/api/internal/ocr/types"
)

type fakeBot struct {
	fileURL string

	mu   sync.Mutex
	sent []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) { return b.fileURL, nil }

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return ""
	}
	return b.sent[len(b.sent)-1]
}

type fakeEngine struct {
	name  string
	key   string
	err   error
	calls int
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Configured() bool { return f.key != "" }
func (f *fakeEngine) Detect(context.Context, types.EncodedImage) (types.DetectionResult, error) {
	f.calls++
	if f.err != nil {
		return types.DetectionResult{}, f.err
	}
	v := 50
	return types.DetectionResult{Side: types.SideBack, Denomination: &v, SpeechText: "It is a 50 Rupees note."}, nil
}

func newRouter(t *testing.T, eng *fakeEngine, ratePerMin int) (*Router, *fakeBot) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(files.Close)

	bot := &fakeBot{fileURL: files.URL + "/photo.png"}
	sdk := &fakeEngine{name: "gemini-sdk", key: "k"}
	engs := &ocr.Engines{Gemini: eng, GeminiSDK: sdk}
	return &Router{
		Bot:        bot,
		Detector:   ocr.NewDetector(engs, imaging.DefaultOptions()),
		EngManager: ocr.NewManager(eng),
		RatePerMin: ratePerMin,
	}, bot
}

func photoUpdate(cid int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: cid},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
	}}
}

func commandUpdate(cid int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: cid},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}},
	}}
}

func TestPhotoReply(t *testing.T) {
	eng := &fakeEngine{name: "gemini", key: "k"}
	r, bot := newRouter(t, eng, 0)

	r.HandleUpdate(context.Background(), photoUpdate(1))

	got := bot.last()
	if !strings.HasPrefix(got, "🔊 It is a 50 Rupees note.") {
		t.Errorf("unexpected reply %q", got)
	}
	if !strings.Contains(got, "denomination: ₹50") || !strings.Contains(got, "validation: partial") {
		t.Errorf("detail line missing: %q", got)
	}
	if eng.calls != 1 {
		t.Errorf("expected 1 engine call, got %d", eng.calls)
	}
}

func TestPhotoErrorSpeech(t *testing.T) {
	eng := &fakeEngine{name: "gemini", key: "k", err: ocr.Upstream(429, "quota")}
	r, bot := newRouter(t, eng, 0)

	r.HandleUpdate(context.Background(), photoUpdate(1))
	if got := bot.last(); got != "Rate limit exceeded. Too many requests." {
		t.Errorf("unexpected reply %q", got)
	}
}

func TestPhotoWithoutKey(t *testing.T) {
	eng := &fakeEngine{name: "gemini"}
	r, bot := newRouter(t, eng, 0)

	r.HandleUpdate(context.Background(), photoUpdate(1))
	if got := bot.last(); got != "Error: API key not configured." {
		t.Errorf("unexpected reply %q", got)
	}
	if eng.calls != 0 {
		t.Error("engine without key must not be called")
	}
}

func TestRateLimit(t *testing.T) {
	eng := &fakeEngine{name: "gemini", key: "k"}
	r, bot := newRouter(t, eng, 1)

	r.HandleUpdate(context.Background(), photoUpdate(7))
	r.HandleUpdate(context.Background(), photoUpdate(7))
	if !strings.HasPrefix(bot.last(), "Too many requests") {
		t.Errorf("second photo should be rate limited, got %q", bot.last())
	}
	if eng.calls != 1 {
		t.Errorf("expected 1 engine call, got %d", eng.calls)
	}

	// другой чат не затронут
	r.HandleUpdate(context.Background(), photoUpdate(8))
	if eng.calls != 2 {
		t.Errorf("limit must be per chat, got %d calls", eng.calls)
	}
}

func TestCommands(t *testing.T) {
	eng := &fakeEngine{name: "gemini", key: "k"}
	r, bot := newRouter(t, eng, 0)

	r.HandleUpdate(context.Background(), commandUpdate(1, "/start"))
	if !strings.Contains(bot.last(), "banknote") {
		t.Errorf("unexpected /start reply %q", bot.last())
	}

	r.HandleUpdate(context.Background(), commandUpdate(1, "/health"))
	if !strings.HasPrefix(bot.last(), "✅ OK: gemini") {
		t.Errorf("unexpected /health reply %q", bot.last())
	}

	r.HandleUpdate(context.Background(), commandUpdate(1, "/engine gemini-sdk"))
	if got := r.EngManager.Get(1).Name(); got != "gemini-sdk" {
		t.Errorf("engine not switched, got %s", got)
	}
	if got := r.EngManager.Get(2).Name(); got != "gemini" {
		t.Errorf("other chats keep the default, got %s", got)
	}

	r.HandleUpdate(context.Background(), commandUpdate(1, "/engine gpt"))
	if !strings.HasPrefix(bot.last(), "❌") {
		t.Errorf("unknown engine should be rejected, got %q", bot.last())
	}
}

func TestFormatResult(t *testing.T) {
	got := FormatResult(types.DetectionResult{Side: types.SideUnknown, FullValidation: true, SpeechText: " No banknote detected. "})
	want := "🔊 No banknote detected.\n\nside: unknown | denomination: unknown | validation: full"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
