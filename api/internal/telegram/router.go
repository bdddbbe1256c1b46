package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"banknote-reader/api/internal/ocr"
)

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot        BotAPI
	Detector   *ocr.Detector
	EngManager *ocr.Manager

	// RatePerMin limits detections per chat; 0 disables the limit.
	RatePerMin int
	// Timeout bounds one detection, download included.
	Timeout time.Duration

	limiters sync.Map // chatID -> *rate.Limiter
}

const helpText = "Send a photo of an Indian rupee banknote and I will tell you what it is.\n" +
	"Commands:\n/health - check the bot\n/engine [gemini|gemini-sdk] - choose the Gemini transport"

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(cid, msg.Command(), msg.CommandArguments())
		return
	}

	switch {
	case len(msg.Photo) > 0:
		// берём самое большое превью
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(ctx, cid, ph.FileID)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptImage(ctx, cid, msg.Document.FileID)
	default:
		r.send(cid, helpText)
	}
}

func (r *Router) HandleCommand(cid int64, cmd, args string) {
	switch cmd {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		eng := r.EngManager.Get(cid)
		if eng == nil || !eng.Configured() {
			r.send(cid, "⚠️ "+ocr.SpeechText(ocr.ConfigMissing("")))
			return
		}
		r.send(cid, "✅ OK: "+eng.Name()+" ("+eng.GetModel()+")")
	case "engine":
		r.handleEngineCommand(cid, args)
	default:
		r.send(cid, "Unknown command. "+helpText)
	}
}

// handleEngineCommand switches the engine for one chat:
//
//	/engine
//	/engine gemini
//	/engine gemini-sdk
func (r *Router) handleEngineCommand(cid int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		cur := "none"
		if eng := r.EngManager.Get(cid); eng != nil {
			cur = eng.Name() + " (" + eng.GetModel() + ")"
		}
		r.send(cid, "Current engine: "+cur+"\nUsage: /engine gemini | /engine gemini-sdk")
		return
	}
	eng, err := r.Detector.Engines.GetEngine(name)
	if err != nil {
		r.send(cid, "❌ "+ocr.AsError(err).Message)
		return
	}
	r.EngManager.Set(cid, eng)
	r.send(cid, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
}

func (r *Router) allow(cid int64) bool {
	if r.RatePerMin <= 0 {
		return true
	}
	v, _ := r.limiters.LoadOrStore(cid, rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.RatePerMin)), r.RatePerMin))
	return v.(*rate.Limiter).Allow()
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram: send to %d: %v", chatID, err)
	}
}
