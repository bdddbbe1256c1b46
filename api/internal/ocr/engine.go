package ocr

import (
	"context"
	"strings"
	"sync"

	"banknote-reader/api/internal/ocr/types"
)

type Engine interface {
	Name() string
	GetModel() string
	// Configured is false when the engine has no API key.
	Configured() bool
	Detect(ctx context.Context, img types.EncodedImage) (types.DetectionResult, error)
}

type Engines struct {
	Gemini    Engine
	GeminiSDK Engine
}

// GetEngine resolves llm_name; an empty name selects the REST Gemini engine.
func (e *Engines) GetEngine(llmName string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "", "gemini":
		eng = e.Gemini
	case "gemini-sdk", "genai":
		eng = e.GeminiSDK
	default:
		return nil, BadRequest("unknown llm_name; use 'gemini' or 'gemini-sdk'", nil)
	}
	if eng == nil {
		return nil, BadRequest("engine "+llmName+" is not enabled", nil)
	}
	return eng, nil
}

// Manager keeps a per-chat engine choice for the bot.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
